package service

import (
	"context"
	"fmt"
	"testing"

	"bookswap/internal/models"
	"bookswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("self request", func(t *testing.T) {
		e := newEngine(t)
		owner := testutil.CreateProfile(t, e.db, "owner", 100, 100)
		book := testutil.CreateBook(t, e.db, owner, "Emma", 20)

		_, err := e.exchange.CreateRequest(ctx, owner.ID, book.ID, 0)
		assert.True(t, models.HasCode(err, models.CodeSelfRequest))
	})

	t.Run("missing book", func(t *testing.T) {
		e := newEngine(t)
		reader := testutil.CreateProfile(t, e.db, "reader", 100, 100)

		_, err := e.exchange.CreateRequest(ctx, reader.ID, 404, 0)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		e := newEngine(t)
		owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
		reader := testutil.CreateProfile(t, e.db, "reader", 100, 100)
		book := testutil.CreateBook(t, e.db, owner, "Emma", 20)

		_, err := e.exchange.CreateRequest(ctx, reader.ID, book.ID, 0)
		require.NoError(t, err)
		_, err = e.exchange.CreateRequest(ctx, reader.ID, book.ID, 5)
		assert.True(t, models.HasCode(err, models.CodeDuplicateRequest))
		assert.Equal(t, 409, models.StatusFor(err))
	})

	t.Run("insufficient points", func(t *testing.T) {
		e := newEngine(t)
		owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
		reader := testutil.CreateProfile(t, e.db, "reader", 15, 100)
		book := testutil.CreateBook(t, e.db, owner, "Emma", 20)

		_, err := e.exchange.CreateRequest(ctx, reader.ID, book.ID, 0)
		assert.True(t, models.HasCode(err, models.CodeInsufficientFunds))

		ex, err := e.exchange.CreateRequest(ctx, reader.ID, book.ID, 15)
		require.NoError(t, err)
		assert.Equal(t, 15, ex.PointsUsed)
	})

	t.Run("price falls back to default", func(t *testing.T) {
		e := newEngine(t)
		owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
		reader := testutil.CreateProfile(t, e.db, "reader", 100, 100)
		book := testutil.CreateBook(t, e.db, owner, "Free Book", 0)

		ex, err := e.exchange.CreateRequest(ctx, reader.ID, book.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultRequestPrice, ex.PointsUsed)
	})

	t.Run("notifies owner", func(t *testing.T) {
		e := newEngine(t)
		owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
		reader := testutil.CreateProfile(t, e.db, "reader", 100, 100)
		book := testutil.CreateBook(t, e.db, owner, "Emma", 20)

		ex, err := e.exchange.CreateRequest(ctx, reader.ID, book.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, models.ExchangeStatusPending, ex.Status)
		assert.Equal(t, owner.ID, ex.FromUserID)
		assert.Equal(t, reader.ID, ex.ToUserID)
		require.NotNil(t, ex.Requester)
		assert.Equal(t, "reader", ex.Requester.Username)

		sent := e.notifier.For(owner.ID)
		require.Len(t, sent, 1)
		assert.Equal(t, `New request for "Emma" from reader. Offered: 30 pts.`, sent[0].Message)
		assert.Equal(t, "/requests?tab=incoming", sent[0].Link)
		require.NotNil(t, sent[0].BookID)
		assert.Equal(t, book.ID, *sent[0].BookID)
	})
}

func TestExchangeService_AcceptTransfersBookAndPoints(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
	requester := testutil.CreateProfile(t, e.db, "requester", 100, 100)
	require.NoError(t, e.db.Model(requester).Updates(map[string]any{"location": "Nagpur", "latitude": 21.14, "longitude": 79.08}).Error)
	book := testutil.CreateBook(t, e.db, owner, "Dune", 40)

	ex, err := e.exchange.CreateRequest(ctx, requester.ID, book.ID, 0)
	require.NoError(t, err)

	done, err := e.exchange.Respond(ctx, ex.ID, owner.ID, models.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.ExchangeStatusCompleted, done.Status)

	rPoints, _ := e.balance(t, requester.ID)
	oPoints, _ := e.balance(t, owner.ID)
	assert.Equal(t, 60, rPoints)
	assert.Equal(t, 40, oPoints)

	moved, err := e.books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, requester.ID, moved.OwnerID)
	assert.Equal(t, "Nagpur", moved.Location)

	wantQR, err := bookQRCode(moved.Title, moved.Author, moved.Description, requester.ID, moved.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, wantQR, moved.QRCode, "QR carries the new owner")
	staleQR, err := bookQRCode(moved.Title, moved.Author, moved.Description, owner.ID, moved.CreatedAt)
	require.NoError(t, err)
	assert.NotEqual(t, staleQR, moved.QRCode)

	sent := e.notifier.For(requester.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, `Your request for "Dune" was ACCEPTED!`, sent[0].Message)
	assert.Equal(t, fmt.Sprintf("/book/%d", book.ID), sent[0].Link)

	_, err = e.exchange.Respond(ctx, ex.ID, owner.ID, models.DecisionReject)
	assert.True(t, models.HasCode(err, models.CodeInvalidTransition), "terminal requests never reopen")
}

func TestExchangeService_Reject(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
	requester := testutil.CreateProfile(t, e.db, "requester", 100, 100)
	book := testutil.CreateBook(t, e.db, owner, "Dune", 40)

	ex, err := e.exchange.CreateRequest(ctx, requester.ID, book.ID, 0)
	require.NoError(t, err)

	_, err = e.exchange.Respond(ctx, ex.ID, requester.ID, models.DecisionReject)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	done, err := e.exchange.Respond(ctx, ex.ID, owner.ID, models.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.ExchangeStatusCancelled, done.Status)

	rPoints, _ := e.balance(t, requester.ID)
	assert.Equal(t, 100, rPoints)

	sent := e.notifier.For(requester.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, `Your request for "Dune" was declined.`, sent[0].Message)
	assert.Equal(t, "/requests?tab=outgoing", sent[0].Link)

	_, err = e.exchange.Respond(ctx, ex.ID, owner.ID, models.DecisionAccept)
	assert.True(t, models.HasCode(err, models.CodeInvalidTransition))

	_, err = e.exchange.Respond(ctx, 999, owner.ID, models.DecisionAccept)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestExchangeService_AcceptRollsBackWhenRequesterCannotPay(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
	requester := testutil.CreateProfile(t, e.db, "requester", 100, 100)
	book := testutil.CreateBook(t, e.db, owner, "Dune", 40)

	ex, err := e.exchange.CreateRequest(ctx, requester.ID, book.ID, 0)
	require.NoError(t, err)
	_, err = e.ledger.SetPoints(ctx, requester.ID, 10)
	require.NoError(t, err)

	_, err = e.exchange.Respond(ctx, ex.ID, owner.ID, models.DecisionAccept)
	assert.True(t, models.HasCode(err, models.CodeInsufficientFunds))

	still, err := e.exchanges.GetByID(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExchangeStatusPending, still.Status)

	unmoved, err := e.books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, unmoved.OwnerID)

	oPoints, _ := e.balance(t, owner.ID)
	assert.Equal(t, 0, oPoints)
	assert.Empty(t, e.notifier.For(requester.ID))
}

func TestExchangeService_AcceptCancelsCompetingRequests(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
	first := testutil.CreateProfile(t, e.db, "first", 100, 100)
	second := testutil.CreateProfile(t, e.db, "second", 100, 100)
	book := testutil.CreateBook(t, e.db, owner, "Dune", 40)

	winning, err := e.exchange.CreateRequest(ctx, first.ID, book.ID, 0)
	require.NoError(t, err)
	losing, err := e.exchange.CreateRequest(ctx, second.ID, book.ID, 50)
	require.NoError(t, err)

	_, err = e.exchange.Respond(ctx, winning.ID, owner.ID, models.DecisionAccept)
	require.NoError(t, err)

	other, err := e.exchanges.GetByID(ctx, losing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExchangeStatusCancelled, other.Status)

	sent := e.notifier.For(second.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, `Your request for "Dune" was declined.`, sent[0].Message)

	sPoints, _ := e.balance(t, second.ID)
	assert.Equal(t, 100, sPoints)
}

func TestExchangeService_ListRequests(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, e.db, "owner", 0, 100)
	reader := testutil.CreateProfile(t, e.db, "reader", 100, 100)
	first := testutil.CreateBook(t, e.db, owner, "One", 10)
	second := testutil.CreateBook(t, e.db, owner, "Two", 10)

	_, err := e.exchange.CreateRequest(ctx, reader.ID, first.ID, 0)
	require.NoError(t, err)
	_, err = e.exchange.CreateRequest(ctx, reader.ID, second.ID, 0)
	require.NoError(t, err)

	incoming, err := e.exchange.ListRequests(ctx, owner.ID, models.RequestsIncoming)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, "Two", incoming[0].Book.Title, "newest first")
	assert.Equal(t, "reader", incoming[0].Requester.Username)
	assert.Equal(t, "owner", incoming[0].Owner.Username)

	outgoing, err := e.exchange.ListRequests(ctx, reader.ID, models.RequestsOutgoing)
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	_, err = e.exchange.ListRequests(ctx, reader.ID, models.RequestDirection("sideways"))
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestReputationGate_ConvertUnlocksChat(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, e.db, "quiet", 500, 45)

	decision := CanPerform(ActionChat, 45)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 5, decision.Deficit)

	p, err := e.ledger.ConvertPointsToReputation(ctx, user.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Reputation)
	assert.True(t, CanPerform(ActionChat, p.Reputation).Allowed)
}

package repository

import (
	"context"
	"testing"

	"bookswap/internal/models"
	"bookswap/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_Integration(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	alice := &models.Profile{ID: uuid.New(), Username: "alice", Reputation: models.DefaultReputation, Points: 50}

	t.Run("Create and lookups", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, alice))

		byID, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)

		byName, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byName.ID)

		_, err = repo.GetByUsername(ctx, "nobody")
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("Duplicate username", func(t *testing.T) {
		err := repo.Create(ctx, &models.Profile{ID: uuid.New(), Username: "alice", Reputation: 100})
		assert.True(t, models.HasCode(err, models.CodeConflict))
	})

	t.Run("UpdateBalances writes zero", func(t *testing.T) {
		require.NoError(t, repo.UpdateBalances(ctx, alice.ID, 0, 0))
		got, err := repo.GetByIDForUpdate(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Points)
		assert.Equal(t, 0, got.Reputation)

		err = repo.UpdateBalances(ctx, uuid.New(), 1, 1)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("UpdateFields", func(t *testing.T) {
		require.NoError(t, repo.UpdateFields(ctx, alice.ID, map[string]any{"location": "Mumbai"}))
		got, _ := repo.GetByID(ctx, alice.ID)
		assert.Equal(t, "Mumbai", got.Location)

		err := repo.UpdateFields(ctx, uuid.New(), map[string]any{"location": "x"})
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestProfileRepository_Stats(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	owner := testutil.CreateProfile(t, db, "owner", 30, 90)
	reader := testutil.CreateProfile(t, db, "reader", 0, 100)
	book := testutil.CreateBook(t, db, owner, "Emma", 10)
	testutil.CreateBook(t, db, owner, "Persuasion", 10)

	require.NoError(t, db.Create(&models.Exchange{BookID: book.ID, FromUserID: owner.ID, ToUserID: reader.ID, PointsUsed: 10, Status: models.ExchangeStatusCompleted}).Error)
	require.NoError(t, db.Create(&models.Exchange{BookID: book.ID, FromUserID: owner.ID, ToUserID: reader.ID, PointsUsed: 10, Status: models.ExchangeStatusCancelled}).Error)

	stats, err := repo.Stats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Points)
	assert.Equal(t, 90, stats.Reputation)
	assert.EqualValues(t, 2, stats.TotalBooks)
	assert.EqualValues(t, 1, stats.Exchanges)
}

func TestProfileRepository_DeleteWithDependents(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	gone := testutil.CreateProfile(t, db, "leaving", 10, 100)
	stays := testutil.CreateProfile(t, db, "staying", 10, 100)
	require.NoError(t, db.Model(gone).Update("image_key", "avatars/leaving.webp").Error)

	owned := testutil.CreateBook(t, db, gone, "Ulysses", 20)
	kept := testutil.CreateBook(t, db, stays, "Middlemarch", 20)
	require.NoError(t, db.Create(&models.BookImage{BookID: owned.ID, URL: "/u/1.webp", StorageKey: "books/1.webp"}).Error)
	require.NoError(t, db.Create(&models.Exchange{BookID: kept.ID, FromUserID: stays.ID, ToUserID: gone.ID, PointsUsed: 20, Status: models.ExchangeStatusPending}).Error)
	require.NoError(t, db.Create(&models.WishlistItem{UserID: gone.ID, BookID: kept.ID}).Error)
	require.NoError(t, db.Create(&models.Notification{UserID: gone.ID, Message: "hi"}).Error)

	convRepo := NewConversationRepository(db)
	conv, err := convRepo.Create(ctx, nil, gone.ID, stays.ID)
	require.NoError(t, err)
	require.NoError(t, convRepo.CreateMessage(ctx, &models.Message{ConversationID: conv.ID, SenderID: stays.ID, Content: "hello"}))

	keys, err := repo.DeleteWithDependents(ctx, gone.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"avatars/leaving.webp", "books/1.webp"}, keys)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Exchange{}))
	assert.Zero(t, count(&models.WishlistItem{}))
	assert.Zero(t, count(&models.Notification{}))
	assert.Zero(t, count(&models.Message{}))
	assert.Zero(t, count(&models.ConversationMember{}))
	assert.Zero(t, count(&models.Conversation{}))
	assert.Zero(t, count(&models.BookImage{}))
	assert.EqualValues(t, 1, count(&models.Book{}))
	assert.EqualValues(t, 1, count(&models.Profile{}))

	_, err = repo.DeleteWithDependents(ctx, gone.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

package service

import (
	"context"
	"errors"
	"testing"

	"bookswap/internal/models"
	"bookswap/internal/observability"
	"bookswap/internal/testutil"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPointLedger_AddPointsFloorsAtZero(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, e.db, "reader", 10, 100)

	p, err := e.ledger.AddPoints(ctx, user.ID, -25)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Points)

	p, err = e.ledger.AddPoints(ctx, user.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, p.Points)

	points, _ := e.balance(t, user.ID)
	assert.Equal(t, 40, points)
}

func TestPointLedger_SetPoints(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, e.db, "reader", 10, 100)

	_, err := e.ledger.SetPoints(ctx, user.ID, -1)
	assert.True(t, models.HasCode(err, models.CodeInvalidAmount))

	p, err := e.ledger.SetPoints(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Points)

	_, err = e.ledger.SetPoints(ctx, uuid.New(), 5)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPointLedger_DeductReputation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateProfile(t, e.db, "troll", 0, 100)

	p, err := e.ledger.DeductReputation(ctx, user.ID, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 95, p.Reputation)

	p, err = e.ledger.DeductReputation(ctx, user.ID, MaxDeduction, "spam")
	require.NoError(t, err)
	assert.Equal(t, 45, p.Reputation)

	p, err = e.ledger.DeductReputation(ctx, user.ID, MaxDeduction, "spam")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Reputation, "reputation floors at zero")

	_, err = e.ledger.DeductReputation(ctx, user.ID, MaxDeduction+1, "spam")
	assert.True(t, models.HasCode(err, models.CodeInvalidAmount))

	_, err = e.ledger.DeductReputation(ctx, user.ID, -3, "")
	assert.True(t, models.HasCode(err, models.CodeInvalidAmount))
}

func TestPointLedger_ConvertPointsToReputation(t *testing.T) {
	tests := []struct {
		name     string
		points   int
		convert  int
		wantCode string
		wantPts  int
		wantRep  int
	}{
		{"one unit", 1200, 500, "", 700, 105},
		{"two units", 1200, 1000, "", 200, 110},
		{"not a multiple", 1200, 300, models.CodeInvalidAmount, 1200, 100},
		{"zero", 1200, 0, models.CodeInvalidAmount, 1200, 100},
		{"more than balance", 1200, 2000, models.CodeInsufficientFunds, 1200, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			user := testutil.CreateProfile(t, e.db, "saver", tt.points, 100)
			before := promtestutil.ToFloat64(observability.LedgerMutations.WithLabelValues("convert"))

			_, err := e.ledger.ConvertPointsToReputation(context.Background(), user.ID, tt.convert)
			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, before+1, promtestutil.ToFloat64(observability.LedgerMutations.WithLabelValues("convert")))
			}

			points, rep := e.balance(t, user.ID)
			assert.Equal(t, tt.wantPts, points)
			assert.Equal(t, tt.wantRep, rep)
		})
	}
}

func TestPointLedger_Transfer(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	payer := testutil.CreateProfile(t, e.db, "payer", 50, 100)
	payee := testutil.CreateProfile(t, e.db, "payee", 5, 100)

	require.NoError(t, e.ledger.Transfer(ctx, payer.ID, payee.ID, 30))
	p, _ := e.balance(t, payer.ID)
	q, _ := e.balance(t, payee.ID)
	assert.Equal(t, 20, p)
	assert.Equal(t, 35, q)

	err := e.ledger.Transfer(ctx, payer.ID, payee.ID, 21)
	assert.True(t, models.HasCode(err, models.CodeInsufficientFunds))
	p, _ = e.balance(t, payer.ID)
	q, _ = e.balance(t, payee.ID)
	assert.Equal(t, 20, p)
	assert.Equal(t, 35, q)

	assert.True(t, models.HasCode(e.ledger.Transfer(ctx, payer.ID, payer.ID, 1), models.CodeValidation))
	assert.True(t, models.HasCode(e.ledger.Transfer(ctx, payer.ID, uuid.New(), 1), models.CodeNotFound))
}

func TestPointLedger_WithTxRollsBackWithOuterTransaction(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateProfile(t, e.db, "reader", 100, 100)

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if _, err := e.ledger.WithTx(tx).AddPoints(context.Background(), user.ID, 50); err != nil {
			return err
		}
		return errors.New("outer failure")
	})
	require.Error(t, err)

	points, _ := e.balance(t, user.ID)
	assert.Equal(t, 100, points)
}

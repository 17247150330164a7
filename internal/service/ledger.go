package service

import (
	"context"
	"errors"
	"fmt"

	"bookswap/internal/cache"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/observability"
	"bookswap/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	// ConversionUnit is the number of points exchanged for one reputation step.
	ConversionUnit = 500
	// ReputationPerUnit is the reputation granted per ConversionUnit points.
	ReputationPerUnit = 5

	// MaxDeduction caps a single reputation penalty.
	MaxDeduction = 50

	defaultDeduction       = 5
	defaultDeductionReason = "Abusive content detected"
)

// PointLedger owns every write to profile points and reputation. Each
// operation locks the profile row for the duration of its transaction.
type PointLedger struct {
	db       *gorm.DB
	profiles repository.ProfileRepository
	cache    *cache.Store
}

// NewPointLedger returns a ledger backed by db. store may be nil.
func NewPointLedger(db *gorm.DB, profiles repository.ProfileRepository, store *cache.Store) *PointLedger {
	return &PointLedger{db: db, profiles: profiles, cache: store}
}

// WithTx binds the ledger to an outer transaction. Its operations then run as savepoints.
func (l *PointLedger) WithTx(tx *gorm.DB) *PointLedger {
	return &PointLedger{db: tx, profiles: l.profiles.WithTx(tx), cache: l.cache}
}

func (l *PointLedger) mutate(
	ctx context.Context, operation string, userID uuid.UUID, apply func(p *models.Profile) error,
) (profile *models.Profile, err error) {
	ctx, span := observability.StartSpan(ctx, "ledger", operation, attribute.String("user.id", userID.String()))
	defer func() { observability.EndSpan(span, err) }()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := l.profiles.WithTx(tx)
		p, err := profiles.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := apply(p); err != nil {
			return err
		}
		if err := profiles.UpdateBalances(ctx, p.ID, p.Points, p.Reputation); err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	observability.LedgerMutations.WithLabelValues(operation).Inc()
	l.cache.InvalidateProfile(ctx, userID)
	return profile, nil
}

// AddPoints applies delta to the balance. Negative results floor at 0.
func (l *PointLedger) AddPoints(ctx context.Context, userID uuid.UUID, delta int) (*models.Profile, error) {
	return l.mutate(ctx, "add_points", userID, func(p *models.Profile) error {
		p.Points = max(0, p.Points+delta)
		return nil
	})
}

// SetPoints overwrites the balance.
func (l *PointLedger) SetPoints(ctx context.Context, userID uuid.UUID, value int) (*models.Profile, error) {
	if value < 0 {
		return nil, models.NewInvalidAmountError("Points cannot be negative")
	}
	return l.mutate(ctx, "set_points", userID, func(p *models.Profile) error {
		p.Points = value
		return nil
	})
}

// DeductReputation lowers reputation by amount (5 when zero, at most
// MaxDeduction). Reputation never goes below 0.
func (l *PointLedger) DeductReputation(ctx context.Context, userID uuid.UUID, amount int, reason string) (*models.Profile, error) {
	if amount == 0 {
		amount = defaultDeduction
	}
	if amount < 0 {
		return nil, models.NewInvalidAmountError("Deduction amount must be positive")
	}
	if amount > MaxDeduction {
		return nil, models.NewInvalidAmountError(fmt.Sprintf("Deduction amount must be at most %d", MaxDeduction))
	}
	if reason == "" {
		reason = defaultDeductionReason
	}

	profile, err := l.mutate(ctx, "deduct_reputation", userID, func(p *models.Profile) error {
		p.Reputation = max(0, p.Reputation-amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	middleware.Logger.WarnContext(ctx, "reputation deducted",
		"target_user_id", userID, "amount", amount, "reason", reason, "reputation", profile.Reputation)
	return profile, nil
}

// ConvertPointsToReputation spends points in multiples of ConversionUnit for reputation.
func (l *PointLedger) ConvertPointsToReputation(ctx context.Context, userID uuid.UUID, points int) (*models.Profile, error) {
	if points <= 0 || points%ConversionUnit != 0 {
		return nil, models.NewInvalidAmountError("Points must be a positive multiple of 500")
	}
	return l.mutate(ctx, "convert", userID, func(p *models.Profile) error {
		if p.Points < points {
			return models.NewInsufficientPointsError(p.Points, points)
		}
		p.Points -= points
		p.Reputation += points / ConversionUnit * ReputationPerUnit
		return nil
	})
}

// Transfer moves amount points from one profile to another in a single transaction.
func (l *PointLedger) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount int) (err error) {
	if amount < 0 {
		return models.NewInvalidAmountError("Transfer amount cannot be negative")
	}
	if fromID == toID {
		return models.NewValidationError("Cannot transfer points to the same profile")
	}

	ctx, span := observability.StartSpan(ctx, "ledger", "transfer",
		attribute.String("from.id", fromID.String()), attribute.String("to.id", toID.String()), attribute.Int("amount", amount))
	defer func() { observability.EndSpan(span, err) }()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profiles := l.profiles.WithTx(tx)

		// Rows are locked in id order.
		first, second := fromID, toID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*models.Profile, 2)
		for _, id := range []uuid.UUID{first, second} {
			p, err := profiles.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = p
		}

		payer, payee := locked[fromID], locked[toID]
		if payer.Points < amount {
			return models.NewInsufficientPointsError(payer.Points, amount)
		}
		if err := profiles.UpdateBalances(ctx, payer.ID, payer.Points-amount, payer.Reputation); err != nil {
			return err
		}
		return profiles.UpdateBalances(ctx, payee.ID, payee.Points+amount, payee.Reputation)
	})
	if err != nil {
		return asAppError(err)
	}
	observability.LedgerMutations.WithLabelValues("transfer").Inc()
	return nil
}

// asAppError keeps AppErrors intact and wraps anything else as internal.
func asAppError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

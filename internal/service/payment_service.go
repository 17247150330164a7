package service

import (
	"context"
	"encoding/json"
	"strings"

	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/payments"
	"bookswap/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentService sells point packages and credits verified purchases once.
type PaymentService struct {
	db          *gorm.DB
	payments    repository.PaymentRepository
	ledger      *PointLedger
	provider    payments.Provider
	frontendURL string
}

// CheckoutResult points the client at the hosted checkout page.
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// VerifyResult reports the credited payment and the new balance.
type VerifyResult struct {
	Payment          *models.Payment `json:"payment"`
	Points           int             `json:"points,omitempty"`
	AlreadyProcessed bool            `json:"already_processed"`
}

// NewPaymentService returns a PaymentService. provider may be nil when payments are disabled.
func NewPaymentService(
	db *gorm.DB,
	paymentRepo repository.PaymentRepository,
	ledger *PointLedger,
	provider payments.Provider,
	frontendURL string,
) *PaymentService {
	return &PaymentService{
		db:          db,
		payments:    paymentRepo,
		ledger:      ledger,
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (s *PaymentService) Packages() []models.PointPackage {
	return payments.Packages()
}

func (s *PaymentService) Checkout(ctx context.Context, userID uuid.UUID, packageID string) (*CheckoutResult, error) {
	if s.provider == nil {
		return nil, models.NewDependencyError("payments", payments.ErrNotConfigured)
	}
	pkg, ok := payments.PackageByID(packageID)
	if !ok {
		return nil, models.NewValidationError("Unknown package_id")
	}

	session, err := s.provider.CreateCheckout(ctx, payments.CheckoutRequest{
		UserID:     userID.String(),
		Package:    pkg,
		SuccessURL: s.frontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.frontendURL + "/payment/cancel",
	})
	if err != nil {
		return nil, models.NewDependencyError("payments", err)
	}
	return &CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// Verify credits a paid session to the caller. Verifying the same session
// again returns the recorded payment without crediting twice.
func (s *PaymentService) Verify(ctx context.Context, userID uuid.UUID, sessionID string) (*VerifyResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, models.NewValidationError("session_id is required")
	}

	if existing, err := s.payments.GetBySessionID(ctx, sessionID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.alreadyProcessed(existing, userID)
	}

	if s.provider == nil {
		return nil, models.NewDependencyError("payments", payments.ErrNotConfigured)
	}
	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, models.NewDependencyError("payments", err)
	}
	if !session.Paid {
		return nil, models.NewValidationError("Payment has not been completed")
	}
	if session.UserID != userID.String() {
		return nil, models.NewForbiddenError("This payment belongs to another user")
	}
	pkg, ok := payments.PackageByID(session.PackageID)
	if !ok {
		return nil, models.NewValidationError("Payment references an unknown package")
	}

	meta, _ := json.Marshal(session.Metadata)
	payment := &models.Payment{
		UserID:      userID,
		Provider:    s.provider.Name(),
		SessionID:   session.ID,
		PackageID:   pkg.ID,
		AmountCents: session.AmountCents,
		PointsAdded: pkg.Points,
		Status:      models.PaymentStatusCompleted,
		Metadata:    datatypes.JSON(meta),
	}

	var balance int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		profile, err := s.ledger.WithTx(tx).AddPoints(ctx, userID, pkg.Points)
		if err != nil {
			return err
		}
		balance = profile.Points
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeConflict) {
			existing, lookupErr := s.payments.GetBySessionID(ctx, sessionID)
			if lookupErr == nil && existing != nil {
				return s.alreadyProcessed(existing, userID)
			}
		}
		return nil, asAppError(err)
	}

	middleware.Logger.InfoContext(ctx, "points purchased", "user_id", userID, "package_id", pkg.ID, "points", pkg.Points)
	return &VerifyResult{Payment: payment, Points: balance}, nil
}

func (s *PaymentService) alreadyProcessed(p *models.Payment, userID uuid.UUID) (*VerifyResult, error) {
	if p.UserID != userID {
		return nil, models.NewForbiddenError("This payment belongs to another user")
	}
	return &VerifyResult{Payment: p, AlreadyProcessed: true}, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// Package payments sells point packages through a hosted checkout provider.
package payments

import (
	"context"
	"errors"

	"bookswap/internal/models"
)

// ProviderStripe is the provider name stored on payment rows.
const ProviderStripe = "stripe"

var packages = []models.PointPackage{
	{ID: "POINTS_100", Name: "100 Points", AmountCents: 100, Points: 100},
	{ID: "POINTS_500", Name: "500 Points", AmountCents: 450, Points: 500},
	{ID: "POINTS_1000", Name: "1000 Points", AmountCents: 800, Points: 1000},
}

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Packages lists the purchasable point packages.
func Packages() []models.PointPackage {
	out := make([]models.PointPackage, len(packages))
	copy(out, packages)
	return out
}

// PackageByID looks up a package.
func PackageByID(id string) (models.PointPackage, bool) {
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return models.PointPackage{}, false
}

// CheckoutRequest describes a package purchase by a user.
type CheckoutRequest struct {
	UserID     string
	Package    models.PointPackage
	SuccessURL string
	CancelURL  string
}

// Session is the provider-neutral view of a checkout session.
type Session struct {
	ID          string
	URL         string
	Paid        bool
	UserID      string
	PackageID   string
	AmountCents int64
	Metadata    map[string]string
}

// Provider creates and inspects checkout sessions.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider uses the default Stripe backends.
func NewStripeProvider(secretKey string) (*StripeProvider, error) {
	return NewStripeProviderWithBackends(secretKey, nil)
}

// NewStripeProviderWithBackends lets callers point the client at another API host.
func NewStripeProviderWithBackends(secretKey string, backends *stripe.Backends) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeProvider{api: client.New(secretKey, backends)}, nil
}

func (p *StripeProvider) Name() string { return ProviderStripe }

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Package.Name),
					},
					UnitAmount: stripe.Int64(req.Package.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("package_id", req.Package.ID)
	params.AddMetadata("points", fmt.Sprint(req.Package.Points))
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return toSession(s), nil
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:          s.ID,
		URL:         s.URL,
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		UserID:      s.ClientReferenceID,
		AmountCents: s.AmountTotal,
		Metadata:    s.Metadata,
	}
	if out.Metadata != nil {
		out.PackageID = out.Metadata["package_id"]
		if out.UserID == "" {
			out.UserID = out.Metadata["user_id"]
		}
	}
	return out
}

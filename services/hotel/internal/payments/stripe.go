package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
)

// Provider mints payment intents for the website checkout.
type Provider interface {
	CreateIntent(ctx context.Context, p domain.PaymentIntentParams) (*domain.PaymentIntent, error)
}

type StripeProvider struct {
	sc *client.API
}

// NewStripeProvider builds a client for secretKey. backends may be nil to use Stripe's defaults.
func NewStripeProvider(secretKey string, backends *stripe.Backends) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeProvider{sc: sc}
}

func (s *StripeProvider) CreateIntent(ctx context.Context, p domain.PaymentIntentParams) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx

	pi, err := s.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &domain.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

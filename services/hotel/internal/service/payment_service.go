package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/payments"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, c domain.Customer, req *domain.PaymentIntentRequest) (*domain.PaymentIntent, error)
}

type paymentService struct {
	provider        payments.Provider
	defaultCurrency string
	bus             events.Publisher
	metrics         *metrics.Metrics
}

// NewPaymentService accepts a nil provider; every call then reports the service as unconfigured.
func NewPaymentService(provider payments.Provider, defaultCurrency string, bus events.Publisher, m *metrics.Metrics) PaymentService {
	return &paymentService{provider: provider, defaultCurrency: defaultCurrency, bus: bus, metrics: m}
}

func (s *paymentService) CreateIntent(ctx context.Context, c domain.Customer, req *domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	if s.provider == nil {
		return nil, domain.ErrPaymentsDisabled
	}
	req.Normalize(s.defaultCurrency)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["userId"] = c.ID.Hex()
	metadata["userEmail"] = c.Email

	params := domain.PaymentIntentParams{
		Amount:         req.MinorUnits(),
		Currency:       req.Currency,
		Description:    req.Description,
		Metadata:       metadata,
		IdempotencyKey: uuid.NewString(),
	}
	intent, err := s.provider.CreateIntent(ctx, params)
	if err != nil {
		s.metrics.ObservePaymentIntent("error")
		logger.ErrorContext(ctx, "Payment intent failed", "error", err, "amount", params.Amount)
		return nil, domain.ErrPaymentFailed.Wrap(err)
	}
	s.metrics.ObservePaymentIntent("created")

	publish(ctx, s.bus, s.metrics, events.PaymentIntentCreated, events.PaymentIntentCreatedEvent{
		IntentID: intent.ID,
		UserID:   c.ID.Hex(),
		Amount:   params.Amount,
		Currency: params.Currency,
	})
	return intent, nil
}

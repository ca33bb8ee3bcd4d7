package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
)

type ContactService interface {
	Submit(ctx context.Context, req *domain.ContactRequest) (*domain.ContactMessage, error)
}

type contactService struct {
	messages repository.ContactRepository
	bus      events.Publisher
	metrics  *metrics.Metrics
}

func NewContactService(messages repository.ContactRepository, bus events.Publisher, m *metrics.Metrics) ContactService {
	return &contactService{messages: messages, bus: bus, metrics: m}
}

func (s *contactService) Submit(ctx context.Context, req *domain.ContactRequest) (*domain.ContactMessage, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &domain.ContactMessage{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}
	logger.InfoContext(ctx, "Contact message received", "id", msg.ID.Hex())

	publish(ctx, s.bus, s.metrics, events.ContactReceived, events.ContactReceivedEvent{
		ID:        msg.ID.Hex(),
		Name:      msg.Name,
		Email:     msg.Email,
		Subject:   msg.Subject,
		CreatedAt: msg.CreatedAt,
	})
	return msg, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/pkg/utils"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/assistant"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
)

const NoMessageReply = "I'm sorry, I didn't receive your message. Could you please try again?"

type ChatService interface {
	// Reply answers msg. When userID is non-nil the turn is appended to that guest's history.
	Reply(ctx context.Context, userID *primitive.ObjectID, req *domain.ChatRequest) (string, error)
	History(ctx context.Context, userID primitive.ObjectID) ([]domain.ChatEntry, error)
	AppendTurn(ctx context.Context, userID primitive.ObjectID, req *domain.ChatTurnRequest) error
}

// Responder generates a free-form reply. *assistant.Gemini is the production one.
type Responder interface {
	Respond(ctx context.Context, message string) (string, error)
}

type chatService struct {
	faq       *assistant.FAQ
	responder Responder
	history   repository.ChatRepository
	metrics   *metrics.Metrics
	config    config.ChatConfig
	now       func() time.Time
}

type ChatOption func(*chatService)

// WithResponder answers through r first and uses the FAQ only when r fails.
func WithResponder(r Responder) ChatOption {
	return func(s *chatService) { s.responder = r }
}

func NewChatService(faq *assistant.FAQ, history repository.ChatRepository, m *metrics.Metrics, cfg config.ChatConfig, opts ...ChatOption) ChatService {
	s := &chatService{faq: faq, history: history, metrics: m, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) Reply(ctx context.Context, userID *primitive.ObjectID, req *domain.ChatRequest) (string, error) {
	text, ok := req.Text()
	if !ok {
		return "", domain.Invalid(NoMessageReply)
	}
	if utils.RuneLen(text) > s.config.MaxMessageLength {
		return "", domain.Invalid(fmt.Sprintf("Message must be %d characters or fewer", s.config.MaxMessageLength))
	}

	answer := s.answer(ctx, text)
	s.metrics.ObserveChatReply(string(answer.Source))
	logger.DebugContext(ctx, "Chat reply", "rule", answer.Rule, "source", answer.Source)

	if userID != nil {
		entry := domain.ChatEntry{Message: text, Reply: answer.Reply, Timestamp: s.now().UTC()}
		if err := s.history.Append(ctx, *userID, entry, s.config.HistoryLimit); err != nil {
			logger.WarnContext(ctx, "Failed to save chat turn", "error", err)
		}
	}
	return answer.Reply, nil
}

func (s *chatService) answer(ctx context.Context, text string) assistant.Answer {
	if s.responder != nil {
		reply, err := s.responder.Respond(ctx, text)
		if err == nil {
			return assistant.Answer{Reply: reply, Source: assistant.SourceModel}
		}
		logger.WarnContext(ctx, "Chat model unavailable, answering from FAQ", "error", err)
	}
	return s.faq.Reply(text)
}

func (s *chatService) History(ctx context.Context, userID primitive.ObjectID) ([]domain.ChatEntry, error) {
	h, err := s.history.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if h == nil || h.Messages == nil {
		return []domain.ChatEntry{}, nil
	}
	return h.Messages, nil
}

func (s *chatService) AppendTurn(ctx context.Context, userID primitive.ObjectID, req *domain.ChatTurnRequest) error {
	if err := req.Validate(s.config.MaxEntryLength); err != nil {
		return err
	}
	entry := domain.ChatEntry{Message: req.Message, Reply: req.Reply, Timestamp: s.now().UTC()}
	if err := s.history.Append(ctx, userID, entry, s.config.HistoryLimit); err != nil {
		return fmt.Errorf("failed to save chat turn: %w", err)
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/diagnosis/zayna-hotel/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Subject, err)
	}
	return nil
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("zayna-hotel"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "bytes", len(payload))

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	return n.conn.PublishMsg(msg)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

// Drain lets in-flight handlers finish before closing.
func (n *NATSEventBus) Drain() error {
	return n.conn.Drain()
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

func toMessage(msg *nats.Msg) *Message {
	id := ""
	if msg.Header != nil {
		id = msg.Header.Get(nats.MsgIdHdr)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        id,
	}
}

// MemoryBus delivers events in-process. It backs the API when NATS_URL is unset
// and doubles as the bus in tests.
type MemoryBus struct {
	mu        sync.Mutex
	published []*Message
	handlers  map[string][]func(*Message)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]func(*Message))}
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	msg := &Message{Subject: subject, Data: payload, Timestamp: time.Now(), ID: uuid.NewString()}

	b.mu.Lock()
	b.published = append(b.published, msg)
	handlers := append([]func(*Message){}, b.handlers[subject]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *MemoryBus) Subscribe(subject string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = append(b.handlers[subject], handler)
	return nil
}

func (b *MemoryBus) QueueSubscribe(subject, _ string, handler func(msg *Message)) error {
	return b.Subscribe(subject, handler)
}

// Published returns the messages seen for subject, or all of them when subject is empty.
func (b *MemoryBus) Published(subject string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Message
	for _, m := range b.published {
		if subject == "" || m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

func (b *MemoryBus) Close() error { return nil }

// Event subjects
const (
	GuestRegistered = "guest.registered"
	GuestVerified   = "guest.verified"
	OTPSent         = "otp.sent"

	SpaBookingCreated  = "spa.booking.created"
	DiningOrderCreated = "dining.order.created"

	PaymentIntentCreated = "payment.intent.created"

	ContactReceived = "contact.received"
)

// Event payloads
type GuestRegisteredEvent struct {
	GuestID      string    `json:"guest_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RoomNo       string    `json:"room_no"`
	OTPDelivered bool      `json:"otp_delivered"`
	CreatedAt    time.Time `json:"created_at"`
}

type GuestVerifiedEvent struct {
	GuestID    string    `json:"guest_id"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

type OTPSentEvent struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SpaBookingCreatedEvent struct {
	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	UserName    string    `json:"user_name"`
	ServiceName string    `json:"service_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

type DiningOrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type DiningOrderCreatedEvent struct {
	OrderID           string            `json:"order_id"`
	UserID            string            `json:"user_id"`
	UserEmail         string            `json:"user_email"`
	UserName          string            `json:"user_name"`
	Items             []DiningOrderItem `json:"items"`
	Total             float64           `json:"total"`
	EstimatedDelivery time.Time         `json:"estimated_delivery"`
	CreatedAt         time.Time         `json:"created_at"`
}

type PaymentIntentCreatedEvent struct {
	IntentID string `json:"intent_id"`
	UserID   string `json:"user_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ContactReceivedEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

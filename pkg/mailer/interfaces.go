package mailer

import (
	"context"
	"time"
)

// Service sends the guest-facing emails.
type Service interface {
	SendOTP(ctx context.Context, toEmail, toName, code string, ttl time.Duration) error
	SendSpaConfirmation(ctx context.Context, c SpaConfirmation) error
	SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type SpaConfirmation struct {
	Email       string
	Name        string
	BookingID   string
	ServiceName string
	Date        string
	Time        string
	Price       float64
}

type OrderLine struct {
	Name     string
	Quantity int
	Price    float64
}

type OrderConfirmation struct {
	Email             string
	Name              string
	OrderID           string
	Items             []OrderLine
	Total             float64
	EstimatedDelivery time.Time
}

package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

const sendTimeout = 10 * time.Second

// Templated renders Zayna emails and hands them to a Sender.
type Templated struct {
	sender   Sender
	brand    string
	currency string
}

func New(sender Sender, brand, currency string) *Templated {
	if brand == "" {
		brand = "Zayna Hotel"
	}
	return &Templated{sender: sender, brand: brand, currency: strings.ToUpper(currency)}
}

func (t *Templated) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return t.sender.Send(ctx, msg)
}

func (t *Templated) SendOTP(ctx context.Context, toEmail, toName, code string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	greeting := "Hello"
	if toName != "" {
		greeting = "Hello " + toName
	}

	subject := fmt.Sprintf("Your %s verification code", t.brand)
	text := fmt.Sprintf("%s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not create an account at %s, ignore this email.\n",
		greeting, code, minutes, t.brand)
	body := fmt.Sprintf(`
		<h2>Welcome to %s</h2>
		<p>%s,</p>
		<p>Your verification code is:</p>
		<p style="font-size: 28px; letter-spacing: 6px; color: #b8860b;"><strong>%s</strong></p>
		<p>This code expires in %d minutes.</p>
		<p>If you did not create an account with us, please ignore this email.</p>
	`, html.EscapeString(t.brand), html.EscapeString(greeting), code, minutes)

	return t.send(ctx, Message{To: toEmail, ToName: toName, Subject: subject, Text: text, HTML: body})
}

func (t *Templated) SendSpaConfirmation(ctx context.Context, c SpaConfirmation) error {
	subject := fmt.Sprintf("Your %s spa booking is confirmed", t.brand)
	price := t.money(c.Price)
	text := fmt.Sprintf("Hello %s,\n\nYour %s is booked for %s at %s.\nPrice: %s\nBooking reference: %s\n",
		c.Name, c.ServiceName, c.Date, c.Time, price, c.BookingID)
	body := fmt.Sprintf(`
		<h2>Spa booking confirmed</h2>
		<p>Hello %s,</p>
		<p>Your <strong>%s</strong> is booked for %s at %s.</p>
		<p>Price: %s<br>Booking reference: %s</p>
	`, html.EscapeString(c.Name), html.EscapeString(c.ServiceName), html.EscapeString(c.Date),
		html.EscapeString(c.Time), price, html.EscapeString(c.BookingID))

	return t.send(ctx, Message{To: c.Email, ToName: c.Name, Subject: subject, Text: text, HTML: body})
}

func (t *Templated) SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error {
	subject := fmt.Sprintf("Your %s room service order", t.brand)

	var textLines, htmlLines strings.Builder
	for _, it := range c.Items {
		line := t.money(it.Price * float64(it.Quantity))
		fmt.Fprintf(&textLines, "  %d x %s  %s\n", it.Quantity, it.Name, line)
		fmt.Fprintf(&htmlLines, "<li>%d &times; %s (%s)</li>", it.Quantity, html.EscapeString(it.Name), line)
	}
	eta := c.EstimatedDelivery.Format("15:04")

	text := fmt.Sprintf("Hello %s,\n\nWe have your order %s:\n%s\nTotal: %s\nEstimated delivery: %s\n",
		c.Name, c.OrderID, textLines.String(), t.money(c.Total), eta)
	body := fmt.Sprintf(`
		<h2>Order received</h2>
		<p>Hello %s,</p>
		<ul>%s</ul>
		<p>Total: <strong>%s</strong><br>Estimated delivery: %s<br>Order reference: %s</p>
	`, html.EscapeString(c.Name), htmlLines.String(), t.money(c.Total), eta, html.EscapeString(c.OrderID))

	return t.send(ctx, Message{To: c.Email, ToName: c.Name, Subject: subject, Text: text, HTML: body})
}

func (t *Templated) money(v float64) string {
	if t.currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%s %.2f", t.currency, v)
}

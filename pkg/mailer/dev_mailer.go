package mailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/diagnosis/zayna-hotel/pkg/logger"
)

// DevMailer prints messages instead of sending them and remembers the last few.
type DevMailer struct {
	mu   sync.Mutex
	sent []Message
}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "[DEV MAIL] "+msg.Subject, "to", msg.To, "name", msg.ToName)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: %s\n"+
		"\n"+
		"%s"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.To, msg.ToName, msg.Subject, msg.Text)

	d.mu.Lock()
	d.sent = append(d.sent, msg)
	if len(d.sent) > 50 {
		d.sent = d.sent[len(d.sent)-50:]
	}
	d.mu.Unlock()
	return nil
}

// Sent returns a copy of the retained messages, oldest first.
func (d *DevMailer) Sent() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.sent...)
}

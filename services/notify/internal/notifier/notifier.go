// Package notifier turns booking events into guest confirmation emails.
package notifier

import (
	"context"
	"time"

	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
)

const handleTimeout = 15 * time.Second

type Notifier struct {
	mailer  mailer.Service
	metrics *metrics.Metrics
}

func New(m mailer.Service, met *metrics.Metrics) *Notifier {
	return &Notifier{mailer: m, metrics: met}
}

// Subscribe joins queue on every subject the notifier handles, so each event is mailed once
// however many notifier replicas run.
func (n *Notifier) Subscribe(sub events.Subscriber, queue string) error {
	if err := sub.QueueSubscribe(events.SpaBookingCreated, queue, n.HandleSpaBooking); err != nil {
		return err
	}
	return sub.QueueSubscribe(events.DiningOrderCreated, queue, n.HandleDiningOrder)
}

func (n *Notifier) HandleSpaBooking(msg *events.Message) {
	var ev events.SpaBookingCreatedEvent
	if err := msg.Decode(&ev); err != nil || ev.UserEmail == "" {
		n.skip(msg, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	err := n.mailer.SendSpaConfirmation(ctx, mailer.SpaConfirmation{
		Email:       ev.UserEmail,
		Name:        ev.UserName,
		BookingID:   ev.BookingID,
		ServiceName: ev.ServiceName,
		Date:        ev.Date,
		Time:        ev.Time,
		Price:       ev.Price,
	})
	n.done(msg, "booking_id", ev.BookingID, err)
}

func (n *Notifier) HandleDiningOrder(msg *events.Message) {
	var ev events.DiningOrderCreatedEvent
	if err := msg.Decode(&ev); err != nil || ev.UserEmail == "" {
		n.skip(msg, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	lines := make([]mailer.OrderLine, 0, len(ev.Items))
	for _, it := range ev.Items {
		lines = append(lines, mailer.OrderLine{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}

	err := n.mailer.SendOrderConfirmation(ctx, mailer.OrderConfirmation{
		Email:             ev.UserEmail,
		Name:              ev.UserName,
		OrderID:           ev.OrderID,
		Items:             lines,
		Total:             ev.Total,
		EstimatedDelivery: ev.EstimatedDelivery,
	})
	n.done(msg, "order_id", ev.OrderID, err)
}

func (n *Notifier) skip(msg *events.Message, err error) {
	logger.Warn("Skipping malformed event", "subject", msg.Subject, "event_id", msg.ID, "error", err)
	n.metrics.ObserveEvent(msg.Subject, "malformed")
}

func (n *Notifier) done(msg *events.Message, idKey, id string, err error) {
	if err != nil {
		logger.Error("Failed to send confirmation", "subject", msg.Subject, idKey, id, "error", err)
		n.metrics.ObserveEvent(msg.Subject, "error")
		return
	}
	logger.Info("Confirmation sent", "subject", msg.Subject, idKey, id)
	n.metrics.ObserveEvent(msg.Subject, "sent")
}

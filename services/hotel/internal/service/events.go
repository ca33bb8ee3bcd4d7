package service

import (
	"context"

	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
)

// publish is fire-and-forget: the write already succeeded, so a bus failure is only logged.
func publish(ctx context.Context, bus events.Publisher, m *metrics.Metrics, subject string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
		m.ObserveEvent(subject, "error")
		return
	}
	m.ObserveEvent(subject, "published")
}

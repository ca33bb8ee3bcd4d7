package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by the HTTP layer and the services.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Registrations   prometheus.Counter
	OTPSent         prometheus.Counter
	OTPVerification *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	SpaBookings     prometheus.Counter
	DiningOrders    prometheus.Counter
	PaymentIntents  *prometheus.CounterVec
	ChatReplies     *prometheus.CounterVec
	Events          *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg under namespace.
func New(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_registrations_total",
			Help:      "Guests registered.",
		}),
		OTPSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_sent_total",
			Help:      "One-time codes issued.",
		}),
		OTPVerification: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"outcome"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by session kind and outcome.",
		}, []string{"kind", "outcome"}),
		SpaBookings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spa_bookings_total",
			Help:      "Spa bookings confirmed.",
		}),
		DiningOrders: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dining_orders_total",
			Help:      "Dining orders confirmed.",
		}),
		PaymentIntents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intents_total",
			Help:      "Payment intents requested by outcome.",
		}, []string{"outcome"}),
		ChatReplies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by source (model, faq or fallback).",
		}, []string{"source"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events published by the API or handled by the notifier, by subject and outcome.",
		}, []string{"subject", "outcome"}),
		gatherer: gatherer,
	}
}

// NewDefault registers on the global Prometheus registry.
func NewDefault(namespace string) *Metrics {
	return New(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncRegistration() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) IncOTPSent() {
	if m != nil {
		m.OTPSent.Inc()
	}
}

func (m *Metrics) ObserveVerification(outcome string) {
	if m != nil {
		m.OTPVerification.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveLogin(kind, outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncSpaBooking() {
	if m != nil {
		m.SpaBookings.Inc()
	}
}

func (m *Metrics) IncDiningOrder() {
	if m != nil {
		m.DiningOrders.Inc()
	}
}

func (m *Metrics) ObservePaymentIntent(outcome string) {
	if m != nil {
		m.PaymentIntents.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveChatReply(source string) {
	if m != nil {
		m.ChatReplies.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) ObserveEvent(subject, outcome string) {
	if m != nil {
		m.Events.WithLabelValues(subject, outcome).Inc()
	}
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	mw "github.com/diagnosis/zayna-hotel/pkg/middleware"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
)

type RouterOptions struct {
	Metrics     *metrics.Metrics
	Idempotency mw.IdempotencyStore
	Resolvers   []identity.Resolver
}

// Router builds the full API: shared middleware, identity resolution and every route.
func (h *Handlers) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	if h.config.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.ServiceName("hotel"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.CORS(h.config.Server.AllowedOrigins))
	r.Use(mw.Health)
	r.Use(mw.Metrics(opts.Metrics))
	r.Use(identity.Middleware(opts.Resolvers...))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Use(h.RateLimit("auth"))
			r.Post("/register", h.Register)
			r.Post("/send-otp", h.SendOTP)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Get("/session", h.Session)
		})

		r.With(h.RateLimit("guest_login")).Post("/guest/login", h.GuestLogin)

		r.Get("/spa/services", h.SpaServices)
		r.Get("/dining/menu", h.DiningMenu)
		r.Get("/tourism/attractions", h.TourismAttractions)

		r.Post("/chat", h.Chat)
		r.Post("/contact", h.Contact)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireAccount)

			r.Get("/chat/history", h.ChatHistory)
			r.Post("/chat/history", h.AppendChatHistory)
			r.Post("/payments/create-intent", h.CreatePaymentIntent)
			r.Get("/spa/bookings", h.ListSpaBookings)
			r.Get("/dining/orders", h.ListDiningOrders)

			r.Group(func(r chi.Router) {
				r.Use(mw.Idempotency(opts.Idempotency, scopeByIdentity))
				r.Post("/spa/booking", h.BookSpa)
				r.Post("/dining/order", h.OrderDining)
			})
		})
	})

	return r
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/response"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/catalog"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/service"
)

const maxBodyBytes = 1 << 20

// RateLimiter is the subset of the rate-limit repository the handlers use.
type RateLimiter interface {
	Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
}

type Handlers struct {
	authService    service.AuthService
	bookingService service.BookingService
	chatService    service.ChatService
	paymentService service.PaymentService
	contactService service.ContactService
	catalog        *catalog.Catalog
	rateLimiter    RateLimiter
	config         *config.Config
}

// New wires the HTTP layer. rateLimiter may be nil to disable per-IP limits.
func New(
	authService service.AuthService,
	bookingService service.BookingService,
	chatService service.ChatService,
	paymentService service.PaymentService,
	contactService service.ContactService,
	cat *catalog.Catalog,
	rateLimiter RateLimiter,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:    authService,
		bookingService: bookingService,
		chatService:    chatService,
		paymentService: paymentService,
		contactService: contactService,
		catalog:        cat,
		rateLimiter:    rateLimiter,
		config:         config,
	}
}

// RateLimit applies the configured fixed window per client IP. Limiter errors let the request through.
func (h *Handlers) RateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.rateLimiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := scope + ":" + getClientIP(r)
			allowed, err := h.rateLimiter.Allow(r.Context(), key, h.config.RateLimit.Requests, h.config.RateLimit.Window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP keys limits on the connection address. Forwarding headers are
// applied earlier by RealIP only when the proxy is trusted.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response.JSON(w, statusCode, data)
}

// writeError maps a service error onto the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
		return
	}

	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "code", de.Code, "path", r.URL.Path)
	}
	response.WriteError(w, status, de.Message, de.Code)
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindUpstream:
		return http.StatusBadGateway
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errInvalidJSON = domain.Invalid("Invalid JSON format")

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid("Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return domain.Invalid("Request body is required")
		}
		return errInvalidJSON
	}
	return nil
}

// customer turns the authenticated identity into the owner of a booking or order.
func customer(r *http.Request) (domain.Customer, error) {
	id := identity.FromContext(r.Context())
	if !id.Authenticated() {
		return domain.Customer{}, domain.Unauthorized("Authentication required")
	}
	oid, err := primitive.ObjectIDFromHex(id.ID)
	if err != nil {
		return domain.Customer{}, domain.Unauthorized("Invalid session")
	}
	return domain.Customer{ID: oid, Email: id.Email, Name: id.Name}, nil
}

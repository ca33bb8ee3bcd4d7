package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/pkg/response"
)

// RequestID adds a unique request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging writes one line per request. 5xx responses log at error, 4xx at warn.
func Logging(next http.Handler) http.Handler {
	return middleware.RequestLogger(&requestLogger{})(next)
}

type requestLogger struct{}

func (requestLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{r: r}
}

type requestLogEntry struct {
	r *http.Request
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	route := e.r.URL.Path
	if rctx := chi.RouteContext(e.r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}

	logger.WithContext(e.r.Context()).Log(e.r.Context(), level, "HTTP request completed",
		"method", e.r.Method,
		"route", route,
		"status", status,
		"bytes", bytes,
		"elapsed_ms", elapsed.Milliseconds(),
		"remote_addr", e.r.RemoteAddr,
	)
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	logger.ErrorContext(e.r.Context(), "HTTP request panic",
		"panic", v,
		"stack", string(stack),
		"route", e.r.URL.Path,
	)
}

// Recover turns a handler panic into a JSON 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "Panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "Internal server error",
					"code":    "INTERNAL_ERROR",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows the website origins to call the API with credentials (cookies).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// SecurityHeaders sets the headers the website sends on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// ServiceName adds service name to context for logging
func ServiceName(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), logger.ServiceKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Metrics records request counts and latency by chi route pattern and serves /metrics.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	exposition := m.Handler()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				exposition.ServeHTTP(w, r)
				return
			}
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// Health provides health check endpoint
func Health(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdempotencyStore caches successful POST responses by key. Reserve marks a key
// as in flight and reports false when another request already holds it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyLockTTL = 30 * time.Second
)

type storedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the stored response when a POST repeats an Idempotency-Key.
// Keys are scoped by path and by scope(r), typically the caller identity.
// A repeat that arrives while the first request is still running gets 409.
func Idempotency(store IdempotencyStore, scope func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			owner := ""
			if scope != nil {
				owner = scope(r)
			}
			sum := sha256.Sum256([]byte(owner + "|" + r.URL.Path + "|" + key))
			hashedKey := fmt.Sprintf("idempotency:%x", sum)
			lockKey := hashedKey + ":inflight"

			if replayStored(w, r, store, hashedKey) {
				return
			}

			ctx := context.WithoutCancel(r.Context())
			reserved, err := store.Reserve(ctx, lockKey, idempotencyLockTTL)
			switch {
			case err != nil:
				logger.WarnContext(r.Context(), "Idempotency reservation failed", "error", err)
			case !reserved:
				// the holder may have finished between the lookup and the reservation
				if replayStored(w, r, store, hashedKey) {
					return
				}
				response.WriteError(w, http.StatusConflict, "A request with this Idempotency-Key is already in progress", response.CodeConflict)
				return
			default:
				defer func() {
					if err := store.Release(ctx, lockKey); err != nil {
						logger.WarnContext(ctx, "Failed to release idempotency key", "error", err)
					}
				}()
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode >= 200 && recorder.statusCode < 300 && len(recorder.body) > 0 {
				raw, _ := json.Marshal(storedResponse{Status: recorder.statusCode, Body: string(recorder.body)})
				if err := store.Set(ctx, hashedKey, string(raw), idempotencyTTL); err != nil {
					logger.WarnContext(ctx, "Failed to store idempotent response", "error", err)
				}
			}
		})
	}
}

// replayStored writes the cached response for key, with its original status.
func replayStored(w http.ResponseWriter, r *http.Request, store IdempotencyStore, key string) bool {
	existing, err := store.Get(r.Context(), key)
	if err != nil || existing == "" {
		return false
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(existing), &stored); err != nil || stored.Status == 0 {
		logger.WarnContext(r.Context(), "Discarding unreadable idempotent response", "error", err)
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	w.Write([]byte(stored.Body))
	return true
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}

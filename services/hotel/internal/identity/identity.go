// Package identity unifies the account session and the legacy guest cookie
// behind one request-scoped Identity.
package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/response"
)

type Kind string

const (
	KindAnonymous   Kind = "anonymous"
	KindAccount     Kind = "account"
	KindGuestCookie Kind = "guest_cookie"
)

type Identity struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"-"`
	GuestID   string    `json:"guestId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// Authenticated is true only for a verified account session.
func (i *Identity) Authenticated() bool {
	return i != nil && i.Kind == KindAccount
}

// LoggedIn is true for any recognised caller, including the display-only guest cookie.
func (i *Identity) LoggedIn() bool {
	return i != nil && i.Kind != KindAnonymous
}

var anonymous = &Identity{Kind: KindAnonymous}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext never returns nil; callers without an identity get the anonymous one.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(ctxKey{}).(*Identity); ok && id != nil {
		return id
	}
	return anonymous
}

// Resolver inspects a request. It returns nil, nil when its credential is absent or unusable.
type Resolver interface {
	Resolve(r *http.Request) (*Identity, error)
}

// Middleware attaches the first identity any resolver yields.
func Middleware(resolvers ...Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := anonymous
			for _, res := range resolvers {
				got, err := res.Resolve(r)
				if err != nil {
					logger.WarnContext(r.Context(), "Identity resolver failed", "error", err)
					continue
				}
				if got != nil {
					id = got
					break
				}
			}

			ctx := WithIdentity(r.Context(), id)
			if id.Authenticated() {
				ctx = context.WithValue(ctx, logger.UserIDKey, id.ID)
			}
			if id.GuestID != "" {
				ctx = context.WithValue(ctx, logger.GuestIDKey, id.GuestID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount rejects callers without an authenticated session.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			response.Unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

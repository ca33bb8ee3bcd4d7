package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/diagnosis/zayna-hotel/pkg/auth"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
)

// RevocationChecker reports whether a session id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionResolver accepts the session_token cookie or an Authorization bearer token.
type SessionResolver struct {
	Secret      string
	Revocations RevocationChecker
}

func (s SessionResolver) Resolve(r *http.Request) (*Identity, error) {
	token := BearerToken(r)
	if token == "" {
		if c, err := r.Cookie(auth.SessionCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return nil, nil
	}

	claims, err := auth.Parse(token, s.Secret)
	if err != nil {
		logger.DebugContext(r.Context(), "Rejected session token", "error", err)
		return nil, nil
	}

	if s.Revocations != nil {
		revoked, err := s.Revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			// Without the revocation list the token cannot be trusted.
			return nil, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return nil, nil
		}
	}

	id := &Identity{
		Kind:      KindAccount,
		ID:        claims.Sub,
		GuestID:   claims.GuestID,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// GuestCookieResolver reads the unsigned guest_session cookie. The result is for display only.
type GuestCookieResolver struct{}

func (GuestCookieResolver) Resolve(r *http.Request) (*Identity, error) {
	c, err := r.Cookie(auth.GuestCookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	g, err := auth.DecodeGuestCookie(c.Value)
	if err != nil {
		return nil, nil
	}
	return &Identity{
		Kind:    KindGuestCookie,
		GuestID: g.GuestID,
		Email:   g.Email,
		Name:    g.Name,
	}, nil
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

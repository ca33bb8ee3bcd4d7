package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"
)

const (
	GuestCookieName   = "guest_session"
	SessionCookieName = "session_token"
)

// GuestCookie is the legacy guest-panel cookie. It is unsigned and readable by
// page scripts, so nothing server-side may treat it as proof of identity.
type GuestCookie struct {
	GuestID string `json:"guestId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Encode escapes the JSON the way encodeURIComponent does, so page scripts can
// read it back with decodeURIComponent. Spaces become %20, never '+'.
func (g GuestCookie) Encode() (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return url.PathEscape(string(b)), nil
}

func DecodeGuestCookie(value string) (*GuestCookie, error) {
	raw, err := url.PathUnescape(value)
	if err != nil {
		return nil, err
	}
	var g GuestCookie
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	if g.GuestID == "" {
		return nil, errors.New("guest cookie missing guestId")
	}
	return &g, nil
}

// NewGuestCookie builds the lax, script-visible guest_session cookie.
func NewGuestCookie(g GuestCookie, ttl time.Duration, secure bool) (*http.Cookie, error) {
	value, err := g.Encode()
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     GuestCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// NewSessionCookie carries the signed session token; scripts cannot read it.
func NewSessionCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie clears name on the client.
func ExpiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: name == SessionCookieName,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

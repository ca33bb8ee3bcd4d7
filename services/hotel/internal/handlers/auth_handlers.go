package handlers

import (
	"net/http"
	"time"

	"github.com/diagnosis/zayna-hotel/pkg/auth"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
)

// Register creates an unverified guest and emails the first code.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	g := res.Guest
	data := map[string]interface{}{
		"guestId":      g.GuestID,
		"name":         g.Name,
		"email":        g.Email,
		"phone":        g.Phone,
		"roomNo":       g.RoomNo,
		"otpDelivered": res.OTPDelivered,
	}
	if res.DevOTP != "" {
		data["devOtp"] = res.DevOTP
	}

	message := "Registration successful. Please check your email for the verification code."
	if !res.OTPDelivered {
		message = "Registration successful, but we could not send the verification code. Please request a new one."
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.authService.SendOTP(r.Context(), &req); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "OTP sent successfully to your email",
	})
}

func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.authService.VerifyOTP(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email verified successfully",
		"data": map[string]interface{}{
			"guestId":    g.GuestID,
			"name":       g.Name,
			"email":      g.Email,
			"roomNo":     g.RoomNo,
			"isVerified": g.IsVerified,
		},
	})
}

// GuestLogin serves the legacy guest panel and sets the display cookie.
func (h *Handlers) GuestLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.GuestLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := h.authService.GuestLogin(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cookie, err := auth.NewGuestCookie(auth.GuestCookie{
		GuestID: g.GuestID,
		Email:   g.Email,
		Name:    g.Name,
	}, h.config.Auth.GuestCookieTTL, h.config.Auth.SecureCookies)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, cookie)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"data": map[string]interface{}{
			"guestId":   g.GuestID,
			"name":      g.Name,
			"loginTime": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Login issues the account session used by every authenticated route.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.AccountLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(sess.Token, h.config.Auth.SessionTTL, h.config.Auth.SecureCookies))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    sess,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	if id.Authenticated() {
		if err := h.authService.Logout(r.Context(), id.SessionID, id.ExpiresAt); err != nil {
			logger.ErrorContext(r.Context(), "Failed to revoke session", "error", err)
		}
	}

	http.SetCookie(w, auth.ExpiredCookie(auth.SessionCookieName, h.config.Auth.SecureCookies))
	http.SetCookie(w, auth.ExpiredCookie(auth.GuestCookieName, h.config.Auth.SecureCookies))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Session reports who the caller is. It is the one login signal the website reads.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())

	body := map[string]interface{}{
		"loggedIn":      id.LoggedIn(),
		"authenticated": id.Authenticated(),
		"identity":      nil,
	}
	if id.LoggedIn() {
		body["identity"] = id
	}
	writeJSON(w, http.StatusOK, body)
}

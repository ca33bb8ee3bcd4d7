package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUpstream
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a user-facing failure. Message is safe to show; Err is for logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is compares kind, code and message, so wrapped copies of the sentinels below still match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Invalid(msg string) *Error      { return newErr(KindInvalid, "INVALID_INPUT", msg) }
func Unauthorized(msg string) *Error { return newErr(KindUnauthorized, "UNAUTHORIZED", msg) }
func Forbidden(msg string) *Error    { return newErr(KindForbidden, "FORBIDDEN", msg) }
func NotFound(msg string) *Error     { return newErr(KindNotFound, "NOT_FOUND", msg) }
func Conflict(msg string) *Error     { return newErr(KindConflict, "CONFLICT", msg) }
func RateLimited(msg string) *Error  { return newErr(KindRateLimited, "RATE_LIMIT_EXCEEDED", msg) }
func Unavailable(msg string) *Error  { return newErr(KindUnavailable, "SERVICE_UNAVAILABLE", msg) }

// Internal is a 500 whose message is still fit for the client.
func Internal(msg string) *Error { return newErr(KindInternal, "INTERNAL_ERROR", msg) }

// WithCode overrides the machine-readable code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Upstream reports a failing third party (payment provider, mail relay).
func Upstream(code, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: msg, Err: err}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns KindInternal for anything that is not a *Error.
func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrEmailExists        = Conflict("An account with this email already exists").WithCode("EMAIL_EXISTS")
	ErrGuestNotFound      = NotFound("User not found")
	ErrAlreadyVerified    = Invalid("Account already verified").WithCode("ALREADY_VERIFIED")
	ErrOTPExpired         = Invalid("OTP has expired. Please request a new one.").WithCode("OTP_EXPIRED")
	ErrTooManyAttempts    = RateLimited("Too many failed attempts. Please request a new OTP.").WithCode("TOO_MANY_ATTEMPTS")
	ErrInvalidOTP         = Invalid("Invalid OTP")
	ErrInvalidOTPFormat   = Invalid("Invalid OTP format")
	ErrInvalidCredentials = Unauthorized("Invalid guest ID or password")
	ErrNotVerified        = Forbidden("Please verify your email before logging in").WithCode("NOT_VERIFIED")
	ErrOrderMismatch      = Invalid("Order total mismatch").WithCode("PRICE_MISMATCH")
	ErrBookingMismatch    = Invalid("Booking price mismatch").WithCode("PRICE_MISMATCH")
	ErrPaymentsDisabled   = Unavailable("Payment service not configured")
	ErrPaymentFailed      = Upstream("PAYMENT_FAILED", "Failed to create payment intent", nil)
	ErrOTPDelivery        = Internal("Failed to send OTP email")
	ErrUnknownService     = Invalid("Unknown spa service")
	ErrUnknownMenuItem    = Invalid("Unknown menu item")
)

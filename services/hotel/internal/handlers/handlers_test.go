package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosis/zayna-hotel/pkg/auth"
	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/assistant"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/catalog"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/handlers"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/identity"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/payments"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository/repotest"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/service"
)

func TestMain(m *testing.M) {
	logger.SetDefault(logger.New(io.Discard, "error"))
	os.Exit(m.Run())
}

// ---------- Mocks ----------

type mockMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mockMailer) SendOTP(_ context.Context, toEmail, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[toEmail] = code
	return nil
}

func (m *mockMailer) SendSpaConfirmation(context.Context, mailer.SpaConfirmation) error {
	return nil
}

func (m *mockMailer) SendOrderConfirmation(context.Context, mailer.OrderConfirmation) error {
	return nil
}

func (m *mockMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type mockProvider struct {
	calls int
}

func (p *mockProvider) CreateIntent(_ context.Context, params domain.PaymentIntentParams) (*domain.PaymentIntent, error) {
	p.calls++
	return &domain.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

// ---------- Harness ----------

const jwtSecret = "handler-test-secret"

type harness struct {
	t       *testing.T
	handler http.Handler
	store   *repotest.Store
	mailer  *mockMailer
	bus     *events.MemoryBus
}

type harnessOpts struct {
	provider   payments.Provider
	rateLimit  int
	trustProxy bool
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			TrustProxy:     opts.trustProxy,
		},
		Mongo:  config.MongoConfig{URI: "mongodb://localhost:27017"},
		Auth: config.AuthConfig{
			JWTSecret:      jwtSecret,
			SessionTTL:     time.Hour,
			GuestCookieTTL: 7 * 24 * time.Hour,
			OTPTTL:         5 * time.Minute,
			OTPCooldown:    60 * time.Second,
		},
		RateLimit: config.RateLimitConfig{Requests: opts.rateLimit, Window: time.Minute},
		Email:     config.EmailConfig{DevMode: true},
		Chat:      config.ChatConfig{HistoryLimit: 3, MaxMessageLength: 1000, MaxEntryLength: 10000},
	}

	store := repotest.NewStore()
	m := &mockMailer{codes: make(map[string]string)}
	bus := events.NewMemoryBus()
	cat := catalog.MustDefault()
	faq, err := assistant.New(assistant.WithPicker(func(int) int { return 0 }))
	require.NoError(t, err)

	hashing := service.Hashing{
		Password:   &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		BcryptCost: bcrypt.MinCost,
	}

	authSvc := service.NewAuthService(
		store.GuestRepository(), store.OTPRepository(), store.CooldownRepository(), store.SessionRepository(),
		m, bus, nil, cfg, hashing,
	)
	bookingSvc := service.NewBookingService(
		store.SpaBookingRepository(), store.DiningOrderRepository(), store.GuestRepository(), cat, bus, nil,
	)
	chatSvc := service.NewChatService(faq, store.ChatRepository(), nil, cfg.Chat)
	paymentSvc := service.NewPaymentService(opts.provider, "aed", bus, nil)
	contactSvc := service.NewContactService(store.ContactRepository(), bus, nil)

	var limiter handlers.RateLimiter
	if opts.rateLimit > 0 {
		limiter = repotest.Limiter{Store: store, Limit: opts.rateLimit}
	}

	h := handlers.New(authSvc, bookingSvc, chatSvc, paymentSvc, contactSvc, cat, limiter, cfg)
	router := h.Router(handlers.RouterOptions{
		Idempotency: store,
		Resolvers: []identity.Resolver{
			identity.SessionResolver{Secret: jwtSecret, Revocations: store.SessionRepository()},
			identity.GuestCookieResolver{},
		},
	})

	return &harness{t: t, handler: router, store: store, mailer: m, bus: bus}
}

type reqOpt func(r *http.Request)

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func (h *harness) do(method, path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postJSON(path string, body interface{}, opts ...reqOpt) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, path, body, opts...)
}

func (h *harness) get(path string, opts ...reqOpt) *httptest.ResponseRecorder {
	return h.do(http.MethodGet, path, nil, opts...)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var registerBody = map[string]string{
	"name": "A", "email": "a@b.com", "phone": "1234567890", "roomNo": "101", "password": "secret1",
}

func (h *harness) registerAndVerify() {
	h.t.Helper()
	rec := h.postJSON("/api/auth/register", registerBody)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": h.mailer.code("a@b.com")})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (h *harness) login() string {
	h.t.Helper()
	rec := h.postJSON("/api/auth/login", map[string]string{"email": "a@b.com", "password": "secret1"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	c := cookieNamed(rec, auth.SessionCookieName)
	require.NotNil(h.t, c)
	return c.Value
}

// ---------- Auth ----------

func TestRegister(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	rec := h.postJSON("/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Regexp(t, `^GUEST101_\d{4}$`, data["guestId"])
	assert.Equal(t, "a@b.com", data["email"])
	assert.Equal(t, true, data["otpDelivered"])
	assert.Equal(t, h.mailer.code("a@b.com"), data["devOtp"])
	assert.NotContains(t, rec.Body.String(), "secret1")
	assert.Len(t, h.bus.Published("guest.registered"), 1)

	rec = h.postJSON("/api/auth/register", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", decode(t, rec)["code"])
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	tests := []struct {
		name string
		body interface{}
	}{
		{"empty body", ""},
		{"malformed json", "{"},
		{"missing fields", map[string]string{"email": "a@b.com"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "phone": "1234567890", "roomNo": "101", "password": "secret1"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.com", "phone": "1234567890", "roomNo": "101", "password": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postJSON("/api/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, false, decode(t, rec)["success"])
		})
	}
	assert.Empty(t, h.store.Guests)
}

func TestSendOTPCooldown(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	require.Equal(t, http.StatusCreated, h.postJSON("/api/auth/register", registerBody).Code)

	// registration arms the cooldown
	rec := h.postJSON("/api/auth/send-otp", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	delete(h.store.Cooldowns, "a@b.com")
	rec = h.postJSON("/api/auth/send-otp", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.postJSON("/api/auth/send-otp", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Regexp(t, `Please wait \d+s`, decode(t, rec)["error"])

	rec = h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyOTP(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	require.Equal(t, http.StatusCreated, h.postJSON("/api/auth/register", registerBody).Code)
	code := h.mailer.code("a@b.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	rec := h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": wrong})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid OTP", decode(t, rec)["error"])

	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["isVerified"])
	assert.NotContains(t, data, "password")

	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_VERIFIED", decode(t, rec)["code"])
}

func TestVerifyOTPExpiredAndLocked(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	require.Equal(t, http.StatusCreated, h.postJSON("/api/auth/register", registerBody).Code)
	code := h.mailer.code("a@b.com")

	h.store.UpdateGuest("a@b.com", func(g *domain.Guest) {
		past := time.Now().Add(-time.Minute)
		g.OTPExpiresAt = &past
	})
	rec := h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_EXPIRED", decode(t, rec)["code"])

	h.store.UpdateGuest("a@b.com", func(g *domain.Guest) {
		future := time.Now().Add(time.Minute)
		g.OTPExpiresAt = &future
		g.OTPAttempts = 3
	})
	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": code})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, h.store.GuestByEmail("a@b.com").IsVerified)
}

func TestGuestLogin(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	rec := h.postJSON("/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	guestID := decode(t, rec)["data"].(map[string]interface{})["guestId"].(string)

	rec = h.postJSON("/api/guest/login", map[string]string{"guestId": guestID, "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_VERIFIED", decode(t, rec)["code"])

	rec = h.postJSON("/api/auth/verify-otp", map[string]string{"email": "a@b.com", "otp": h.mailer.code("a@b.com")})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.postJSON("/api/guest/login", map[string]string{"guestId": guestID, "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.postJSON("/api/guest/login", map[string]string{"userId": guestID, "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, guestID, data["guestId"])
	assert.NotEmpty(t, data["loginTime"])

	c := cookieNamed(rec, auth.GuestCookieName)
	require.NotNil(t, c)
	assert.False(t, c.HttpOnly)

	// the display cookie never authenticates
	rec = h.get("/api/auth/session", withCookie(c))
	body := decode(t, rec)
	assert.Equal(t, true, body["loggedIn"])
	assert.Equal(t, false, body["authenticated"])

	rec = h.postJSON("/api/spa/booking", map[string]interface{}{}, withCookie(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgedGuestCookieIsRejected(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	forged, err := auth.NewGuestCookie(auth.GuestCookie{GuestID: "GUEST101_0001", Email: "x@y.com", Name: "X"}, time.Hour, false)
	require.NoError(t, err)

	rec := h.get("/api/chat/history", withCookie(forged))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decode(t, rec)["error"])
}

func TestLoginSessionLogout(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()

	rec := h.postJSON("/api/auth/login", map[string]string{"email": "a@b.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := h.login()

	rec = h.get("/api/auth/session", withBearer(token))
	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	ident := body["identity"].(map[string]interface{})
	assert.Equal(t, "a@b.com", ident["email"])

	rec = h.get("/api/chat/history", withCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.postJSON("/api/auth/logout", nil, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	c := cookieNamed(rec, auth.SessionCookieName)
	require.NotNil(t, c)
	assert.True(t, c.MaxAge < 0)
	assert.Len(t, h.store.Revoked, 1)

	rec = h.get("/api/chat/history", withBearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.get("/api/auth/session", withBearer(token))
	assert.Equal(t, false, decode(t, rec)["authenticated"])
}

func TestRevocationStoreDownFailsClosed(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	h.store.FailRevocation = assert.AnError
	rec := h.get("/api/chat/history", withBearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	h := newHarness(t, harnessOpts{rateLimit: 2})

	for i := 0; i < 2; i++ {
		rec := h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decode(t, rec)["code"])

	// catalog routes are not limited
	assert.Equal(t, http.StatusOK, h.get("/api/spa/services").Code)
}

func TestAuthRateLimitIgnoresForwardedFor(t *testing.T) {
	h := newHarness(t, harnessOpts{rateLimit: 2})

	for i := 0; i < 3; i++ {
		rec := h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"},
			withHeader("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i)),
			withHeader("X-Real-IP", fmt.Sprintf("192.0.2.%d", i)))
		if i < 2 {
			assert.Equal(t, http.StatusNotFound, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, "rotating forwarding headers must not reset the limit")
	}
}

func TestAuthRateLimitTrustedProxy(t *testing.T) {
	h := newHarness(t, harnessOpts{rateLimit: 1, trustProxy: true})

	rec := h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"},
		withHeader("X-Forwarded-For", "198.51.100.1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// a different forwarded client gets its own window behind a trusted proxy
	rec = h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"},
		withHeader("X-Forwarded-For", "198.51.100.2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.postJSON("/api/auth/send-otp", map[string]string{"email": "nobody@b.com"},
		withHeader("X-Forwarded-For", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// ---------- Catalog ----------

func TestCatalogEndpoints(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	rec := h.get("/api/spa/services")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode(t, rec)["data"].([]interface{})
	assert.NotEmpty(t, all)

	rec = h.get("/api/spa/services?category=massage")
	massage := decode(t, rec)["data"].([]interface{})
	assert.NotEmpty(t, massage)
	assert.Less(t, len(massage), len(all))
	for _, s := range massage {
		assert.Equal(t, "Massage", s.(map[string]interface{})["category"])
	}

	rec = h.get("/api/dining/menu")
	assert.NotEmpty(t, decode(t, rec)["data"])

	rec = h.get("/api/tourism/attractions?category=nothing-here")
	assert.Empty(t, decode(t, rec)["data"])
}

// ---------- Bookings ----------

func spaBooking() map[string]interface{} {
	return map[string]interface{}{
		"serviceId":       2,
		"serviceName":     "Deep Tissue Massage",
		"date":            "2026-12-01",
		"time":            "10:00",
		"duration":        "60 minutes",
		"price":           320,
		"paymentIntentId": "pi_test",
	}
}

func TestBookSpa(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	rec := h.postJSON("/api/spa/booking", spaBooking())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.postJSON("/api/spa/booking", spaBooking(), withBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.NotEmpty(t, body["bookingId"])
	booking := body["booking"].(map[string]interface{})
	assert.Equal(t, "confirmed", booking["status"])
	assert.Equal(t, "a@b.com", booking["userEmail"])
	assert.Len(t, h.bus.Published("spa.booking.created"), 1)

	mismatch := spaBooking()
	mismatch["price"] = 10
	rec = h.postJSON("/api/spa/booking", mismatch, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PRICE_MISMATCH", decode(t, rec)["code"])

	rec = h.get("/api/spa/bookings", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)
}

func TestBookSpaIdempotentReplay(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	first := h.postJSON("/api/spa/booking", spaBooking(), withBearer(token), withHeader("Idempotency-Key", "k-1"))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := h.postJSON("/api/spa/booking", spaBooking(), withBearer(token), withHeader("Idempotency-Key", "k-1"))
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode(t, first)["bookingId"], decode(t, second)["bookingId"])
	assert.Len(t, h.store.SpaBookings, 1)
	assert.Empty(t, h.store.Inflight)
}

func TestOrderDining(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	order := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": 1, "name": "Wagyu Beef Tenderloin", "price": 285, "quantity": 2},
		},
		"total":           570,
		"paymentIntentId": "pi_test",
	}
	rec := h.postJSON("/api/dining/order", order, withBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["orderId"])

	order["total"] = 500
	rec = h.postJSON("/api/dining/order", order, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Order total mismatch", decode(t, rec)["error"])

	rec = h.get("/api/dining/orders", withBearer(token))
	assert.Len(t, decode(t, rec)["data"], 1)
	assert.Len(t, h.store.DiningOrders, 1)
}

// ---------- Payments ----------

func TestCreatePaymentIntent(t *testing.T) {
	provider := &mockProvider{}
	h := newHarness(t, harnessOpts{provider: provider})
	h.registerAndVerify()
	token := h.login()

	rec := h.postJSON("/api/payments/create-intent", map[string]interface{}{"amount": 320})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.postJSON("/api/payments/create-intent", map[string]interface{}{"amount": 0}, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.postJSON("/api/payments/create-intent", map[string]interface{}{"amount": 320}, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "pi_test_secret", body["clientSecret"])
	assert.Equal(t, "pi_test", body["paymentIntentId"])
	assert.Equal(t, 1, provider.calls)
}

func TestCreatePaymentIntentDisabled(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	rec := h.postJSON("/api/payments/create-intent", map[string]interface{}{"amount": 320}, withBearer(token))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ---------- Chat ----------

func TestChat(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	rec := h.postJSON("/api/chat", map[string]interface{}{"message": "What time is check-in?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["reply"], "Check-in starts at 2:00 PM")
	assert.Empty(t, h.store.Chats)

	rec = h.postJSON("/api/chat", map[string]interface{}{"message": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["reply"])

	rec = h.postJSON("/api/chat", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["reply"])
}

func TestChatHistoryCap(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.registerAndVerify()
	token := h.login()

	rec := h.get("/api/chat/history", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode(t, rec)["data"].(map[string]interface{})["messages"]
	assert.Empty(t, messages)

	rec = h.postJSON("/api/chat", map[string]interface{}{"message": "wifi password?"}, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, msg := range []string{"one", "two", "three"} {
		rec = h.postJSON("/api/chat/history", map[string]string{"message": msg, "reply": "ok"}, withBearer(token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = h.postJSON("/api/chat/history", map[string]string{"message": "", "reply": "ok"}, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.get("/api/chat/history", withBearer(token))
	list := decode(t, rec)["data"].(map[string]interface{})["messages"].([]interface{})
	require.Len(t, list, 3)
	assert.Equal(t, "one", list[0].(map[string]interface{})["message"])
	assert.Equal(t, "three", list[2].(map[string]interface{})["message"])
}

// ---------- Contact & health ----------

func TestContact(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	rec := h.postJSON("/api/contact", map[string]string{"name": "A", "email": "a@b.com", "message": "Hello there"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, h.store.Contacts, 1)

	rec = h.postJSON("/api/contact", map[string]string{"name": "A", "email": "bad", "message": "Hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	rec := h.get("/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	env := body["env"].(map[string]interface{})
	assert.Equal(t, true, env["mongoConfigured"])
	assert.Equal(t, false, env["stripeConfigured"])

	rec = h.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

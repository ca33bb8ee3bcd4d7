package service

import (
	"context"
	"errors"
	"regexp"
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
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository/repotest"
)

var fastHashing = Hashing{
	Password:   &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	BcryptCost: bcrypt.MinCost,
}

type mockMailer struct {
	mu      sync.Mutex
	codes   map[string]string
	sendErr error
	spa     int
	orders  int
}

func newMockMailer() *mockMailer {
	return &mockMailer{codes: make(map[string]string)}
}

func (m *mockMailer) SendOTP(_ context.Context, toEmail, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.codes[toEmail] = code
	return nil
}

func (m *mockMailer) SendSpaConfirmation(context.Context, mailer.SpaConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spa++
	return m.sendErr
}

func (m *mockMailer) SendOrderConfirmation(context.Context, mailer.OrderConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders++
	return m.sendErr
}

func (m *mockMailer) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type authFixture struct {
	svc    *authService
	store  *repotest.Store
	mailer *mockMailer
	bus    *events.MemoryBus
	clock  *clock
	cfg    *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:   "test-secret",
			SessionTTL:  time.Hour,
			OTPTTL:      5 * time.Minute,
			OTPCooldown: 60 * time.Second,
		},
		Email: config.EmailConfig{DevMode: true},
		Chat:  config.ChatConfig{HistoryLimit: 3, MaxMessageLength: 1000, MaxEntryLength: 10000},
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := repotest.NewStore()
	c := &clock{t: time.Now().UTC().Truncate(time.Second)}
	store.Now = c.now
	m := newMockMailer()
	bus := events.NewMemoryBus()
	cfg := testConfig()

	svc := NewAuthService(
		store.GuestRepository(),
		store.OTPRepository(),
		store.CooldownRepository(),
		store.SessionRepository(),
		m, bus, nil, cfg, fastHashing,
	).(*authService)
	svc.now = c.now

	return &authFixture{svc: svc, store: store, mailer: m, bus: bus, clock: c, cfg: cfg}
}

func registerReq() *domain.RegisterRequest {
	return &domain.RegisterRequest{
		Name: "A", Email: "a@b.com", Phone: "1234567890", RoomNo: "101", Password: "secret1",
	}
}

func (f *authFixture) register(t *testing.T) *domain.RegisterResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	return res
}

func (f *authFixture) verify(t *testing.T) {
	t.Helper()
	_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{
		Email: "a@b.com", OTP: f.mailer.lastCode("a@b.com"),
	})
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t)

	assert.Regexp(t, regexp.MustCompile(`^GUEST101_\d{4}$`), res.Guest.GuestID)
	assert.True(t, res.OTPDelivered)
	assert.Equal(t, f.mailer.lastCode("a@b.com"), res.DevOTP)
	assert.False(t, res.Guest.IsVerified)

	stored := f.store.GuestByEmail("a@b.com")
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.OTPHash), []byte(res.DevOTP)))
	ok, err := argon2id.ComparePasswordAndHash("secret1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, f.clock.t.Add(5*time.Minute), *stored.OTPExpiresAt)

	assert.Len(t, f.store.OTPIssues, 1)
	assert.Contains(t, f.store.Cooldowns, "a@b.com")
	assert.Len(t, f.bus.Published(events.GuestRegistered), 1)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	tests := []struct {
		name   string
		mutate func(r *domain.RegisterRequest)
		want   string
	}{
		{"missing name", func(r *domain.RegisterRequest) { r.Name = "" }, "All fields are required"},
		{"bad email", func(r *domain.RegisterRequest) { r.Email = "nope" }, "Invalid email format"},
		{"short phone", func(r *domain.RegisterRequest) { r.Phone = "12345" }, "Phone must be at least 10 digits"},
		{"short password", func(r *domain.RegisterRequest) { r.Password = "abc" }, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerReq()
			tt.mutate(req)
			_, err := f.svc.Register(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
			de, _ := domain.AsError(err)
			assert.Equal(t, tt.want, de.Message)
		})
	}
	assert.Empty(t, f.store.Guests)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	req := registerReq()
	req.Email = "  A@B.COM "
	_, err := f.svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegisterLostRaceIsConflict(t *testing.T) {
	f := newAuthFixture(t)
	f.store.FailGuestCreate = repository.ErrDuplicateEmail

	_, err := f.svc.Register(context.Background(), registerReq())
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegisterRetriesGuestIDCollision(t *testing.T) {
	f := newAuthFixture(t)
	f.store.FailGuestCreate = repository.ErrDuplicateGuestID

	res, err := f.svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	assert.Regexp(t, `^GUEST101_\d{4}$`, res.Guest.GuestID)
}

func TestRegisterMailFailureIsNotFatal(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.sendErr = errors.New("smtp down")

	res, err := f.svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	assert.False(t, res.OTPDelivered)
	assert.NotEmpty(t, res.DevOTP)
}

func TestSendOTPCooldown(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	first := f.mailer.lastCode("a@b.com")

	f.clock.advance(15 * time.Second)
	err := f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"})
	require.Error(t, err)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
	de, _ := domain.AsError(err)
	assert.Equal(t, "Please wait 45s before requesting a new code", de.Message)

	f.clock.advance(46 * time.Second)
	require.NoError(t, f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"}))
	assert.Len(t, f.store.OTPIssues, 2)
	assert.Len(t, f.bus.Published(events.OTPSent), 1)

	// the first code no longer verifies once a new one is issued, unless they collide
	if second := f.mailer.lastCode("a@b.com"); second != first {
		_, err = f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "a@b.com", OTP: first})
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	}
}

func TestSendOTPResetsAttempts(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.store.UpdateGuest("a@b.com", func(g *domain.Guest) { g.OTPAttempts = 3 })

	f.clock.advance(time.Minute)
	require.NoError(t, f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"}))
	assert.Equal(t, 0, f.store.GuestByEmail("a@b.com").OTPAttempts)
	f.verify(t)
}

func TestSendOTPErrors(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "ghost@b.com"})
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)

	err = f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "not-an-email"})
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))

	f.register(t)
	f.verify(t)
	f.clock.advance(time.Minute)
	err = f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestSendOTPMailFailureReleasesCooldown(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.clock.advance(time.Minute)
	f.mailer.sendErr = errors.New("smtp down")

	err := f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"})
	assert.ErrorIs(t, err, domain.ErrOTPDelivery)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.NotContains(t, f.store.Cooldowns, "a@b.com")
}

func TestSendOTPCooldownStoreDownStillSends(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.store.FailCooldown = errors.New("redis down")

	assert.NoError(t, f.svc.SendOTP(context.Background(), &domain.SendOTPRequest{Email: "a@b.com"}))
}

func TestVerifyOTP(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	g, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{
		Email: "A@B.com", OTP: f.mailer.lastCode("a@b.com"),
	})
	require.NoError(t, err)
	assert.True(t, g.IsVerified)
	assert.Empty(t, g.OTPHash)

	stored := f.store.GuestByEmail("a@b.com")
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.OTPExpiresAt)
	assert.Empty(t, f.store.OTPIssues)
	assert.Len(t, f.bus.Published(events.GuestVerified), 1)

	_, err = f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "a@b.com", OTP: "123456"})
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestVerifyOTPFormat(t *testing.T) {
	f := newAuthFixture(t)
	for _, code := range []string{"12345", "1234567", "abcdef", "012345"} {
		_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "a@b.com", OTP: code})
		assert.ErrorIs(t, err, domain.ErrInvalidOTPFormat, code)
	}

	_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "ghost@b.com", OTP: "123456"})
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
}

func TestVerifyOTPExpiredEvenWithCorrectCode(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.clock.advance(5*time.Minute + time.Second)

	_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{
		Email: "a@b.com", OTP: f.mailer.lastCode("a@b.com"),
	})
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestVerifyOTPLocksAfterThreeFailures(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	correct := f.mailer.lastCode("a@b.com")
	wrong := "100000"
	if wrong == correct {
		wrong = "100001"
	}

	for i := 0; i < domain.MaxOTPAttempts; i++ {
		_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "a@b.com", OTP: wrong})
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	}
	assert.Equal(t, 3, f.store.GuestByEmail("a@b.com").OTPAttempts)

	_, err := f.svc.VerifyOTP(context.Background(), &domain.VerifyOTPRequest{Email: "a@b.com", OTP: correct})
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestGuestLogin(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t)

	_, err := f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{GuestID: res.Guest.GuestID, Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrNotVerified)

	f.verify(t)

	g, err := f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{GuestID: res.Guest.GuestID, Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", g.Email)

	g, err = f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{UserID: "A@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.Guest.GuestID, g.GuestID)

	_, err = f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{GuestID: res.Guest.GuestID, Password: "wrong!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{GuestID: "GUEST999_0000", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{Password: "secret1"})
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
}

func TestGuestLoginHidesVerificationStatusWithoutPassword(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t)

	_, err := f.svc.GuestLogin(context.Background(), &domain.GuestLoginRequest{GuestID: res.Guest.GuestID, Password: "wrong!"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	f.verify(t)

	_, err := f.svc.Login(context.Background(), &domain.AccountLoginRequest{Email: "a@b.com", Password: "bad-password"})
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	sess, err := f.svc.Login(context.Background(), &domain.AccountLoginRequest{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), sess.ExpiresIn)
	assert.Equal(t, "a@b.com", sess.User.Email)

	claims, err := auth.Parse(sess.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.Sub)
	assert.Equal(t, sess.User.GuestID, claims.GuestID)

	require.NoError(t, f.svc.Logout(context.Background(), claims.ID, claims.ExpiresAt.Time))
	revoked, err := f.store.SessionRepository().IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

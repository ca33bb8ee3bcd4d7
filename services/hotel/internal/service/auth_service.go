package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosis/zayna-hotel/pkg/auth"
	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/mailer"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/pkg/utils"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
)

const maxGuestIDAttempts = 3

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResult, error)
	SendOTP(ctx context.Context, req *domain.SendOTPRequest) error
	VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) (*domain.Guest, error)
	GuestLogin(ctx context.Context, req *domain.GuestLoginRequest) (*domain.Guest, error)
	Login(ctx context.Context, req *domain.AccountLoginRequest) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string, expiresAt time.Time) error
}

// Hashing holds the cost knobs for password and code hashes.
type Hashing struct {
	Password   *argon2id.Params
	BcryptCost int
}

var DefaultHashing = Hashing{Password: argon2id.DefaultParams, BcryptCost: bcrypt.DefaultCost}

type authService struct {
	guests    repository.GuestRepository
	otps      repository.OTPRepository
	cooldowns repository.CooldownRepository
	sessions  repository.SessionRepository
	mailer    mailer.Service
	bus       events.Publisher
	metrics   *metrics.Metrics
	config    *config.Config
	hashing   Hashing
	now       func() time.Time
}

func NewAuthService(
	guests repository.GuestRepository,
	otps repository.OTPRepository,
	cooldowns repository.CooldownRepository,
	sessions repository.SessionRepository,
	mailer mailer.Service,
	bus events.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
	hashing Hashing,
) AuthService {
	return &authService{
		guests:    guests,
		otps:      otps,
		cooldowns: cooldowns,
		sessions:  sessions,
		mailer:    mailer,
		bus:       bus,
		metrics:   m,
		config:    cfg,
		hashing:   hashing,
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.guests.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing guest: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailExists
	}

	passwordHash, err := argon2id.CreateHash(req.Password, s.hashing.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, codeHash, err := s.newCode()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.config.Auth.OTPTTL)
	guest := &domain.Guest{
		GuestID:      domain.NewGuestID(req.RoomNo, now),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		RoomNo:       req.RoomNo,
		PasswordHash: passwordHash,
		OTPHash:      codeHash,
		OTPExpiresAt: &expiresAt,
		CreatedAt:    now,
	}

	if err := s.createGuest(ctx, guest); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Guest registered", "guest_id", guest.GuestID, "room_no", guest.RoomNo)

	s.recordIssue(ctx, guest.Email, codeHash, domain.OTPPurposeRegistration, now, expiresAt)
	if _, _, err := s.cooldowns.Acquire(ctx, guest.Email, s.config.Auth.OTPCooldown); err != nil {
		logger.WarnContext(ctx, "Failed to arm OTP cooldown", "error", err)
	}

	delivered := true
	if err := s.mailer.SendOTP(ctx, guest.Email, guest.Name, code, s.config.Auth.OTPTTL); err != nil {
		// The guest can ask for a new code through send-otp once the cooldown passes.
		logger.ErrorContext(ctx, "Failed to send registration OTP", "error", err, "guest_id", guest.GuestID)
		delivered = false
	} else {
		s.metrics.IncOTPSent()
	}
	s.metrics.IncRegistration()

	s.publish(ctx, events.GuestRegistered, events.GuestRegisteredEvent{
		GuestID:      guest.GuestID,
		Email:        guest.Email,
		Name:         guest.Name,
		RoomNo:       guest.RoomNo,
		OTPDelivered: delivered,
		CreatedAt:    guest.CreatedAt,
	})

	result := &domain.RegisterResult{Guest: guest, OTPDelivered: delivered}
	if s.config.Email.DevMode {
		result.DevOTP = code
	}
	return result, nil
}

// createGuest inserts g, drawing a random guest id when the clock-derived one is taken.
func (s *authService) createGuest(ctx context.Context, g *domain.Guest) error {
	for attempt := 1; ; attempt++ {
		err := s.guests.Create(ctx, g)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicateEmail):
			return domain.ErrEmailExists
		case errors.Is(err, repository.ErrDuplicateGuestID) && attempt < maxGuestIDAttempts:
			id, rerr := domain.RandomGuestID(g.RoomNo)
			if rerr != nil {
				return fmt.Errorf("failed to draw guest id: %w", rerr)
			}
			logger.DebugContext(ctx, "Guest id collision, retrying", "taken", g.GuestID, "next", id)
			g.GuestID = id
		default:
			return fmt.Errorf("failed to create guest: %w", err)
		}
	}
}

func (s *authService) SendOTP(ctx context.Context, req *domain.SendOTPRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	guest, err := s.guests.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("failed to find guest: %w", err)
	}
	if guest == nil {
		return domain.ErrGuestNotFound
	}
	if guest.IsVerified {
		return domain.ErrAlreadyVerified
	}

	ok, remaining, err := s.cooldowns.Acquire(ctx, guest.Email, s.config.Auth.OTPCooldown)
	if err != nil {
		logger.WarnContext(ctx, "OTP cooldown unavailable, sending anyway", "error", err)
	} else if !ok {
		wait := int(math.Ceil(remaining.Seconds()))
		return domain.RateLimited(fmt.Sprintf("Please wait %ds before requesting a new code", wait))
	}

	code, codeHash, err := s.newCode()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.config.Auth.OTPTTL)

	if err := s.guests.SetOTP(ctx, guest.ID, codeHash, expiresAt); err != nil {
		s.releaseCooldown(ctx, guest.Email)
		return fmt.Errorf("failed to store otp: %w", err)
	}
	s.recordIssue(ctx, guest.Email, codeHash, domain.OTPPurposeResend, now, expiresAt)

	name := req.Name
	if name == "" {
		name = guest.Name
	}
	if err := s.mailer.SendOTP(ctx, guest.Email, name, code, s.config.Auth.OTPTTL); err != nil {
		s.releaseCooldown(ctx, guest.Email)
		return domain.ErrOTPDelivery.Wrap(err)
	}
	s.metrics.IncOTPSent()

	if s.config.Email.DevMode {
		logger.InfoContext(ctx, "Development OTP issued", "email", guest.Email, "otp", code)
	}

	s.publish(ctx, events.OTPSent, events.OTPSentEvent{Email: guest.Email, ExpiresAt: expiresAt})
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *domain.VerifyOTPRequest) (*domain.Guest, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	guest, err := s.guests.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	if guest == nil {
		return nil, domain.ErrGuestNotFound
	}
	if guest.IsVerified {
		s.metrics.ObserveVerification("already_verified")
		return nil, domain.ErrAlreadyVerified
	}

	now := s.now().UTC()
	if !guest.HasActiveCode(now) {
		s.metrics.ObserveVerification("expired")
		return nil, domain.ErrOTPExpired
	}
	if guest.OTPAttempts >= domain.MaxOTPAttempts {
		s.metrics.ObserveVerification("locked")
		return nil, domain.ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(guest.OTPHash), []byte(req.OTP)) != nil {
		attempts, err := s.guests.IncrementOTPAttempts(ctx, guest.ID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to record OTP attempt", "error", err, "guest_id", guest.GuestID)
		}
		logger.InfoContext(ctx, "Invalid OTP", "guest_id", guest.GuestID, "attempts", attempts)
		s.metrics.ObserveVerification("invalid")
		return nil, domain.ErrInvalidOTP
	}

	changed, err := s.guests.MarkVerified(ctx, guest.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark guest verified: %w", err)
	}
	if !changed {
		return nil, domain.ErrAlreadyVerified
	}

	if _, err := s.otps.DeleteByEmail(ctx, guest.Email); err != nil {
		logger.WarnContext(ctx, "Failed to clear OTP log", "error", err)
	}

	guest.IsVerified = true
	guest.VerifiedAt = &now
	guest.OTPHash = ""
	guest.OTPExpiresAt = nil
	guest.OTPAttempts = 0
	s.metrics.ObserveVerification("verified")

	s.publish(ctx, events.GuestVerified, events.GuestVerifiedEvent{
		GuestID:    guest.GuestID,
		Email:      guest.Email,
		VerifiedAt: now,
	})
	return guest, nil
}

func (s *authService) GuestLogin(ctx context.Context, req *domain.GuestLoginRequest) (*domain.Guest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := req.Identifier()
	var guest *domain.Guest
	var err error
	if strings.Contains(id, "@") {
		guest, err = s.guests.FindByEmail(ctx, utils.NormalizeEmail(id))
	} else {
		guest, err = s.guests.FindByGuestID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}

	guest, err = s.checkCredentials(guest, req.Password)
	if err != nil {
		s.metrics.ObserveLogin("guest", loginOutcome(err))
		return nil, err
	}
	s.metrics.ObserveLogin("guest", "success")
	logger.InfoContext(ctx, "Guest logged in", "guest_id", guest.GuestID)
	return guest, nil
}

func (s *authService) Login(ctx context.Context, req *domain.AccountLoginRequest) (*domain.Session, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	guest, err := s.guests.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	guest, err = s.checkCredentials(guest, req.Password)
	if err != nil {
		s.metrics.ObserveLogin("account", loginOutcome(err))
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, domain.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	ttl := s.config.Auth.SessionTTL
	token, claims, err := auth.NewSessionToken(auth.Subject{
		ID:      guest.ID.Hex(),
		GuestID: guest.GuestID,
		Email:   guest.Email,
		Name:    guest.Name,
	}, s.config.Auth.JWTSecret, ttl)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLogin("account", "success")

	return &domain.Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		ExpiresIn: int64(ttl.Seconds()),
		User:      guest.Info(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if sessionID == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if err := s.sessions.Revoke(ctx, sessionID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// checkCredentials verifies the password before revealing verification status.
func (s *authService) checkCredentials(guest *domain.Guest, password string) (*domain.Guest, error) {
	if guest == nil {
		return nil, domain.ErrInvalidCredentials
	}
	match, err := argon2id.ComparePasswordAndHash(password, guest.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.ErrInvalidCredentials
	}
	if !guest.IsVerified {
		return nil, domain.ErrNotVerified
	}
	return guest, nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrNotVerified):
		return "not_verified"
	default:
		return "error"
	}
}

func (s *authService) newCode() (string, string, error) {
	code, err := domain.GenerateOTP()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashing.BcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash otp: %w", err)
	}
	return code, string(hash), nil
}

func (s *authService) recordIssue(ctx context.Context, email, codeHash, purpose string, now, expiresAt time.Time) {
	err := s.otps.Record(ctx, &domain.OTPIssue{
		Email:     email,
		CodeHash:  codeHash,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to log OTP issue", "error", err)
	}
}

func (s *authService) releaseCooldown(ctx context.Context, email string) {
	if err := s.cooldowns.Release(ctx, email); err != nil {
		logger.WarnContext(ctx, "Failed to release OTP cooldown", "error", err)
	}
}

func (s *authService) publish(ctx context.Context, subject string, payload interface{}) {
	publish(ctx, s.bus, s.metrics, subject, payload)
}

// Package repotest provides map-backed repositories for tests.
package repotest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
)

// Store holds every collection in memory. Fail* fields inject errors.
type Store struct {
	mu sync.Mutex

	Guests       map[primitive.ObjectID]*domain.Guest
	OTPIssues    []domain.OTPIssue
	Chats        map[primitive.ObjectID]*domain.ChatHistory
	SpaBookings  []domain.SpaBooking
	DiningOrders []domain.DiningOrder
	Contacts     []domain.ContactMessage
	Cooldowns    map[string]time.Time
	Revoked      map[string]time.Time
	Idempotent   map[string]string
	Inflight     map[string]bool
	RateHits     map[string]int

	FailGuestCreate error
	FailCooldown    error
	FailRevocation  error

	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		Guests:     make(map[primitive.ObjectID]*domain.Guest),
		Chats:      make(map[primitive.ObjectID]*domain.ChatHistory),
		Cooldowns:  make(map[string]time.Time),
		Revoked:    make(map[string]time.Time),
		Idempotent: make(map[string]string),
		Inflight:   make(map[string]bool),
		RateHits:   make(map[string]int),
		Now:        time.Now,
	}
}

func (s *Store) GuestRepository() repository.GuestRepository {
	return guestRepo{s}
}

func (s *Store) OTPRepository() repository.OTPRepository {
	return otpRepo{s}
}

func (s *Store) ChatRepository() repository.ChatRepository {
	return chatRepo{s}
}

func (s *Store) SpaBookingRepository() repository.SpaBookingRepository {
	return spaRepo{s}
}

func (s *Store) DiningOrderRepository() repository.DiningOrderRepository {
	return diningRepo{s}
}

func (s *Store) ContactRepository() repository.ContactRepository {
	return contactRepo{s}
}

func (s *Store) CooldownRepository() repository.CooldownRepository {
	return cooldownRepo{s}
}

func (s *Store) SessionRepository() repository.SessionRepository {
	return sessionRepo{s}
}

// GuestByEmail returns a copy of the stored guest, or nil.
func (s *Store) GuestByEmail(email string) *domain.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.Guests {
		if g.Email == email {
			cp := *g
			return &cp
		}
	}
	return nil
}

// UpdateGuest applies fn to the stored guest with the given email.
func (s *Store) UpdateGuest(email string, fn func(g *domain.Guest)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.Guests {
		if g.Email == email {
			fn(g)
		}
	}
}

type guestRepo struct{ s *Store }

func (r guestRepo) Create(_ context.Context, g *domain.Guest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailGuestCreate != nil {
		err := r.s.FailGuestCreate
		r.s.FailGuestCreate = nil
		return err
	}
	for _, existing := range r.s.Guests {
		if existing.Email == g.Email {
			return repository.ErrDuplicateEmail
		}
		if existing.GuestID == g.GuestID {
			return repository.ErrDuplicateGuestID
		}
	}
	g.ID = primitive.NewObjectID()
	cp := *g
	r.s.Guests[g.ID] = &cp
	return nil
}

func (r guestRepo) find(match func(*domain.Guest) bool) *domain.Guest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.Guests {
		if match(g) {
			cp := *g
			return &cp
		}
	}
	return nil
}

func (r guestRepo) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Guest, error) {
	return r.find(func(g *domain.Guest) bool { return g.ID == id }), nil
}

func (r guestRepo) FindByEmail(_ context.Context, email string) (*domain.Guest, error) {
	return r.find(func(g *domain.Guest) bool { return g.Email == email }), nil
}

func (r guestRepo) FindByGuestID(_ context.Context, guestID string) (*domain.Guest, error) {
	return r.find(func(g *domain.Guest) bool { return g.GuestID == guestID }), nil
}

func (r guestRepo) update(id primitive.ObjectID, fn func(g *domain.Guest)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.Guests[id]
	if !ok {
		return errors.New("guest not found")
	}
	fn(g)
	return nil
}

func (r guestRepo) SetOTP(_ context.Context, id primitive.ObjectID, codeHash string, expiresAt time.Time) error {
	return r.update(id, func(g *domain.Guest) {
		g.OTPHash = codeHash
		g.OTPExpiresAt = &expiresAt
		g.OTPAttempts = 0
	})
}

func (r guestRepo) IncrementOTPAttempts(_ context.Context, id primitive.ObjectID) (int, error) {
	var n int
	err := r.update(id, func(g *domain.Guest) {
		g.OTPAttempts++
		n = g.OTPAttempts
	})
	return n, err
}

func (r guestRepo) MarkVerified(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	changed := false
	err := r.update(id, func(g *domain.Guest) {
		if g.IsVerified {
			return
		}
		g.IsVerified = true
		g.VerifiedAt = &at
		g.OTPHash = ""
		g.OTPExpiresAt = nil
		g.OTPAttempts = 0
		changed = true
	})
	return changed, err
}

func (r guestRepo) AppendBooking(_ context.Context, id, bookingID primitive.ObjectID) error {
	return r.update(id, func(g *domain.Guest) { g.Bookings = append(g.Bookings, bookingID) })
}

func (r guestRepo) AppendOrder(_ context.Context, id, orderID primitive.ObjectID) error {
	return r.update(id, func(g *domain.Guest) { g.Orders = append(g.Orders, orderID) })
}

type otpRepo struct{ s *Store }

func (r otpRepo) Record(_ context.Context, issue *domain.OTPIssue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issue.ID = primitive.NewObjectID()
	r.s.OTPIssues = append(r.s.OTPIssues, *issue)
	return nil
}

func (r otpRepo) DeleteByEmail(_ context.Context, email string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.OTPIssues[:0]
	var n int64
	for _, issue := range r.s.OTPIssues {
		if issue.Email == email {
			n++
			continue
		}
		kept = append(kept, issue)
	}
	r.s.OTPIssues = kept
	return n, nil
}

type chatRepo struct{ s *Store }

func (r chatRepo) Append(_ context.Context, userID primitive.ObjectID, entry domain.ChatEntry, limit int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.Chats[userID]
	if !ok {
		h = &domain.ChatHistory{ID: primitive.NewObjectID(), UserID: userID, CreatedAt: entry.Timestamp}
		r.s.Chats[userID] = h
	}
	h.Messages = append(h.Messages, entry)
	if len(h.Messages) > limit {
		h.Messages = append([]domain.ChatEntry(nil), h.Messages[len(h.Messages)-limit:]...)
	}
	h.UpdatedAt = entry.Timestamp
	return nil
}

func (r chatRepo) Get(_ context.Context, userID primitive.ObjectID) (*domain.ChatHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.Chats[userID]
	if !ok {
		return nil, nil
	}
	cp := *h
	cp.Messages = append([]domain.ChatEntry(nil), h.Messages...)
	return &cp, nil
}

type spaRepo struct{ s *Store }

func (r spaRepo) Create(_ context.Context, b *domain.SpaBooking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.ID = primitive.NewObjectID()
	r.s.SpaBookings = append(r.s.SpaBookings, *b)
	return nil
}

func (r spaRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]domain.SpaBooking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.SpaBooking{}
	for i := len(r.s.SpaBookings) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.s.SpaBookings[i].UserID == userID {
			out = append(out, r.s.SpaBookings[i])
		}
	}
	return out, nil
}

type diningRepo struct{ s *Store }

func (r diningRepo) Create(_ context.Context, o *domain.DiningOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = primitive.NewObjectID()
	r.s.DiningOrders = append(r.s.DiningOrders, *o)
	return nil
}

func (r diningRepo) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]domain.DiningOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.DiningOrder{}
	for i := len(r.s.DiningOrders) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.s.DiningOrders[i].UserID == userID {
			out = append(out, r.s.DiningOrders[i])
		}
	}
	return out, nil
}

type contactRepo struct{ s *Store }

func (r contactRepo) Create(_ context.Context, m *domain.ContactMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = primitive.NewObjectID()
	r.s.Contacts = append(r.s.Contacts, *m)
	return nil
}

type cooldownRepo struct{ s *Store }

func (r cooldownRepo) Acquire(_ context.Context, email string, ttl time.Duration) (bool, time.Duration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailCooldown != nil {
		return false, 0, r.s.FailCooldown
	}
	now := r.s.Now()
	if until, ok := r.s.Cooldowns[email]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	r.s.Cooldowns[email] = now.Add(ttl)
	return true, 0, nil
}

func (r cooldownRepo) Release(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.Cooldowns, email)
	return nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ttl > 0 {
		r.s.Revoked[jti] = r.s.Now().Add(ttl)
	}
	return nil
}

func (r sessionRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailRevocation != nil {
		return false, r.s.FailRevocation
	}
	until, ok := r.s.Revoked[jti]
	return ok && r.s.Now().Before(until), nil
}

// IdempotencyStore satisfies middleware.IdempotencyStore.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Idempotent[key], nil
}

func (s *Store) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Idempotent[key] = value
	return nil
}

func (s *Store) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Inflight[key] {
		return false, nil
	}
	s.Inflight[key] = true
	return true, nil
}

func (s *Store) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Inflight, key)
	return nil
}

// Limiter counts hits per key with no window; Limit caps them.
type Limiter struct {
	Store *Store
	Limit int
}

func (l Limiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.Store.mu.Lock()
	defer l.Store.mu.Unlock()
	l.Store.RateHits[key]++
	return l.Store.RateHits[key] <= l.Limit, nil
}

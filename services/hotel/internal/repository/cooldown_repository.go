package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownRepository throttles OTP sends per email address.
type CooldownRepository interface {
	// Acquire arms the cooldown. When one is already running it returns false
	// and the time left before the next send is allowed.
	Acquire(ctx context.Context, email string, ttl time.Duration) (bool, time.Duration, error)
	Release(ctx context.Context, email string) error
}

type cooldownRepository struct {
	rdb *redis.Client
}

func NewCooldownRepository(rdb *redis.Client) CooldownRepository {
	return &cooldownRepository{rdb: rdb}
}

func cooldownKey(email string) string {
	return "otp_cooldown:" + email
}

func (r *cooldownRepository) Acquire(ctx context.Context, email string, ttl time.Duration) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	key := cooldownKey(email)
	ok, err := r.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("acquire otp cooldown: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := r.rdb.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read otp cooldown: %w", err)
	}
	// -2: expired between SETNX and TTL. -1: no expiry, which we never set.
	if remaining < 0 {
		remaining = time.Second
	}
	return false, remaining, nil
}

func (r *cooldownRepository) Release(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.rdb.Del(ctx, cooldownKey(email)).Err()
}

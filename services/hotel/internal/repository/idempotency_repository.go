package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyRepository stores replayable POST responses. It satisfies
// middleware.IdempotencyStore.
type IdempotencyRepository struct {
	rdb *redis.Client
}

func NewIdempotencyRepository(rdb *redis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{rdb: rdb}
}

// Get returns "" when nothing is stored under key.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (r *IdempotencyRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// Reserve takes the in-flight marker for key with SET NX.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.rdb.SetNX(ctx, key, "1", ttl).Result()
}

func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.rdb.Del(ctx, key).Err()
}

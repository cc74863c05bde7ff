package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitStore implements store.RateLimitStore: plain integer counters
// and marker keys, both TTL-bound. Backs the OTP layered limits (C5) and
// the login rate-limiter (C6).
type RateLimitStore struct {
	rdb *redis.Client
}

func NewRateLimitStore(rdb *redis.Client) *RateLimitStore {
	return &RateLimitStore{rdb: rdb}
}

// Incr increments key and, only on the write that creates it (post-incr
// count == 1), attaches ttl — matching spec.md §4.2/§4.3's "TTL on first
// write" windows.
func (s *RateLimitStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	count := incr.Val()
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// SetIfAbsent sets a marker key only if it doesn't already exist (Redis
// SET NX), used for the single resend-cooldown lock key.
func (s *RateLimitStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return set, nil
}

// TTL returns the remaining seconds for key, or ok=false if it doesn't
// exist (or carries no expiry).
func (s *RateLimitStore) TTL(ctx context.Context, key string) (int, bool, error) {
	d, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	if d <= 0 {
		return 0, false, nil
	}
	return int(d.Seconds()), true, nil
}

// Set installs a marker key unconditionally (used for the login lockout
// marker, where the caller has already decided to lock regardless of any
// prior value).
func (s *RateLimitStore) Set(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, "1", ttl).Err()
}

func (s *RateLimitStore) Delete(ctx context.Context, key string) error {
	err := s.rdb.Del(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func unlockTokenKey(token string) string { return "token:unlock:" + token }

// TokenValueStore implements store.TokenValueStore for single-use opaque
// token → value mappings (unlock tokens, C1).
type TokenValueStore struct {
	rdb *redis.Client
}

func NewTokenValueStore(rdb *redis.Client) *TokenValueStore {
	return &TokenValueStore{rdb: rdb}
}

func (s *TokenValueStore) Set(ctx context.Context, token, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, unlockTokenKey(token), value, ttl).Err()
}

// GetAndDelete redeems token atomically via Redis GETDEL, so a token can
// never be consumed twice even under concurrent redemption attempts
// (spec.md §8's "unlock_with_token succeeds at most once").
func (s *TokenValueStore) GetAndDelete(ctx context.Context, token string) (string, bool, error) {
	value, err := s.rdb.GetDel(ctx, unlockTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

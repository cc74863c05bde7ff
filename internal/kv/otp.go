// Package kv implements C1 (the short-TTL KeyValue store: OTP records, rate
// counters, unlock tokens) against Redis. The teacher repo has no KV store
// of its own; this package is grounded on the only pack repo that imports
// redis/go-redis/v9 (Abraxas-365-manifesto's pkg/jobx/jobxredis), adapted
// from its job-queue key-prefix + pipeline idiom to this domain's three
// capability-set interfaces.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/redis/go-redis/v9"
)

func otpKey(userID string) string { return "otp:" + userID }

// OtpStore implements store.OtpStore against Redis string values holding a
// JSON-encoded OtpRecord, one per user (spec.md §3).
type OtpStore struct {
	rdb *redis.Client
}

func NewOtpStore(rdb *redis.Client) *OtpStore {
	return &OtpStore{rdb: rdb}
}

func (s *OtpStore) Get(ctx context.Context, userID string) (models.OtpRecord, bool, error) {
	data, err := s.rdb.Get(ctx, otpKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.OtpRecord{}, false, nil
	}
	if err != nil {
		return models.OtpRecord{}, false, err
	}
	var rec models.OtpRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.OtpRecord{}, false, err
	}
	return rec, true, nil
}

// Set overwrites any prior record for rec.UserID with a TTL derived from
// rec.ExpiresAt, so Redis evicts it at exactly the moment the domain
// considers it expired.
func (s *OtpStore) Set(ctx context.Context, rec models.OtpRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.rdb.Set(ctx, otpKey(rec.UserID), data, ttl).Err()
}

func (s *OtpStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, otpKey(userID)).Err()
}

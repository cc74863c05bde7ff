package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestOtpStore_SetGetDelete(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewOtpStore(rdb)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := models.OtpRecord{UserID: "user-1", Code: "123456", ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, store.Set(ctx, rec))

	got, ok, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "123456", got.Code)

	require.NoError(t, store.Delete(ctx, "user-1"))
	_, ok, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOtpStore_SetPastExpiry(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewOtpStore(rdb)
	ctx := context.Background()

	rec := models.OtpRecord{UserID: "user-2", Code: "000000", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, store.Set(ctx, rec))

	_, ok, err := store.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "a just-expired record is still readable until Redis evicts it on its own 1s floor TTL")
}

func TestRateLimitStore_IncrAttachesTTLOnlyOnFirstWrite(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewRateLimitStore(rdb)
	ctx := context.Background()

	count, err := store.Incr(ctx, "rl:key", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ttl, ok, err := store.TTL(ctx, "rl:key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 60, ttl, 2)

	count, err = store.Incr(ctx, "rl:key", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ttl2, ok, err := store.TTL(ctx, "rl:key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 60, ttl2, 2, "the second Incr's longer ttl must not overwrite the first write's expiry")
}

func TestRateLimitStore_SetIfAbsent(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewRateLimitStore(rdb)
	ctx := context.Background()

	set, err := store.SetIfAbsent(ctx, "cooldown:user-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.SetIfAbsent(ctx, "cooldown:user-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, set, "a second SetIfAbsent against the same key must fail while the cooldown is live")
}

func TestRateLimitStore_SetAndDelete(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewRateLimitStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "lock:user-1", time.Minute))
	_, ok, err := store.TTL(ctx, "lock:user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "lock:user-1"))
	_, ok, err = store.TTL(ctx, "lock:user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an already-absent key must not surface redis.Nil as an error.
	require.NoError(t, store.Delete(ctx, "lock:user-1"))
}

func TestTokenValueStore_GetAndDeleteIsSingleUse(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewTokenValueStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "unlock-tok", "user-1", time.Minute))

	value, ok, err := store.GetAndDelete(ctx, "unlock-tok")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user-1", value)

	_, ok, err = store.GetAndDelete(ctx, "unlock-tok")
	require.NoError(t, err)
	assert.False(t, ok, "a redeemed token must never be usable twice")
}

func TestTokenValueStore_GetAndDeleteMissing(t *testing.T) {
	rdb := setupTestRedis(t)
	store := NewTokenValueStore(rdb)
	ctx := context.Background()

	_, ok, err := store.GetAndDelete(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Package store defines the capability-set interfaces the core auth and
// vault services depend on (spec.md §9, "Polymorphism over persistence
// backends"). Production wires Postgres (durable) and Redis (KV) behind
// these; tests substitute in-memory fakes. Nothing in internal/auth or
// internal/vault imports a concrete driver directly.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
)

// ErrNotFound is the sentinel a store implementation returns for a missing
// row; the core distinguishes it from other storage failures.
var ErrNotFound = errors.New("not found")

// UserStore persists the User aggregate (spec.md §3).
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, username, email string) (models.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
	// InstallIdentifier atomically writes all five identifier fields
	// (invariant I1). It must only apply when the user is still in
	// PhaseVerifPassword; a second concurrent install is a no-op that
	// reports ok=false rather than corrupting the row.
	InstallIdentifier(ctx context.Context, userID string, id models.Identifier) (ok bool, err error)
}

// OtpStore persists OtpRecord in the KV store (C1), at most one per user.
type OtpStore interface {
	Get(ctx context.Context, userID string) (models.OtpRecord, bool, error)
	Set(ctx context.Context, rec models.OtpRecord) error
	Delete(ctx context.Context, userID string) error
}

// RefreshTokenStore persists the rotating refresh-token row (C2). Rotation
// must be a conditional update per spec.md §5: CompareAndRotate only
// succeeds when the presented token still matches the stored one.
type RefreshTokenStore interface {
	Get(ctx context.Context, userID string) (models.RefreshTokenRecord, bool, error)
	// Create installs a brand-new family (InstallIdentifier, Login).
	Create(ctx context.Context, rec models.RefreshTokenRecord) error
	// CompareAndRotate atomically replaces the stored token with newToken
	// (same family, refreshed expiry, is_revoked=false) only if the
	// current stored token equals oldToken and is not revoked. matched
	// is false when no row satisfied the predicate; the caller treats that
	// zero-row result as the reuse branch.
	CompareAndRotate(ctx context.Context, userID, oldToken, newToken string, newExpiry time.Time) (matched bool, err error)
	MarkRevoked(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

// RateLimitStore backs both the OTP layered limits and the login
// rate-limiter (C1: RateCounter).
type RateLimitStore interface {
	// Incr increments key, setting ttl on first creation, and returns the
	// post-increment count.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// SetIfAbsent sets a marker key with ttl only if absent; returns
	// whether it was newly set (used for the resend cooldown single lock
	// key).
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (set bool, err error)
	// TTL returns remaining seconds for key, or ok=false if absent.
	TTL(ctx context.Context, key string) (seconds int, ok bool, err error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TokenValueStore backs single-use opaque KV mappings: unlock tokens (C1).
type TokenValueStore interface {
	Set(ctx context.Context, token, value string, ttl time.Duration) error
	GetAndDelete(ctx context.Context, token string) (value string, ok bool, err error)
}

// PreAuthSessionStore backs C7. A handle holds at most one phase at a time.
type PreAuthSessionStore interface {
	Insert(ctx context.Context, handle string, phase models.Phase, userID string) error
	Get(ctx context.Context, handle string, phase models.Phase) (userID string, ok bool, err error)
	// CurrentPhase returns whichever phase (if any) the handle currently
	// occupies, for CheckSession.
	CurrentPhase(ctx context.Context, handle string) (phase models.Phase, userID string, ok bool, err error)
	Remove(ctx context.Context, handle string, phase models.Phase) error
	Flush(ctx context.Context, handle string) error
}

// VaultStore backs C9, scoped by owner on every call.
type VaultStore interface {
	Create(ctx context.Context, item models.VaultItem) (models.VaultItem, error)
	ListAll(ctx context.Context, owner string) ([]models.VaultItem, error)
	Update(ctx context.Context, owner string, item models.VaultItem) (affected bool, err error)
	Delete(ctx context.Context, owner, id string) (affected bool, err error)
	SearchByTitle(ctx context.Context, owner, query string) ([]models.VaultItem, error)
}

// EmailGateway is C3: best-effort async delivery, templated.
type EmailGateway interface {
	// SendOTP is called synchronously by the OTP service: a reported
	// failure causes the caller to roll back the OtpRecord it just wrote
	// (spec.md §4.8).
	SendOTP(ctx context.Context, to, code string) error
	// SendLockoutUnlock is fire-and-forget; failures are logged and
	// swallowed by the caller, never surfaced to the lockout response.
	SendLockoutUnlock(ctx context.Context, to, unlockURL string) error
}

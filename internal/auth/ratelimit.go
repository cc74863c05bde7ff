package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
)

const (
	loginMaxAttempts = 10
	loginWindow      = 600 * time.Second
	loginLockTTL     = 600 * time.Second
	unlockTokenTTL   = 600 * time.Second
)

// LoginAttemptResult is the outcome of record_failed.
type LoginAttemptResult struct {
	Locked     bool
	Remaining  int
	RetryAfter int
}

// LoginRateLimiter is C6: the per-account failed-login counter, lockout,
// and email-delivered unlock-token flow, distinct from the ambient
// per-IP limiter in internal/api/middleware.
type LoginRateLimiter struct {
	rl    store.RateLimitStore
	tok   store.TokenValueStore
	email store.EmailGateway
	fp    Fingerprinter
}

func NewLoginRateLimiter(rl store.RateLimitStore, tok store.TokenValueStore, email store.EmailGateway, fp Fingerprinter) *LoginRateLimiter {
	return &LoginRateLimiter{rl: rl, tok: tok, email: email, fp: fp}
}

func attemptsKey(email string) string { return "rate_limit:login:" + email }
func lockKey(email string) string     { return "lock:login:" + email }

// RecordFailed increments the failed-attempt counter for email and, on
// crossing the threshold, locks the account and dispatches an unlock email.
// unlockURLFor builds the lockout-notification link from the minted token.
func (l *LoginRateLimiter) RecordFailed(ctx context.Context, email, username string, unlockURLFor func(token string) string) (LoginAttemptResult, error) {
	count, err := l.rl.Incr(ctx, attemptsKey(email), loginWindow)
	if err != nil {
		return LoginAttemptResult{}, apperr.RedisErr(err)
	}

	if count < loginMaxAttempts {
		return LoginAttemptResult{Locked: false, Remaining: loginMaxAttempts - int(count)}, nil
	}

	if err := l.rl.Set(ctx, lockKey(email), loginLockTTL); err != nil {
		return LoginAttemptResult{}, apperr.RedisErr(err)
	}
	_ = l.rl.Delete(ctx, attemptsKey(email))

	token, err := generateOpaqueToken(32)
	if err != nil {
		return LoginAttemptResult{}, apperr.InternalErr(err)
	}
	// Stored under its fingerprint, not the raw token: a KV read never
	// discloses a redeemable unlock link (see Fingerprinter).
	if err := l.tok.Set(ctx, l.fp.Fingerprint(token), email, unlockTokenTTL); err != nil {
		return LoginAttemptResult{}, apperr.RedisErr(err)
	}

	// Fire-and-forget, on its own deadline detached from the request ctx
	// (spec.md §5/§9): the 10th login response must not block on SMTP,
	// and a client cancellation must not abort the notification.
	unlockURL := unlockURLFor(token)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.email.SendLockoutUnlock(sendCtx, email, unlockURL); err != nil {
			slog.Error("lockout_email_failed", "error", err)
		}
	}()

	return LoginAttemptResult{Locked: true, RetryAfter: int(loginLockTTL.Seconds())}, nil
}

// CheckIfLocked returns the remaining lock seconds, or locked=false.
func (l *LoginRateLimiter) CheckIfLocked(ctx context.Context, email string) (seconds int, locked bool, err error) {
	seconds, ok, err := l.rl.TTL(ctx, lockKey(email))
	if err != nil {
		return 0, false, apperr.RedisErr(err)
	}
	return seconds, ok, nil
}

// UnlockWithToken redeems a single-use unlock token.
func (l *LoginRateLimiter) UnlockWithToken(ctx context.Context, token string) (email string, err error) {
	email, ok, err := l.tok.GetAndDelete(ctx, l.fp.Fingerprint(token))
	if err != nil {
		return "", apperr.RedisErr(err)
	}
	if !ok {
		return "", apperr.New(apperr.BadRequest, "Invalid or expired unlock token")
	}
	_ = l.rl.Delete(ctx, lockKey(email))
	_ = l.rl.Delete(ctx, attemptsKey(email))
	return email, nil
}

// ClearAttempts resets the failed-attempt counter on successful login.
func (l *LoginRateLimiter) ClearAttempts(ctx context.Context, email string) error {
	if err := l.rl.Delete(ctx, attemptsKey(email)); err != nil {
		return apperr.RedisErr(err)
	}
	return nil
}

// generateOpaqueToken mints a random URL-safe token, grounded on the
// teacher's GenerateSecureToken (recovery.go): crypto/rand plus base64 URL
// encoding, used here for unlock tokens and pre-auth session handles.
func generateOpaqueToken(numBytes int) (string, error) {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

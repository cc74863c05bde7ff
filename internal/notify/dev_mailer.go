// Package notify implements C3: best-effort delivery of OTP and
// lockout-notification emails. DevMailer is the teacher's logging stand-in
// (internal/notify/mailer.go's DevMailer, renamed to this domain's two
// templates); SMTPMailer in smtp_mailer.go is the production path.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// DevMailer logs emails instead of sending them. Safe for development and
// for tests that want to assert on what would have been sent.
type DevMailer struct {
	Logger *slog.Logger
}

func (m *DevMailer) SendOTP(ctx context.Context, to, code string) error {
	m.Logger.Info("email_sent", "to", to, "type", "otp", "code", code)
	return nil
}

func (m *DevMailer) SendLockoutUnlock(ctx context.Context, to, unlockURL string) error {
	m.Logger.Info("email_sent", "to", to, "type", "lockout_unlock", "url", unlockURL)
	return nil
}

// CapturingMailer records every send instead of delivering it; used by
// tests that need to assert on dispatched OTP codes / unlock links
// (spec.md §9's "test builds substitute an in-memory/capturing email
// gateway"). SendLockoutUnlock is called from a detached goroutine in
// production (internal/auth's login rate-limiter), so its own sends are
// guarded by mu; read them through the thread-safe accessors below rather
// than the slice directly.
type CapturingMailer struct {
	mu           sync.Mutex
	OTPSends     []CapturedOTP
	LockoutSends []CapturedLockout
	FailNextOTP  bool
}

type CapturedOTP struct {
	To   string
	Code string
}

type CapturedLockout struct {
	To        string
	UnlockURL string
}

func (m *CapturingMailer) SendOTP(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextOTP {
		m.FailNextOTP = false
		return errSendFailed
	}
	m.OTPSends = append(m.OTPSends, CapturedOTP{To: to, Code: code})
	return nil
}

func (m *CapturingMailer) SendLockoutUnlock(ctx context.Context, to, unlockURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockoutSends = append(m.LockoutSends, CapturedLockout{To: to, UnlockURL: unlockURL})
	return nil
}

// LockoutCount reports how many lockout emails have been captured so far,
// safe to poll while the dispatching goroutine may still be running.
func (m *CapturingMailer) LockoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.LockoutSends)
}

// LastLockout returns the most recently captured lockout email.
func (m *CapturingMailer) LastLockout() CapturedLockout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LockoutSends[len(m.LockoutSends)-1]
}

var errSendFailed = &sendError{"simulated send failure"}

type sendError struct{ msg string }

func (e *sendError) Error() string { return e.msg }

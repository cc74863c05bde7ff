package middleware

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SetSentryUser adds user context to the Sentry scope, used by
// AuthMiddleware once a request resolves to an authenticated principal.
func SetSentryUser(ctx context.Context, userID string, email string, ip string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: userID, Email: email, IPAddress: ip})
	})
}

// CaptureSecurityEvent reports a security-relevant event (token reuse,
// account lockout) to Sentry as a message with a dedicated tag, so these
// are filterable separately from ordinary panics (spec.md's C8
// reuse-detection path is exactly the kind of event worth paging on).
func CaptureSecurityEvent(ctx context.Context, event string, attrs map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("security_event", event)
		for k, v := range attrs {
			scope.SetExtra(k, v)
		}
		sentry.CaptureMessage("security_event: " + event)
	})
}

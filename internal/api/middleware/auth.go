package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/auth"
)

// AccessCookieName is the HttpOnly cookie carrying the short-lived access
// token (spec.md §6).
const AccessCookieName = "sv_at"

// AuthMiddleware validates the sv_at cookie and injects the caller's id and
// email into the request context, adapted from the teacher's
// AuthMiddleware (which reads an Authorization: Bearer header instead —
// this domain's HTTP surface is cookie-based throughout, per spec.md §6).
func AuthMiddleware(provider auth.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := provider.ValidateAccessToken(cookie.Value)
			if err != nil {
				slog.Warn("invalid_access_token", "error", err, "ip", r.RemoteAddr)
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := WithUser(r.Context(), claims.Subject, claims.Email)
			SetSentryUser(ctx, claims.Subject, claims.Email, r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/middleware"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
)

// refreshCookieName carries the rotating refresh token (spec.md §6).
const refreshCookieName = "sv_rt"

// sessionCookieName carries the opaque pre-auth session handle (C7). The
// spec names sv_at/sv_rt explicitly but leaves the pre-auth handle's
// transport unspecified; a third HttpOnly cookie is the natural fit since
// it is also bound to a single browser session, never sent to the client
// in a JSON body.
const sessionCookieName = "sv_session"

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	sessionTTL      = 24 * time.Hour
)

func (s *Server) setAuthCookies(w http.ResponseWriter, tokens models.TokenPair) {
	http.SetCookie(w, s.cookie(middleware.AccessCookieName, tokens.AccessToken, accessTokenTTL))
	http.SetCookie(w, s.cookie(refreshCookieName, tokens.RefreshToken, refreshTokenTTL))
}

func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.expiredCookie(middleware.AccessCookieName))
	http.SetCookie(w, s.expiredCookie(refreshCookieName))
}

func (s *Server) setSessionCookie(w http.ResponseWriter, handle string) {
	http.SetCookie(w, s.cookie(sessionCookieName, handle, sessionTTL))
}

func (s *Server) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}

func (s *Server) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

// sessionHandle reads the pre-auth session cookie, minting and setting a
// fresh one if absent (the anonymous caller's first touch, e.g. the first
// Register call).
func (s *Server) sessionHandle(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	handle, err := s.Auth.NewSessionHandle()
	if err != nil {
		return "", err
	}
	s.setSessionCookie(w, handle)
	return handle, nil
}

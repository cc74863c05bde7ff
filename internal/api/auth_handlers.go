package api

import (
	"fmt"
	"net/http"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/helpers"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/middleware"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
)

// AuthHandler groups the HTTP handlers for C8 (the auth state machine),
// grounded on the teacher's auth_handlers.go shape: thin handlers that
// decode, delegate to the service, and translate the result.
type AuthHandler struct {
	server *Server
}

func NewAuthHandler(server *Server) *AuthHandler {
	return &AuthHandler{server: server}
}

// unlockURLFor builds the lockout-notification link embedding an unlock
// token, rooted at the configured public app URL.
func (h *AuthHandler) unlockURLFor(token string) string {
	return fmt.Sprintf("%s/unlock-account?token=%s", h.server.appURL, token)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register implements POST /auth/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	handle, err := h.server.sessionHandle(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.server.Auth.Register(r.Context(), handle, req.Username, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{"state": result.State})
}

type verifyOTPRequest struct {
	OtpCode string `json:"otp_code"`
}

// VerifyEmail implements PATCH /auth/verif/otp.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apperr.New(apperr.Unauthorized, "Invalid session"))
		return
	}

	if err := h.server.Auth.VerifyEmail(r.Context(), cookie.Value, req.OtpCode); err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

// InstallIdentifier implements PATCH /auth/verif/identifier.
func (h *AuthHandler) InstallIdentifier(w http.ResponseWriter, r *http.Request) {
	var id models.Identifier
	if err := helpers.DecodeJSON(r, &id); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apperr.New(apperr.Unauthorized, "Invalid session"))
		return
	}

	tokens, err := h.server.Auth.InstallIdentifier(r.Context(), cookie.Value, id)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.server.expiredCookie(sessionCookieName))
	h.server.setAuthCookies(w, tokens)
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

type loginRequest struct {
	Email        string `json:"email"`
	AuthVerifier []byte `json:"auth_verifier"`
}

// Login implements POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, tokens, err := h.server.Auth.Login(r.Context(), req.Email, req.AuthVerifier, h.unlockURLFor)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.Forbidden {
			middleware.CaptureSecurityEvent(r.Context(), "account_locked", map[string]string{"email": req.Email})
		}
		writeError(w, err)
		return
	}

	h.server.setAuthCookies(w, tokens)
	helpers.RespondJSON(w, http.StatusOK, user)
}

// RefreshTokens implements POST /auth/refresh.
func (h *AuthHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apperr.New(apperr.Unauthorized, "Invalid refresh token"))
		return
	}

	tokens, err := h.server.Auth.RefreshTokens(r.Context(), cookie.Value)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Message == "Token reuse detected" {
			middleware.CaptureSecurityEvent(r.Context(), "refresh_token_reuse", nil)
		}
		writeError(w, err)
		return
	}

	h.server.setAuthCookies(w, tokens)
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

// Logout implements DELETE /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	if err := h.server.Auth.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	h.server.clearAuthCookies(w)
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

// Me implements GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	user, err := h.server.Auth.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, user)
}

type emailOnlyRequest struct {
	Email string `json:"email"`
}

// ReportFailed implements POST /auth/report-failed.
func (h *AuthHandler) ReportFailed(w http.ResponseWriter, r *http.Request) {
	var req emailOnlyRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.server.Auth.ReportFailed(r.Context(), req.Email, h.unlockURLFor); err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

type unlockAccountRequest struct {
	Token string `json:"token"`
}

// UnlockAccount implements POST /auth/unlock-account.
func (h *AuthHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	var req unlockAccountRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.server.Auth.UnlockAccount(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

// CheckSession implements GET /session/check.
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		helpers.RespondJSON(w, http.StatusOK, map[string]any{"authenticated": false, "state": ""})
		return
	}

	authenticated, state, err := h.server.Auth.CheckSession(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]any{"authenticated": authenticated, "state": state})
}

// GetUserByEmail implements GET /user/by-email.
func (h *AuthHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		helpers.RespondError(w, http.StatusBadRequest, "email is required")
		return
	}
	user, err := h.server.Auth.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, user)
}

// GetUserIdentifier implements POST /user/identifier. This is the
// exposure surface noted in spec.md §9(c): only the ambient per-IP limiter
// and the existence of an installed identifier gate it.
func (h *AuthHandler) GetUserIdentifier(w http.ResponseWriter, r *http.Request) {
	var req emailOnlyRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	identifier, err := h.server.Auth.GetUserIdentifier(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, identifier)
}

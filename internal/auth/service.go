// Package auth implements C4 through C8: the token service, OTP service,
// login rate-limiter, pre-auth session, and the auth state machine itself
// (spec.md §4). AuthService is the orchestrator; it depends only on the
// capability-set interfaces in internal/store so it can be unit-tested with
// in-memory fakes, unlike the teacher's AuthService which the teacher's own
// smoke_test.go documents as untestable without exactly this refactor.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/google/uuid"
)

// ErrNotFound mirrors store.ErrNotFound for callers that only import auth.
var ErrNotFound = store.ErrNotFound

// AuthService is C8, wired over the lower-level services.
type AuthService struct {
	users   store.UserStore
	refresh store.RefreshTokenStore
	preauth *PreAuthSessionService
	otp     *OtpService
	login   *LoginRateLimiter
	tokens  TokenProvider
	fp      Fingerprinter
}

func NewAuthService(
	users store.UserStore,
	refresh store.RefreshTokenStore,
	preauth *PreAuthSessionService,
	otp *OtpService,
	login *LoginRateLimiter,
	tokens TokenProvider,
	fp Fingerprinter,
) *AuthService {
	return &AuthService{users: users, refresh: refresh, preauth: preauth, otp: otp, login: login, tokens: tokens, fp: fp}
}

// NewSessionHandle mints a fresh pre-auth session handle for a caller that
// doesn't present one yet (the HTTP edge sets it as the sv_session cookie
// before calling Register).
func (s *AuthService) NewSessionHandle() (string, error) {
	return s.preauth.NewHandle()
}

// RegisterResult is what Register returns to the HTTP edge.
type RegisterResult struct {
	State string // "created" | "verif_otp" | "verif_password"
}

// Register implements spec.md §4.1.
func (s *AuthService) Register(ctx context.Context, handle, username, email string) (RegisterResult, error) {
	if err := ValidateUsername(username); err != nil {
		return RegisterResult{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return RegisterResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		newUser, err := s.users.Create(ctx, username, email)
		if err != nil {
			return RegisterResult{}, apperr.DatabaseErr(err)
		}
		if err := s.otp.Send(ctx, newUser.ID, newUser.Email); err != nil {
			return RegisterResult{}, err
		}
		if err := s.preauth.Insert(ctx, handle, models.PhaseVerifOTP, newUser.ID); err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{State: "created"}, nil

	case err != nil:
		return RegisterResult{}, apperr.DatabaseErr(err)
	}

	switch user.Phase() {
	case models.PhaseVerifOTP:
		if err := s.otp.Resend(ctx, user.ID, user.Email); err != nil {
			return RegisterResult{}, err
		}
		if err := s.preauth.Insert(ctx, handle, models.PhaseVerifOTP, user.ID); err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{State: "verif_otp"}, nil

	case models.PhaseVerifPassword:
		if err := s.preauth.Insert(ctx, handle, models.PhaseVerifPassword, user.ID); err != nil {
			return RegisterResult{}, err
		}
		return RegisterResult{State: "verif_password"}, nil

	default: // PhaseReady
		return RegisterResult{}, apperr.New(apperr.Conflict, "Email already exists, please log in.")
	}
}

// VerifyEmail implements spec.md §4.1.
func (s *AuthService) VerifyEmail(ctx context.Context, handle, otpCode string) error {
	userID, ok, err := s.preauth.Get(ctx, handle, models.PhaseVerifOTP)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.Unauthorized, "Invalid session")
	}

	if err := s.otp.Verify(ctx, userID, otpCode); err != nil {
		return err
	}

	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return apperr.DatabaseErr(err)
	}
	// The two writes below (mark-verified, phase-flip) are not made in one
	// transaction, and the OTP record was already consumed by Verify above:
	// after a partial failure, a retried VerifyEmail fails the OTP check
	// rather than completing the remaining write.
	if err := s.preauth.TransitionToVerifPassword(ctx, handle, userID); err != nil {
		return err
	}
	return nil
}

// InstallIdentifier implements spec.md §4.1.
func (s *AuthService) InstallIdentifier(ctx context.Context, handle string, id models.Identifier) (models.TokenPair, error) {
	userID, ok, err := s.preauth.Get(ctx, handle, models.PhaseVerifPassword)
	if err != nil {
		return models.TokenPair{}, err
	}
	if !ok {
		return models.TokenPair{}, apperr.New(apperr.Unauthorized, "Invalid session")
	}

	installed, err := s.users.InstallIdentifier(ctx, userID, id)
	if err != nil {
		return models.TokenPair{}, apperr.DatabaseErr(err)
	}
	if !installed {
		return models.TokenPair{}, apperr.New(apperr.Conflict, "Identifier already installed")
	}

	if err := s.preauth.Flush(ctx, handle); err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.TokenPair{}, apperr.DatabaseErr(err)
	}

	return s.issueNewFamily(ctx, user)
}

// Login implements spec.md §4.1 and §4.3. unlockURLFor builds the
// lockout-notification link from the minted unlock token.
func (s *AuthService) Login(ctx context.Context, email string, authVerifier []byte, unlockURLFor func(token string) string) (models.PublicUser, models.TokenPair, error) {
	if seconds, locked, err := s.login.CheckIfLocked(ctx, email); err != nil {
		return models.PublicUser{}, models.TokenPair{}, err
	} else if locked {
		return models.PublicUser{}, models.TokenPair{}, apperr.WithRetryAfter(apperr.TooManyRequests, "Account locked", seconds)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) || (err == nil && !user.HasIdentifier()) {
		return models.PublicUser{}, models.TokenPair{}, apperr.New(apperr.Unauthorized, "Wrong email or password")
	}
	if err != nil {
		return models.PublicUser{}, models.TokenPair{}, apperr.DatabaseErr(err)
	}

	if !SecureCompareBytes(authVerifier, user.AuthVerifier) {
		result, rlErr := s.login.RecordFailed(ctx, email, user.Username, unlockURLFor)
		if rlErr != nil {
			return models.PublicUser{}, models.TokenPair{}, rlErr
		}
		if result.Locked {
			return models.PublicUser{}, models.TokenPair{}, apperr.WithRetryAfter(apperr.Forbidden, "Account locked", result.RetryAfter)
		}
		return models.PublicUser{}, models.TokenPair{}, apperr.New(apperr.Unauthorized, "Wrong email or password")
	}

	if err := s.login.ClearAttempts(ctx, email); err != nil {
		return models.PublicUser{}, models.TokenPair{}, err
	}

	tokens, err := s.issueNewFamily(ctx, user)
	if err != nil {
		return models.PublicUser{}, models.TokenPair{}, err
	}
	return user.Public(), tokens, nil
}

// issueNewFamily mints a fresh token family and persists the refresh
// record, used by both InstallIdentifier and Login.
func (s *AuthService) issueNewFamily(ctx context.Context, user models.User) (models.TokenPair, error) {
	// token_family is stored in a UUID column (migrations/000002), so the
	// family id must itself be a UUID, not an arbitrary opaque token.
	family := uuid.NewString()

	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return models.TokenPair{}, apperr.InternalErr(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Email, family)
	if err != nil {
		return models.TokenPair{}, apperr.InternalErr(err)
	}

	// The stored Token is a fingerprint, never the bearer token itself: a
	// durable-store read discloses nothing usable (spec.md §9's general
	// "never leak more than necessary" posture, extended to at-rest
	// storage of this one genuinely sensitive opaque value).
	rec := models.RefreshTokenRecord{
		UserID:      user.ID,
		Token:       s.fp.Fingerprint(refreshToken),
		TokenFamily: family,
		ExpiresAt:   time.Now().Add(refreshTokenTTL),
		IsRevoked:   false,
	}
	if err := s.refresh.Create(ctx, rec); err != nil {
		return models.TokenPair{}, apperr.DatabaseErr(err)
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// RefreshTokens implements spec.md §4.1's reuse-detection state machine.
func (s *AuthService) RefreshTokens(ctx context.Context, presented string) (models.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(presented)
	if err != nil {
		return models.TokenPair{}, err
	}
	userID := claims.Subject

	rec, ok, err := s.refresh.Get(ctx, userID)
	if err != nil {
		return models.TokenPair{}, apperr.DatabaseErr(err)
	}
	if !ok {
		return models.TokenPair{}, apperr.New(apperr.Unauthorized, "Invalid refresh token")
	}

	if rec.IsRevoked {
		_ = s.refresh.Delete(ctx, userID)
		return models.TokenPair{}, apperr.New(apperr.Unauthorized, "Session revoked. Please login again.")
	}

	presentedFP := s.fp.Fingerprint(presented)
	if !SecureCompareStrings(presentedFP, rec.Token) {
		_ = s.refresh.MarkRevoked(ctx, userID)
		return models.TokenPair{}, apperr.New(apperr.Unauthorized, "Token reuse detected")
	}

	newAccess, err := s.tokens.GenerateAccessToken(userID, claims.Email)
	if err != nil {
		return models.TokenPair{}, apperr.InternalErr(err)
	}
	newRefresh, err := s.tokens.GenerateRefreshToken(userID, claims.Email, rec.TokenFamily)
	if err != nil {
		return models.TokenPair{}, apperr.InternalErr(err)
	}
	newExpiry := time.Now().Add(refreshTokenTTL)

	matched, err := s.refresh.CompareAndRotate(ctx, userID, presentedFP, s.fp.Fingerprint(newRefresh), newExpiry)
	if err != nil {
		return models.TokenPair{}, apperr.DatabaseErr(err)
	}
	if !matched {
		// Another request already rotated or revoked this family between
		// our Get and this write; the zero-row CAS result is itself the
		// reuse branch (spec.md §5).
		return models.TokenPair{}, apperr.New(apperr.Unauthorized, "Token reuse detected")
	}

	return models.TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// Logout implements spec.md §4.1.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.refresh.Delete(ctx, userID); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

// CheckSession implements spec.md §4.1.
func (s *AuthService) CheckSession(ctx context.Context, handle string) (authenticated bool, state string, err error) {
	phase, err := s.preauth.CheckSession(ctx, handle)
	if err != nil {
		return false, "", err
	}
	return phase != models.PhaseNone, string(phase), nil
}

// Me returns the authenticated caller's public projection.
func (s *AuthService) Me(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.PublicUser{}, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return models.PublicUser{}, apperr.DatabaseErr(err)
	}
	return user.Public(), nil
}

// GetUserByEmail backs GET /user/by-email.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (models.PublicUser, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return models.PublicUser{}, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return models.PublicUser{}, apperr.DatabaseErr(err)
	}
	return user.Public(), nil
}

// GetUserIdentifier backs POST /user/identifier: the client needs salt and
// KDF params to derive its own auth_verifier before calling Login. This is
// the exposure surface noted in spec.md §9(c); the rate limiter in front of
// the HTTP handler is the only defense.
func (s *AuthService) GetUserIdentifier(ctx context.Context, email string) (models.Identifier, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return models.Identifier{}, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return models.Identifier{}, apperr.DatabaseErr(err)
	}
	if !user.HasIdentifier() {
		return models.Identifier{}, apperr.New(apperr.NotFound, "user not found")
	}
	return models.Identifier{
		EncryptedDEK: user.EncryptedDEK,
		Nonce:        user.Nonce,
		Salt:         user.Salt,
		KDFParams:    user.KDFParams,
		AuthVerifier: user.AuthVerifier,
	}, nil
}

// ReportFailed backs POST /auth/report-failed: the client-observed failed
// attempt (e.g. a wrong verifier caught client-side before ever calling
// Login) still counts against the lockout counter.
func (s *AuthService) ReportFailed(ctx context.Context, email string, unlockURLFor func(token string) string) error {
	user, err := s.users.GetByEmail(ctx, email)
	username := ""
	if err == nil {
		username = user.Username
	}
	_, err = s.login.RecordFailed(ctx, email, username, unlockURLFor)
	return err
}

// UnlockAccount backs POST /auth/unlock-account.
func (s *AuthService) UnlockAccount(ctx context.Context, token string) error {
	_, err := s.login.UnlockWithToken(ctx, token)
	return err
}

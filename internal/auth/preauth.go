package auth

import (
	"context"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
)

// PreAuthSessionService is C7: the server-side opaque handle carrying a
// single enumerated phase marker plus user id. This is not a token — the
// server owns invalidation (spec.md §9) — so handles are minted here rather
// than signed.
type PreAuthSessionService struct {
	store store.PreAuthSessionStore
}

func NewPreAuthSessionService(s store.PreAuthSessionStore) *PreAuthSessionService {
	return &PreAuthSessionService{store: s}
}

// NewHandle mints a fresh opaque session handle.
func (p *PreAuthSessionService) NewHandle() (string, error) {
	return generateOpaqueToken(24)
}

func (p *PreAuthSessionService) Insert(ctx context.Context, handle string, phase models.Phase, userID string) error {
	if err := p.store.Insert(ctx, handle, phase, userID); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

func (p *PreAuthSessionService) Get(ctx context.Context, handle string, phase models.Phase) (string, bool, error) {
	userID, ok, err := p.store.Get(ctx, handle, phase)
	if err != nil {
		return "", false, apperr.DatabaseErr(err)
	}
	return userID, ok, nil
}

// TransitionToVerifPassword moves a handle from verif_otp to
// verif_password: the former must be removed before the latter is
// inserted (spec.md §4.5).
func (p *PreAuthSessionService) TransitionToVerifPassword(ctx context.Context, handle, userID string) error {
	if err := p.store.Remove(ctx, handle, models.PhaseVerifOTP); err != nil {
		return apperr.DatabaseErr(err)
	}
	if err := p.store.Insert(ctx, handle, models.PhaseVerifPassword, userID); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

func (p *PreAuthSessionService) Flush(ctx context.Context, handle string) error {
	if err := p.store.Flush(ctx, handle); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

// CheckSession projects the handle's current phase for GET /session/check.
func (p *PreAuthSessionService) CheckSession(ctx context.Context, handle string) (models.Phase, error) {
	phase, _, ok, err := p.store.CurrentPhase(ctx, handle)
	if err != nil {
		return models.PhaseNone, apperr.DatabaseErr(err)
	}
	if !ok {
		return models.PhaseNone, nil
	}
	return phase, nil
}

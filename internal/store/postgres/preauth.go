package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PreAuthSessionStore implements store.PreAuthSessionStore against a
// pre_auth_sessions table keyed solely by handle: a handle holds at most one
// phase at a time (invariant per spec.md §4.5), so Insert always overwrites
// whatever phase/user_id the handle previously carried rather than keeping a
// row per (handle, phase) pair. C2 durable (not C1 KV), since a pre-auth
// session must survive past the component table's 24h window (spec.md §2).
type PreAuthSessionStore struct {
	pool *pgxpool.Pool
}

func NewPreAuthSessionStore(pool *pgxpool.Pool) *PreAuthSessionStore {
	return &PreAuthSessionStore{pool: pool}
}

func (s *PreAuthSessionStore) Insert(ctx context.Context, handle string, phase models.Phase, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pre_auth_sessions (handle, phase, user_id, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (handle) DO UPDATE SET
		   phase = EXCLUDED.phase,
		   user_id = EXCLUDED.user_id,
		   updated_at = EXCLUDED.updated_at`,
		handle, string(phase), userID, time.Now(),
	)
	return err
}

func (s *PreAuthSessionStore) Get(ctx context.Context, handle string, phase models.Phase) (string, bool, error) {
	var userID string
	var storedPhase string
	err := s.pool.QueryRow(ctx,
		`SELECT phase, user_id FROM pre_auth_sessions WHERE handle = $1`, handle,
	).Scan(&storedPhase, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if models.Phase(storedPhase) != phase {
		return "", false, nil
	}
	return userID, true, nil
}

func (s *PreAuthSessionStore) CurrentPhase(ctx context.Context, handle string) (models.Phase, string, bool, error) {
	var storedPhase, userID string
	err := s.pool.QueryRow(ctx,
		`SELECT phase, user_id FROM pre_auth_sessions WHERE handle = $1`, handle,
	).Scan(&storedPhase, &userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PhaseNone, "", false, nil
	}
	if err != nil {
		return models.PhaseNone, "", false, err
	}
	return models.Phase(storedPhase), userID, true, nil
}

// Remove clears the handle only if it currently occupies phase, leaving an
// occupant of a different phase untouched.
func (s *PreAuthSessionStore) Remove(ctx context.Context, handle string, phase models.Phase) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM pre_auth_sessions WHERE handle = $1 AND phase = $2`,
		handle, string(phase),
	)
	return err
}

func (s *PreAuthSessionStore) Flush(ctx context.Context, handle string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pre_auth_sessions WHERE handle = $1`, handle)
	return err
}

var _ store.PreAuthSessionStore = (*PreAuthSessionStore)(nil)

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

// RefreshTokenStore implements store.RefreshTokenStore against the
// refresh_tokens table: one row per user, rotated in place.
type RefreshTokenStore struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenStore(pool *pgxpool.Pool) *RefreshTokenStore {
	return &RefreshTokenStore{pool: pool}
}

func (s *RefreshTokenStore) Get(ctx context.Context, userID string) (models.RefreshTokenRecord, bool, error) {
	var rec models.RefreshTokenRecord
	rec.UserID = userID
	err := s.pool.QueryRow(ctx,
		`SELECT token, token_family, expires_at, is_revoked FROM refresh_tokens WHERE user_id = $1`,
		userID,
	).Scan(&rec.Token, &rec.TokenFamily, &rec.ExpiresAt, &rec.IsRevoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RefreshTokenRecord{}, false, nil
	}
	if err != nil {
		return models.RefreshTokenRecord{}, false, err
	}
	return rec, true, nil
}

// Create installs a brand-new family, replacing whatever row (if any) the
// user previously held — used by InstallIdentifier and Login, both of which
// mint a fresh token family unconditionally.
func (s *RefreshTokenStore) Create(ctx context.Context, rec models.RefreshTokenRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token, token_family, expires_at, is_revoked)
		 VALUES ($1, $2, $3, $4, false)
		 ON CONFLICT (user_id) DO UPDATE SET
		   token = EXCLUDED.token,
		   token_family = EXCLUDED.token_family,
		   expires_at = EXCLUDED.expires_at,
		   is_revoked = false`,
		rec.UserID, rec.Token, rec.TokenFamily, rec.ExpiresAt,
	)
	return err
}

// CompareAndRotate is the CAS primitive spec.md §5/§9 requires: it only
// rotates the stored token when it still equals oldToken and is not
// revoked. matched=false covers both "no such user" and "token mismatch or
// already revoked"; this method does not tell them apart.
func (s *RefreshTokenStore) CompareAndRotate(ctx context.Context, userID, oldToken, newToken string, newExpiry time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens
		 SET token = $3, expires_at = $4, is_revoked = false
		 WHERE user_id = $1 AND token = $2 AND is_revoked = false`,
		userID, oldToken, newToken, newExpiry,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *RefreshTokenStore) MarkRevoked(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE refresh_tokens SET is_revoked = true WHERE user_id = $1`, userID)
	return err
}

func (s *RefreshTokenStore) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

var _ store.RefreshTokenStore = (*RefreshTokenStore)(nil)

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore implements store.UserStore against the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, username, email, is_email_verified, encrypted_dek, nonce, salt, kdf_params, auth_verifier, created_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var dek, nonce, salt, verifier []byte
	var kdfParams *string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsEmailVerified, &dek, &nonce, &salt, &kdfParams, &verifier, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.EncryptedDEK = dek
	u.Nonce = nonce
	u.Salt = salt
	u.AuthVerifier = verifier
	if kdfParams != nil {
		u.KDFParams = *kdfParams
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *UserStore) Create(ctx context.Context, username, email string) (models.User, error) {
	id := uuid.NewString()
	now := time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, is_email_verified, created_at) VALUES ($1, $2, $3, false, $4)`,
		id, username, email, now,
	)
	if err != nil {
		return models.User{}, err
	}
	return models.User{ID: id, Username: username, Email: email, CreatedAt: now}, nil
}

func (s *UserStore) SetEmailVerified(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET is_email_verified = true WHERE id = $1`, userID)
	return err
}

// InstallIdentifier writes all five identifier fields atomically, gated on
// the phase precondition (is_email_verified AND auth_verifier IS NULL) per
// spec.md §5's conditional-update requirement for concurrent installs.
func (s *UserStore) InstallIdentifier(ctx context.Context, userID string, id models.Identifier) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users
		 SET encrypted_dek = $2, nonce = $3, salt = $4, kdf_params = $5, auth_verifier = $6
		 WHERE id = $1 AND is_email_verified = true AND auth_verifier IS NULL`,
		userID, id.EncryptedDEK, id.Nonce, id.Salt, id.KDFParams, id.AuthVerifier,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

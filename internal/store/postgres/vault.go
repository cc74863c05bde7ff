package postgres

import (
	"context"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VaultStore implements store.VaultStore against the vault_items table,
// scoping every read/write by owner_id so one user can never observe or
// mutate another's rows (C9, spec.md §6 vault isolation).
type VaultStore struct {
	pool *pgxpool.Pool
}

func NewVaultStore(pool *pgxpool.Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

func (s *VaultStore) Create(ctx context.Context, item models.VaultItem) (models.VaultItem, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO vault_items (id, owner_id, title, item_type, encrypted_data, nonce, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		item.ID, item.OwnerID, item.Title, string(item.ItemType), item.EncryptedData, item.Nonce, item.CreatedAt,
	)
	if err != nil {
		return models.VaultItem{}, err
	}
	item.UpdatedAt = item.CreatedAt
	return item, nil
}

func (s *VaultStore) ListAll(ctx context.Context, owner string) ([]models.VaultItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, title, item_type, encrypted_data, nonce, created_at, updated_at
		 FROM vault_items WHERE owner_id = $1 ORDER BY title ASC`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVaultItems(rows)
}

func (s *VaultStore) Update(ctx context.Context, owner string, item models.VaultItem) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vault_items
		 SET title = $3, item_type = $4, encrypted_data = $5, nonce = $6, updated_at = now()
		 WHERE id = $1 AND owner_id = $2`,
		item.ID, owner, item.Title, string(item.ItemType), item.EncryptedData, item.Nonce,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *VaultStore) Delete(ctx context.Context, owner, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vault_items WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SearchByTitle does a case-insensitive substring match, newest-edited
// first, capped at 20 rows per spec.md §6.
func (s *VaultStore) SearchByTitle(ctx context.Context, owner, query string) ([]models.VaultItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, title, item_type, encrypted_data, nonce, created_at, updated_at
		 FROM vault_items
		 WHERE owner_id = $1 AND title ILIKE '%' || $2 || '%'
		 ORDER BY updated_at DESC
		 LIMIT 20`,
		owner, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVaultItems(rows)
}

func scanVaultItems(rows pgx.Rows) ([]models.VaultItem, error) {
	items := make([]models.VaultItem, 0)
	for rows.Next() {
		var it models.VaultItem
		var itemType string
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Title, &itemType, &it.EncryptedData, &it.Nonce, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		it.ItemType = models.VaultItemType(itemType)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ store.VaultStore = (*VaultStore)(nil)

// Package vault implements C9: authorized-by-owner CRUD over opaque
// encrypted vault items. There is no teacher equivalent for this resource;
// the shape is grounded on the repository-per-aggregate pattern the teacher
// uses throughout internal/auth's services, applied to spec.md §4.6.
package vault

import (
	"context"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/google/uuid"
)

// Service is C9.
type Service struct {
	store store.VaultStore
}

func NewService(s store.VaultStore) *Service {
	return &Service{store: s}
}

// CreateInput is the client-supplied payload for Create.
type CreateInput struct {
	Title         string
	ItemType      models.VaultItemType
	EncryptedData []byte
	Nonce         []byte
}

func (s *Service) Create(ctx context.Context, owner string, in CreateInput) (models.VaultItem, error) {
	item := models.VaultItem{
		ID:            uuid.NewString(),
		OwnerID:       owner,
		Title:         in.Title,
		ItemType:      in.ItemType,
		EncryptedData: in.EncryptedData,
		Nonce:         in.Nonce,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	created, err := s.store.Create(ctx, item)
	if err != nil {
		return models.VaultItem{}, apperr.DatabaseErr(err)
	}
	return created, nil
}

// ListAll returns every item owned by the caller, title-ascending.
func (s *Service) ListAll(ctx context.Context, owner string) ([]models.VaultItem, error) {
	items, err := s.store.ListAll(ctx, owner)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	return items, nil
}

// UpdateInput is the client-supplied payload for Update.
type UpdateInput struct {
	ID            string
	Title         string
	ItemType      models.VaultItemType
	EncryptedData []byte
	Nonce         []byte
}

// Update applies only when (id, owner) matches; a cross-owner call is a
// silent no-op returning success with zero rows affected, per the accepted
// behavior in spec.md §4.6/§9(a) (see DESIGN.md for the reasoning).
func (s *Service) Update(ctx context.Context, owner string, in UpdateInput) error {
	item := models.VaultItem{
		ID:            in.ID,
		Title:         in.Title,
		ItemType:      in.ItemType,
		EncryptedData: in.EncryptedData,
		Nonce:         in.Nonce,
		UpdatedAt:     time.Now(),
	}
	if _, err := s.store.Update(ctx, owner, item); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

// Delete is a silent no-op for a cross-owner id, same as Update.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.store.Delete(ctx, owner, id); err != nil {
		return apperr.DatabaseErr(err)
	}
	return nil
}

// SearchByTitle does a case-insensitive substring match, updated_at
// descending, capped at 20 rows.
func (s *Service) SearchByTitle(ctx context.Context, owner, query string) ([]models.VaultItem, error) {
	items, err := s.store.SearchByTitle(ctx, owner, query)
	if err != nil {
		return nil, apperr.DatabaseErr(err)
	}
	return items, nil
}

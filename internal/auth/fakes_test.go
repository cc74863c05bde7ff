package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
)

// In-memory fakes for the capability-set interfaces in internal/store,
// letting AuthService (C8) run as a pure unit test — exactly the refactor
// the teacher's own smoke_test.go flags as missing.

type fakeUserStore struct {
	mu        sync.Mutex
	byID      map[string]models.User
	byEmail   map[string]string // email -> id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]models.User{}, byEmail: map[string]string{}}
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return f.byID[id], nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Create(ctx context.Context, username, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: uuid.NewString(), Username: username, Email: email, CreatedAt: time.Now()}
	f.byID[u.ID] = u
	f.byEmail[email] = u.ID
	return u, nil
}

func (f *fakeUserStore) SetEmailVerified(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.IsEmailVerified = true
	f.byID[userID] = u
	return nil
}

func (f *fakeUserStore) InstallIdentifier(ctx context.Context, userID string, id models.Identifier) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	if !u.IsEmailVerified || u.HasIdentifier() {
		return false, nil
	}
	u.EncryptedDEK = id.EncryptedDEK
	u.Nonce = id.Nonce
	u.Salt = id.Salt
	u.KDFParams = id.KDFParams
	u.AuthVerifier = id.AuthVerifier
	f.byID[userID] = u
	return true, nil
}

type fakeRefreshTokenStore struct {
	mu   sync.Mutex
	rows map[string]models.RefreshTokenRecord
}

func newFakeRefreshTokenStore() *fakeRefreshTokenStore {
	return &fakeRefreshTokenStore{rows: map[string]models.RefreshTokenRecord{}}
}

func (f *fakeRefreshTokenStore) Get(ctx context.Context, userID string) (models.RefreshTokenRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[userID]
	return rec, ok, nil
}

func (f *fakeRefreshTokenStore) Create(ctx context.Context, rec models.RefreshTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rec.UserID] = rec
	return nil
}

func (f *fakeRefreshTokenStore) CompareAndRotate(ctx context.Context, userID, oldToken, newToken string, newExpiry time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[userID]
	if !ok || rec.IsRevoked || rec.Token != oldToken {
		return false, nil
	}
	rec.Token = newToken
	rec.ExpiresAt = newExpiry
	rec.IsRevoked = false
	f.rows[userID] = rec
	return true, nil
}

func (f *fakeRefreshTokenStore) MarkRevoked(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[userID]
	if !ok {
		return nil
	}
	rec.IsRevoked = true
	f.rows[userID] = rec
	return nil
}

func (f *fakeRefreshTokenStore) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

type preAuthRow struct {
	phase  models.Phase
	userID string
}

type fakePreAuthSessionStore struct {
	mu   sync.Mutex
	rows map[string]preAuthRow
}

func newFakePreAuthSessionStore() *fakePreAuthSessionStore {
	return &fakePreAuthSessionStore{rows: map[string]preAuthRow{}}
}

func (f *fakePreAuthSessionStore) Insert(ctx context.Context, handle string, phase models.Phase, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[handle] = preAuthRow{phase: phase, userID: userID}
	return nil
}

func (f *fakePreAuthSessionStore) Get(ctx context.Context, handle string, phase models.Phase) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[handle]
	if !ok || row.phase != phase {
		return "", false, nil
	}
	return row.userID, true, nil
}

func (f *fakePreAuthSessionStore) CurrentPhase(ctx context.Context, handle string) (models.Phase, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[handle]
	if !ok {
		return models.PhaseNone, "", false, nil
	}
	return row.phase, row.userID, true, nil
}

func (f *fakePreAuthSessionStore) Remove(ctx context.Context, handle string, phase models.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[handle]; ok && row.phase == phase {
		delete(f.rows, handle)
	}
	return nil
}

func (f *fakePreAuthSessionStore) Flush(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, handle)
	return nil
}

type fakeVaultStore struct {
	mu    sync.Mutex
	items map[string]models.VaultItem
}

func newFakeVaultStore() *fakeVaultStore {
	return &fakeVaultStore{items: map[string]models.VaultItem{}}
}

func (f *fakeVaultStore) Create(ctx context.Context, item models.VaultItem) (models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeVaultStore) ListAll(ctx context.Context, owner string) ([]models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.VaultItem, 0)
	for _, it := range f.items {
		if it.OwnerID == owner {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeVaultStore) Update(ctx context.Context, owner string, item models.VaultItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[item.ID]
	if !ok || existing.OwnerID != owner {
		return false, nil
	}
	item.OwnerID = owner
	item.CreatedAt = existing.CreatedAt
	f.items[item.ID] = item
	return true, nil
}

func (f *fakeVaultStore) Delete(ctx context.Context, owner, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[id]
	if !ok || existing.OwnerID != owner {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

func (f *fakeVaultStore) SearchByTitle(ctx context.Context, owner, query string) ([]models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.VaultItem, 0)
	for _, it := range f.items {
		if it.OwnerID == owner && containsFold(it.Title, query) {
			out = append(out, it)
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	hl, nl := []rune(haystack), []rune(needle)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return out
	}
	hl, nl = toLower(hl), toLower(nl)
	if len(nl) > len(hl) {
		return false
	}
	for i := 0; i+len(nl) <= len(hl); i++ {
		if string(hl[i:i+len(nl)]) == string(nl) {
			return true
		}
	}
	return false
}

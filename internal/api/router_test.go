package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/auth"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/kv"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/notify"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/store"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/vault"
)

// In-memory capability-set fakes, mirroring internal/auth's test fakes, so
// the full HTTP surface can be exercised end to end without a real
// Postgres/Redis deployment.

type apiFakeUserStore struct {
	mu      sync.Mutex
	byID    map[string]models.User
	byEmail map[string]string
}

func newAPIFakeUserStore() *apiFakeUserStore {
	return &apiFakeUserStore{byID: map[string]models.User{}, byEmail: map[string]string{}}
}

func (f *apiFakeUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return f.byID[id], nil
}

func (f *apiFakeUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *apiFakeUserStore) Create(ctx context.Context, username, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: uuid.NewString(), Username: username, Email: email, CreatedAt: time.Now()}
	f.byID[u.ID] = u
	f.byEmail[email] = u.ID
	return u, nil
}

func (f *apiFakeUserStore) SetEmailVerified(ctx context.Context, userID string) error {
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

func (f *apiFakeUserStore) InstallIdentifier(ctx context.Context, userID string, id models.Identifier) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	if !u.IsEmailVerified || u.HasIdentifier() {
		return false, nil
	}
	u.EncryptedDEK, u.Nonce, u.Salt, u.KDFParams, u.AuthVerifier = id.EncryptedDEK, id.Nonce, id.Salt, id.KDFParams, id.AuthVerifier
	f.byID[userID] = u
	return true, nil
}

type apiFakeRefreshTokenStore struct {
	mu   sync.Mutex
	rows map[string]models.RefreshTokenRecord
}

func newAPIFakeRefreshTokenStore() *apiFakeRefreshTokenStore {
	return &apiFakeRefreshTokenStore{rows: map[string]models.RefreshTokenRecord{}}
}

func (f *apiFakeRefreshTokenStore) Get(ctx context.Context, userID string) (models.RefreshTokenRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[userID]
	return rec, ok, nil
}

func (f *apiFakeRefreshTokenStore) Create(ctx context.Context, rec models.RefreshTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rec.UserID] = rec
	return nil
}

func (f *apiFakeRefreshTokenStore) CompareAndRotate(ctx context.Context, userID, oldToken, newToken string, newExpiry time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[userID]
	if !ok || rec.IsRevoked || rec.Token != oldToken {
		return false, nil
	}
	rec.Token, rec.ExpiresAt, rec.IsRevoked = newToken, newExpiry, false
	f.rows[userID] = rec
	return true, nil
}

func (f *apiFakeRefreshTokenStore) MarkRevoked(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.rows[userID]; ok {
		rec.IsRevoked = true
		f.rows[userID] = rec
	}
	return nil
}

func (f *apiFakeRefreshTokenStore) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, userID)
	return nil
}

type apiPreAuthRow struct {
	phase  models.Phase
	userID string
}

type apiFakePreAuthSessionStore struct {
	mu   sync.Mutex
	rows map[string]apiPreAuthRow
}

func newAPIFakePreAuthSessionStore() *apiFakePreAuthSessionStore {
	return &apiFakePreAuthSessionStore{rows: map[string]apiPreAuthRow{}}
}

func (f *apiFakePreAuthSessionStore) Insert(ctx context.Context, handle string, phase models.Phase, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[handle] = apiPreAuthRow{phase: phase, userID: userID}
	return nil
}

func (f *apiFakePreAuthSessionStore) Get(ctx context.Context, handle string, phase models.Phase) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[handle]
	if !ok || row.phase != phase {
		return "", false, nil
	}
	return row.userID, true, nil
}

func (f *apiFakePreAuthSessionStore) CurrentPhase(ctx context.Context, handle string) (models.Phase, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[handle]
	if !ok {
		return models.PhaseNone, "", false, nil
	}
	return row.phase, row.userID, true, nil
}

func (f *apiFakePreAuthSessionStore) Remove(ctx context.Context, handle string, phase models.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[handle]; ok && row.phase == phase {
		delete(f.rows, handle)
	}
	return nil
}

func (f *apiFakePreAuthSessionStore) Flush(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, handle)
	return nil
}

type apiFakeVaultStore struct {
	mu    sync.Mutex
	items map[string]models.VaultItem
}

func newAPIFakeVaultStore() *apiFakeVaultStore {
	return &apiFakeVaultStore{items: map[string]models.VaultItem{}}
}

func (f *apiFakeVaultStore) Create(ctx context.Context, item models.VaultItem) (models.VaultItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	return item, nil
}

func (f *apiFakeVaultStore) ListAll(ctx context.Context, owner string) ([]models.VaultItem, error) {
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

func (f *apiFakeVaultStore) Update(ctx context.Context, owner string, item models.VaultItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[item.ID]
	if !ok || existing.OwnerID != owner {
		return false, nil
	}
	item.OwnerID, item.CreatedAt = owner, existing.CreatedAt
	f.items[item.ID] = item
	return true, nil
}

func (f *apiFakeVaultStore) Delete(ctx context.Context, owner, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[id]
	if !ok || existing.OwnerID != owner {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

func (f *apiFakeVaultStore) SearchByTitle(ctx context.Context, owner, query string) ([]models.VaultItem, error) {
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

type testServer struct {
	srv    *Server
	mailer *notify.CapturingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	users := newAPIFakeUserStore()
	refresh := newAPIFakeRefreshTokenStore()
	preauthStore := newAPIFakePreAuthSessionStore()
	vaultStore := newAPIFakeVaultStore()
	mailer := &notify.CapturingMailer{}

	fp := auth.NewFingerprinter("test-secret")
	tokenProvider := auth.NewJWTProvider("test-secret")
	preauth := auth.NewPreAuthSessionService(preauthStore)
	otpSvc := auth.NewOtpService(kv.NewOtpStore(rdb), kv.NewRateLimitStore(rdb), mailer)
	loginRL := auth.NewLoginRateLimiter(kv.NewRateLimitStore(rdb), kv.NewTokenValueStore(rdb), mailer, fp)
	authService := auth.NewAuthService(users, refresh, preauth, otpSvc, loginRL, tokenProvider, fp)
	vaultService := vault.NewService(vaultStore)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(nil, authService, vaultService, tokenProvider, logger, "https://vault.example.com", false)
	return &testServer{srv: srv, mailer: mailer}
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	return rec
}

func extractCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	data, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestFullRegistrationLoginVaultFlow(t *testing.T) {
	ts := newTestServer(t)

	// 1. Register.
	rec := doJSON(t, ts.srv, http.MethodPost, "/auth/", map[string]string{
		"username": "alice", "email": "alice@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionCookie := extractCookie(rec, sessionCookieName)
	require.NotNil(t, sessionCookie)

	require.Len(t, ts.mailer.OTPSends, 1)
	code := ts.mailer.OTPSends[0].Code

	// 2. Verify OTP.
	rec = doJSON(t, ts.srv, http.MethodPatch, "/auth/verif/otp", map[string]string{"otp_code": code}, []*http.Cookie{sessionCookie})
	require.Equal(t, http.StatusOK, rec.Code)

	// 3. Install identifier.
	rec = doJSON(t, ts.srv, http.MethodPatch, "/auth/verif/identifier", map[string]any{
		"encrypted_dek": []byte("dek"),
		"nonce":         []byte("nonce"),
		"salt":          []byte("salt"),
		"argon2_params": `{"t":3,"m":65536,"p":4}`,
		"auth_verifier": []byte("verifier-bytes"),
	}, []*http.Cookie{sessionCookie})
	require.Equal(t, http.StatusOK, rec.Code)
	accessCookie := extractCookie(rec, "sv_at")
	refreshCookie := extractCookie(rec, refreshCookieName)
	require.NotNil(t, accessCookie)
	require.NotNil(t, refreshCookie)

	// 4. Use the access cookie to create a vault item.
	rec = doJSON(t, ts.srv, http.MethodPost, "/vault/", map[string]any{
		"title":          "GitHub",
		"item_type":      "Password",
		"encrypted_data": []byte("ciphertext"),
		"nonce":          []byte("nonce"),
	}, []*http.Cookie{accessCookie})
	require.Equal(t, http.StatusCreated, rec.Code)

	// 5. List vault items back.
	rec = doJSON(t, ts.srv, http.MethodGet, "/vault/", nil, []*http.Cookie{accessCookie})
	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.VaultItem
	decodeBody(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "GitHub", items[0].Title)

	// 6. Refresh rotates the token pair issued by InstallIdentifier.
	rec = doJSON(t, ts.srv, http.MethodPost, "/auth/refresh", nil, []*http.Cookie{refreshCookie})
	require.Equal(t, http.StatusOK, rec.Code)
	rotatedRefresh := extractCookie(rec, refreshCookieName)
	require.NotNil(t, rotatedRefresh)
	assert.NotEqual(t, refreshCookie.Value, rotatedRefresh.Value)

	// 7. Re-using the now-rotated-away refresh token is reuse detection.
	rec = doJSON(t, ts.srv, http.MethodPost, "/auth/refresh", nil, []*http.Cookie{refreshCookie})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 8. Login issues a brand-new token family independent of the above.
	rec = doJSON(t, ts.srv, http.MethodPost, "/auth/login", map[string]any{
		"email":         "alice@example.com",
		"auth_verifier": []byte("verifier-bytes"),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestVault_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rec := doJSON(t, ts.srv, http.MethodGet, "/vault/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewServer_BuildsRouterWithNilPool(t *testing.T) {
	// NewServer accepts a nil pool; only /health would dereference it, and
	// this test suite never hits /health.
	ts := newTestServer(t)
	assert.NotNil(t, ts.srv.Router)
}

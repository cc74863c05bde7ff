package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/helpers"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/api/middleware"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/models"
	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/vault"
)

// VaultHandler groups the HTTP handlers for C9. Every method resolves the
// owner from the access-token-bearing context; none ever accept an owner
// id from the request body (spec.md §4.6's "scope reads/writes by
// owner_id = claims.sub").
type VaultHandler struct {
	service *vault.Service
}

func NewVaultHandler(service *vault.Service) *VaultHandler {
	return &VaultHandler{service: service}
}

type vaultItemRequest struct {
	Title         string               `json:"title"`
	ItemType      models.VaultItemType `json:"item_type"`
	EncryptedData []byte               `json:"encrypted_data"`
	Nonce         []byte               `json:"nonce"`
}

// Create implements POST /vault/.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vaultItemRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := middleware.MustGetUserID(r.Context())

	item, err := h.service.Create(r.Context(), owner, vault.CreateInput{
		Title:         req.Title,
		ItemType:      req.ItemType,
		EncryptedData: req.EncryptedData,
		Nonce:         req.Nonce,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusCreated, item)
}

// ListAll implements GET /vault/.
func (h *VaultHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetUserID(r.Context())
	items, err := h.service.ListAll(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, items)
}

// Search implements GET /vault/search.
func (h *VaultHandler) Search(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetUserID(r.Context())
	query := r.URL.Query().Get("q")
	items, err := h.service.SearchByTitle(r.Context(), owner, query)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, items)
}

// Update implements PUT /vault/{id}. A cross-owner id is a silent no-op
// returning 200 with the submitted shape, per spec.md §4.6/§9(a).
func (h *VaultHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req vaultItemRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner := middleware.MustGetUserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Update(r.Context(), owner, vault.UpdateInput{
		ID:            id,
		Title:         req.Title,
		ItemType:      req.ItemType,
		EncryptedData: req.EncryptedData,
		Nonce:         req.Nonce,
	}); err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

// Delete implements DELETE /vault/{id}. Same cross-owner no-op semantics
// as Update.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetUserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	helpers.RespondJSON(w, http.StatusOK, map[string]string{})
}

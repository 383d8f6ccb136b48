package handler

import (
	"fmt"
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/go-chi/chi/v5"
)

// APIKeyHandler handles API key endpoints.
type APIKeyHandler struct {
	sandbox *service.SandboxService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(sandbox *service.SandboxService) *APIKeyHandler {
	return &APIKeyHandler{sandbox: sandbox}
}

// requireOwner reports a resource outside the environment in the path as missing.
func requireOwner(r *http.Request, ownerID string) error {
	if envID := chi.URLParam(r, "env_id"); ownerID != envID {
		return fmt.Errorf("resource not in environment %s: %w", envID, domain.ErrNotFound)
	}
	return nil
}

// Create creates a new API key.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	key, err := h.sandbox.AddAPIKey(r.Context(), &domain.APIKey{
		EnvironmentID: chi.URLParam(r, "env_id"),
		Name:          req.Name,
		Permissions:   req.Permissions,
		ExpiresAt:     req.ExpiresAt,
		RateLimit:     req.RateLimit,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, key)
}

// List lists the API keys of an environment.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.sandbox.ListAPIKeys(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

func (h *APIKeyHandler) load(r *http.Request) (*domain.APIKey, error) {
	key, err := h.sandbox.GetAPIKey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := requireOwner(r, key.EnvironmentID); err != nil {
		return nil, err
	}
	return key, nil
}

// Get gets an API key by ID.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, key)
}

// Update updates an API key's name, permissions, expiry or rate limit.
func (h *APIKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	key, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if req.Name != nil {
		key.Name = *req.Name
	}
	if req.Permissions != nil {
		key.Permissions = req.Permissions
	}
	if req.ExpiresAt != nil {
		key.ExpiresAt = req.ExpiresAt
	}
	if req.RateLimit != nil {
		key.RateLimit = req.RateLimit
	}

	updated, err := h.sandbox.UpdateAPIKey(r.Context(), key)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Revoke revokes an API key. Revoking twice succeeds.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	key, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	revoked, err := h.sandbox.RevokeAPIKey(r.Context(), key.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, revoked)
}

// Delete deletes an API key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.sandbox.DeleteAPIKey(r.Context(), key.ID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

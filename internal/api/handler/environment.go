package handler

import (
	"net/http"
	"reflect"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/go-chi/chi/v5"
)

// EnvironmentHandler handles environment endpoints.
type EnvironmentHandler struct {
	sandbox *service.SandboxService
}

// NewEnvironmentHandler creates a new EnvironmentHandler.
func NewEnvironmentHandler(sandbox *service.SandboxService) *EnvironmentHandler {
	return &EnvironmentHandler{sandbox: sandbox}
}

// Create creates a new environment.
func (h *EnvironmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEnvironmentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	env := &domain.Environment{
		Name:        req.Name,
		Description: req.Description,
		Region:      req.Region,
		OwnerID:     req.OwnerID,
		Status:      req.Status,
		Config:      domain.DefaultEnvironmentConfig(),
	}
	if req.Config != nil {
		env.Config = *req.Config
	}
	if env.Region == "" {
		env.Region = "us-east-1"
	}

	created, err := h.sandbox.AddEnvironment(r.Context(), env)
	if err != nil {
		handleError(w, err)
		return
	}

	SetEnvironmentETag(w, created)
	respondJSON(w, http.StatusCreated, created)
}

// List lists all environments with their key and webhook counts.
func (h *EnvironmentHandler) List(w http.ResponseWriter, r *http.Request) {
	envs, err := h.sandbox.ListEnvironments(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, envs)
}

// Get gets an environment by ID.
func (h *EnvironmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	env, err := h.sandbox.GetEnvironment(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	SetEnvironmentETag(w, env)
	respondJSON(w, http.StatusOK, env)
}

// Update applies a partial update. UpdatedAt only moves when something changed.
func (h *EnvironmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateEnvironmentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	env, err := h.sandbox.GetEnvironment(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	if !CheckEnvironmentIfMatch(r, env) {
		RespondPreconditionFailed(w, "environment", env.ID, env.UpdatedAt)
		return
	}

	before := *env
	if req.Name != nil {
		env.Name = *req.Name
	}
	if req.Description != nil {
		env.Description = *req.Description
	}
	if req.Region != nil {
		env.Region = *req.Region
	}
	if req.Config != nil {
		env.Config = *req.Config
	}
	if !reflect.DeepEqual(before, *env) {
		env.UpdatedAt = h.sandbox.Now()
	}

	updated, err := h.sandbox.UpdateEnvironment(r.Context(), env)
	if err != nil {
		handleError(w, err)
		return
	}

	SetEnvironmentETag(w, updated)
	respondJSON(w, http.StatusOK, updated)
}

// Delete deletes an environment and everything it owns. Deleting a missing
// environment succeeds.
func (h *EnvironmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sandbox.DeleteEnvironment(r.Context(), chi.URLParam(r, "env_id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Start moves a stopped environment to active.
func (h *EnvironmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	env, err := h.sandbox.StartEnvironment(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	SetEnvironmentETag(w, env)
	respondJSON(w, http.StatusOK, env)
}

// Stop moves an active environment to stopped.
func (h *EnvironmentHandler) Stop(w http.ResponseWriter, r *http.Request) {
	env, err := h.sandbox.StopEnvironment(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	SetEnvironmentETag(w, env)
	respondJSON(w, http.StatusOK, env)
}

// Select marks the environment as selected.
func (h *EnvironmentHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "env_id")
	if err := h.sandbox.SelectEnvironment(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"environmentId": id})
}

// Selection returns the selected environment id, empty when none is selected.
func (h *EnvironmentHandler) Selection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"environmentId": h.sandbox.SelectedEnvironment()})
}

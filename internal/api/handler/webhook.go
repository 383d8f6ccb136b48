package handler

import (
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/go-chi/chi/v5"
)

// WebhookHandler handles webhook endpoints.
type WebhookHandler struct {
	sandbox *service.SandboxService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(sandbox *service.SandboxService) *WebhookHandler {
	return &WebhookHandler{sandbox: sandbox}
}

// Create creates a new webhook.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	hook := &domain.Webhook{
		EnvironmentID: chi.URLParam(r, "env_id"),
		Name:          req.Name,
		URL:           req.URL,
		Secret:        req.Secret,
		Events:        req.Events,
		RetryPolicy:   domain.RetryPolicy{Enabled: true, MaxRetries: 3},
	}
	if req.RetryPolicy != nil {
		hook.RetryPolicy = *req.RetryPolicy
	}

	created, err := h.sandbox.AddWebhook(r.Context(), hook)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// List lists the webhooks of an environment.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.sandbox.ListWebhooks(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, hooks)
}

func (h *WebhookHandler) load(r *http.Request) (*domain.Webhook, error) {
	hook, err := h.sandbox.GetWebhook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := requireOwner(r, hook.EnvironmentID); err != nil {
		return nil, err
	}
	return hook, nil
}

// Get gets a webhook by ID.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	hook, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, hook)
}

// Update updates a webhook.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	hook, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if req.Name != nil {
		hook.Name = *req.Name
	}
	if req.URL != nil {
		hook.URL = *req.URL
	}
	if req.Events != nil {
		hook.Events = req.Events
	}
	if req.Status != nil {
		hook.Status = *req.Status
	}
	if req.RetryPolicy != nil {
		hook.RetryPolicy = *req.RetryPolicy
	}

	updated, err := h.sandbox.UpdateWebhook(r.Context(), hook)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete deletes a webhook.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hook, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.sandbox.DeleteWebhook(r.Context(), hook.ID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type testWebhookRequest struct {
	Event string `json:"event,omitempty"`
}

// Test simulates a signed delivery and records it in the environment's logs.
// The request body is optional.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testWebhookRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, err)
			return
		}
	}

	hook, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.sandbox.TestWebhook(r.Context(), hook.ID, req.Event)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

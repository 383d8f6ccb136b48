package handler

import (
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/go-chi/chi/v5"
)

// DefaultMetricsWindow is the number of minutes covered when no window is given.
const DefaultMetricsWindow = 60

// AlertHandler handles alert rule and metrics endpoints.
type AlertHandler struct {
	sandbox *service.SandboxService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(sandbox *service.SandboxService) *AlertHandler {
	return &AlertHandler{sandbox: sandbox}
}

// Create creates a new alert rule.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAlertRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	rule, err := h.sandbox.AddAlertRule(r.Context(), &domain.AlertRule{
		EnvironmentID:   chi.URLParam(r, "env_id"),
		Name:            req.Name,
		Metric:          req.Metric,
		Operator:        req.Operator,
		Threshold:       req.Threshold,
		DurationMinutes: req.DurationMinutes,
		Channels:        req.Channels,
		Recipients:      req.Recipients,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// List lists the alert rules of an environment.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.sandbox.ListAlertRules(r.Context(), chi.URLParam(r, "env_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (h *AlertHandler) load(r *http.Request) (*domain.AlertRule, error) {
	rule, err := h.sandbox.GetAlertRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if err := requireOwner(r, rule.EnvironmentID); err != nil {
		return nil, err
	}
	return rule, nil
}

// Get gets an alert rule by ID.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update updates an alert rule.
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAlertRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	rule, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Operator != nil {
		rule.Operator = *req.Operator
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.DurationMinutes != nil {
		rule.DurationMinutes = *req.DurationMinutes
	}
	if req.Status != nil {
		rule.Status = *req.Status
	}
	if req.Channels != nil {
		rule.Channels = req.Channels
	}
	if req.Recipients != nil {
		rule.Recipients = req.Recipients
	}

	updated, err := h.sandbox.UpdateAlertRule(r.Context(), rule)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// Delete deletes an alert rule.
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rule, err := h.load(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.sandbox.DeleteAlertRule(r.Context(), rule.ID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Evaluate checks every rule of the environment against fresh metrics.
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window", 1)
	if err != nil {
		handleError(w, err)
		return
	}

	evals, err := h.sandbox.EvaluateAlerts(r.Context(), chi.URLParam(r, "env_id"), window)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, evals)
}

// Metrics returns synthetic per-minute series for the environment.
func (h *AlertHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window", DefaultMetricsWindow)
	if err != nil {
		handleError(w, err)
		return
	}

	snap, err := h.sandbox.Metrics(r.Context(), chi.URLParam(r, "env_id"), window)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

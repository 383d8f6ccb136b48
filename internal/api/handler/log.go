package handler

import (
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/go-chi/chi/v5"
)

// LogHandler handles log stream endpoints.
type LogHandler struct {
	sandbox *service.SandboxService
	tail    *service.TailService
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(sandbox *service.SandboxService, tail *service.TailService) *LogHandler {
	return &LogHandler{sandbox: sandbox, tail: tail}
}

// List lists an environment's log entries, newest first.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(w, err)
		return
	}

	q := r.URL.Query()
	entries, err := h.sandbox.ListLogs(r.Context(), chi.URLParam(r, "env_id"), domain.LogFilter{
		Level:  domain.LogLevel(q.Get("level")),
		Source: domain.LogSource(q.Get("source")),
		Limit:  limit,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// Create appends an entry to the environment's log stream.
func (h *LogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLogRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	entry, err := h.sandbox.AddLog(r.Context(), &domain.LogEntry{
		EnvironmentID: chi.URLParam(r, "env_id"),
		Level:         req.Level,
		Source:        req.Source,
		Message:       req.Message,
		Details:       req.Details,
		RequestID:     req.RequestID,
		StatusCode:    req.StatusCode,
		LatencyMS:     req.LatencyMS,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// Refresh replaces the environment's logs with a fresh synthetic batch.
// With ?debounce=true the refresh is scheduled and 202 is returned, unless
// scheduling is disabled, in which case it runs immediately.
func (h *LogHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	envID := chi.URLParam(r, "env_id")

	if r.URL.Query().Get("debounce") == "true" && h.tail.Enabled() {
		if _, err := h.sandbox.GetEnvironment(r.Context(), envID); err != nil {
			handleError(w, err)
			return
		}
		h.tail.TriggerRefresh(envID)
		respondJSON(w, http.StatusAccepted, map[string]any{"environmentId": envID, "scheduled": h.tail.Pending(envID)})
		return
	}

	entries, err := h.tail.ForceRefresh(r.Context(), envID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

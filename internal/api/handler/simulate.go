package handler

import (
	"fmt"
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/datagen"
	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/bcnelson/sandbox-console/internal/snippet"
	"github.com/rs/zerolog/log"
)

// SimulatorHandler handles the endpoint catalog, simulated calls, snippets
// and mock data generation.
type SimulatorHandler struct {
	sandbox   *service.SandboxService
	simulator *simulator.Simulator
	generator *datagen.Generator
}

// NewSimulatorHandler creates a new SimulatorHandler.
func NewSimulatorHandler(sandbox *service.SandboxService, sim *simulator.Simulator, gen *datagen.Generator) *SimulatorHandler {
	return &SimulatorHandler{sandbox: sandbox, simulator: sim, generator: gen}
}

// Catalog lists the mock endpoints.
func (h *SimulatorHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.simulator.Catalog())
}

// Snippet renders client code for one catalog endpoint. Without lang every
// supported language is rendered. env_id and key_id personalise the base URL
// and key.
func (h *SimulatorHandler) Snippet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	endpoint, ok := simulator.FindEndpoint(h.simulator.Catalog(), q.Get("method"), q.Get("path"))
	if !ok {
		handleError(w, fmt.Errorf("no catalog endpoint %s %s: %w", q.Get("method"), q.Get("path"), domain.ErrNotFound))
		return
	}

	sctx := snippet.Context{BaseURL: snippet.BaseURL("")}
	if envID := q.Get("env_id"); envID != "" {
		env, err := h.sandbox.GetEnvironment(r.Context(), envID)
		if err != nil {
			handleError(w, err)
			return
		}
		sctx.BaseURL = snippet.BaseURL(env.Name)
	}
	if keyID := q.Get("key_id"); keyID != "" {
		key, err := h.sandbox.GetAPIKey(r.Context(), keyID)
		if err != nil {
			handleError(w, err)
			return
		}
		sctx.APIKey = key.Key
	}

	if lang := q.Get("lang"); lang != "" {
		code, err := snippet.Render(lang, endpoint, sctx)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{lang: code})
		return
	}

	all, err := snippet.RenderAll(endpoint, sctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, all)
}

type simulateRequest struct {
	simulator.Request
	EnvironmentID string `json:"environmentId,omitempty"`
	// Log records the outcome in the environment's log stream.
	Log bool `json:"log,omitempty"`
}

// Simulate evaluates a mock call. The synthesised status is in the body; the
// HTTP status is 200 whenever the simulation itself ran. Disconnecting
// abandons the call.
func (h *SimulatorHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Path == "" {
		handleError(w, fmt.Errorf("path is required: %w", domain.ErrInvalidInput))
		return
	}
	if req.Log && req.EnvironmentID == "" {
		handleError(w, fmt.Errorf("environmentId is required to log a call: %w", domain.ErrInvalidInput))
		return
	}

	pending := h.simulator.Start(r.Context(), req.Request)
	resp, err := pending.Wait(r.Context())
	if err != nil {
		pending.Cancel()
		if simulator.IsCancelled(err) {
			log.Debug().Str("path", req.Path).Msg("Simulated call abandoned")
			return
		}
		handleError(w, err)
		return
	}

	if req.Log {
		if _, err := h.sandbox.RecordSimulation(r.Context(), req.EnvironmentID, req.Request, resp); err != nil {
			handleError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// Generate asks the completion backend for mock data.
func (h *SimulatorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req datagen.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

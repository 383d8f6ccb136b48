// Package simulator evaluates simulated HTTP calls against the mock endpoint
// catalog and the sandbox's API keys without any network I/O.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/mockdata"
)

const (
	DefaultMinLatency = 100 * time.Millisecond
	DefaultMaxLatency = 1500 * time.Millisecond
)

// Request is a simulated call. Body and Headers are raw JSON supplied by the
// caller; anything that does not parse as a JSON object is treated as {}.
type Request struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	APIKeyID string `json:"apiKeyId,omitempty"`
	Body     string `json:"body,omitempty"`
	Headers  string `json:"headers,omitempty"`
}

// Response is the synthesised outcome of a simulated call.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       any               `json:"body"`
	Headers    map[string]string `json:"headers"`
	LatencyMS  int               `json:"latencyMs"`
	RequestID  string            `json:"requestId"`
	Endpoint   *domain.Endpoint  `json:"endpoint,omitempty"`
}

// ErrorBody is the body of every non-success outcome.
type ErrorBody struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// KeyLookup resolves API keys by id. The simulator never mutates keys.
type KeyLookup interface {
	GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error)
}

// Recorder observes every evaluated outcome.
type Recorder interface {
	ObserveSimulation(method string, status int, latency time.Duration)
}

// Config controls latency sampling. A zero Config uses the defaults and does
// not sleep in Call.
type Config struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	// Delay makes Call wait for the sampled latency before returning.
	Delay    bool
	Catalog  []domain.Endpoint
	Recorder Recorder
}

// Simulator evaluates requests. It is safe for concurrent use.
type Simulator struct {
	keys     KeyLookup
	gen      *mockdata.Generator
	catalog  []domain.Endpoint
	min, max time.Duration
	delay    bool
	recorder Recorder
}

// New creates a simulator reading keys through keys and drawing randomness from gen.
func New(keys KeyLookup, gen *mockdata.Generator, cfg Config) *Simulator {
	s := &Simulator{
		keys:     keys,
		gen:      gen,
		catalog:  cfg.Catalog,
		min:      cfg.MinLatency,
		max:      cfg.MaxLatency,
		delay:    cfg.Delay,
		recorder: cfg.Recorder,
	}
	if s.catalog == nil {
		s.catalog = DefaultCatalog()
	}
	if s.min <= 0 && s.max <= 0 {
		s.min, s.max = DefaultMinLatency, DefaultMaxLatency
	}
	if s.max < s.min {
		s.max = s.min
	}
	return s
}

// Catalog returns the endpoints the simulator knows about.
func (s *Simulator) Catalog() []domain.Endpoint {
	return slices.Clone(s.catalog)
}

// Evaluate classifies req and synthesises a response. It never sleeps and
// only fails if ctx is already done.
func (s *Simulator) Evaluate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	body := parseObject(req.Body)
	headers := parseObject(req.Headers)

	resp := &Response{
		LatencyMS: int(s.gen.Duration(s.min, s.max).Milliseconds()),
		RequestID: requestID(headers, s.gen),
	}
	resp.StatusCode, resp.Body, resp.Endpoint = s.classify(ctx, method, req.Path, req.APIKeyID, body)
	resp.Headers = map[string]string{
		"Content-Type": "application/json",
		"X-Request-Id": resp.RequestID,
	}

	if s.recorder != nil {
		s.recorder.ObserveSimulation(method, resp.StatusCode, time.Duration(resp.LatencyMS)*time.Millisecond)
	}
	return resp, nil
}

// Call evaluates req and, when delays are enabled, waits for the sampled
// latency. Cancelling ctx abandons the call with ctx.Err().
func (s *Simulator) Call(ctx context.Context, req Request) (*Response, error) {
	resp, err := s.Evaluate(ctx, req)
	if err != nil || !s.delay {
		return resp, err
	}
	timer := time.NewTimer(time.Duration(resp.LatencyMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Simulator) classify(ctx context.Context, method, path, keyID string, body map[string]any) (int, any, *domain.Endpoint) {
	entries, params := lookup(s.catalog, path)
	if len(entries) == 0 {
		return http.StatusNotFound, ErrorBody{
			Message: "Mock endpoint not found",
			Details: fmt.Sprintf("%s, %s", path, method),
		}, nil
	}

	idx := slices.IndexFunc(entries, func(e domain.Endpoint) bool { return e.Method == method })
	if idx < 0 {
		allowed := make([]string, len(entries))
		for i, e := range entries {
			allowed[i] = e.Method
		}
		return http.StatusMethodNotAllowed, ErrorBody{
			Message: "Method not allowed",
			Details: fmt.Sprintf("%s supports %s, got %s", path, strings.Join(allowed, ", "), method),
		}, nil
	}
	endpoint := entries[idx]

	if endpoint.RequiresAuth {
		if status, msg := s.authorize(ctx, method, keyID); status != 0 {
			return status, ErrorBody{Message: msg}, &endpoint
		}
	}

	status, payload := s.succeed(method, &endpoint, params, body)
	return status, payload, &endpoint
}

// authorize returns a zero status when the key may perform method.
func (s *Simulator) authorize(ctx context.Context, method, keyID string) (int, string) {
	if keyID == "" {
		return http.StatusUnauthorized, "API Key required"
	}
	key, err := s.keys.GetAPIKey(ctx, keyID)
	if err != nil || key == nil || key.Status != domain.APIKeyActive {
		return http.StatusUnauthorized, "Invalid or revoked API Key"
	}
	if !Permitted(key, method) {
		return http.StatusForbidden, "Insufficient permissions"
	}
	return 0, ""
}

// Permitted reports whether key may call method. Write methods need
// write:data, every other method needs read:data, and admin may do anything.
func Permitted(key *domain.APIKey, method string) bool {
	if key.HasPermission(domain.PermissionAdmin) {
		return true
	}
	if IsWrite(method) {
		return key.HasPermission(domain.PermissionWriteData)
	}
	return key.HasPermission(domain.PermissionReadData)
}

// IsWrite reports whether method mutates state.
func IsWrite(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (s *Simulator) succeed(method string, endpoint *domain.Endpoint, params map[string]string, body map[string]any) (int, any) {
	id, hasID := params["id"]
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		if endpoint.HasIDParam() {
			obj := s.gen.Object(endpoint.ResponseSchema)
			if hasID {
				obj["id"] = id
			}
			return http.StatusOK, obj
		}
		return http.StatusOK, s.gen.Objects(endpoint.ResponseSchema, s.gen.Between(3, 10))
	case http.MethodPost:
		newID := s.gen.Object(nil)["id"]
		return http.StatusCreated, map[string]any{
			"id":      newID,
			"message": "Resource created successfully",
			"data":    body,
		}
	case http.MethodPut, http.MethodPatch:
		out := map[string]any{
			"message": "Resource updated successfully",
			"data":    body,
		}
		if hasID {
			out["id"] = id
		}
		return http.StatusOK, out
	case http.MethodDelete:
		return http.StatusNoContent, map[string]any{"message": "Resource deleted successfully"}
	}
	return http.StatusOK, map[string]any{"message": "OK"}
}

// parseObject decodes raw as a JSON object, falling back to an empty one.
func parseObject(raw string) map[string]any {
	out := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return out
	}
	return v
}

func requestID(headers map[string]any, gen *mockdata.Generator) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Request-Id") {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return gen.RequestID()
}

// IsCancelled reports whether err came from abandoning a pending call.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

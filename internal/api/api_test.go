package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/sandbox-console/internal/api"
	"github.com/bcnelson/sandbox-console/internal/completion"
	"github.com/bcnelson/sandbox-console/internal/datagen"
	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/mockdata"
	"github.com/bcnelson/sandbox-console/internal/observability"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/bcnelson/sandbox-console/internal/storage/memory"
)

// testServer wires the full stack over in-memory storage
type testServer struct {
	handler http.Handler
	sandbox *service.SandboxService
}

func newTestServer() *testServer {
	return newTestServerWithCompletion(completion.Static("Here you go:\n```json\n[{\"id\": 1, \"name\": \"Ada\"}]\n```"))
}

func newTestServerWithCompletion(client completion.Client) *testServer {
	store := memory.New()
	gen := mockdata.New(7)
	metrics := observability.NewMetrics()

	sandbox := service.NewSandboxService(store, gen, metrics)
	// Auto-refresh disabled so tests only see explicit refreshes
	tail := service.NewTailService(sandbox, 5*time.Second, false)
	sim := simulator.New(store, gen, simulator.Config{Recorder: metrics})

	return &testServer{
		handler: api.NewRouter(sandbox, tail, sim, datagen.New(client), metrics),
		sandbox: sandbox,
	}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	return ts.requestWithHeaders(method, path, body, nil)
}

func (ts *testServer) requestWithHeaders(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) createEnvironment(t *testing.T, name string) domain.Environment {
	t.Helper()
	rr := ts.request("POST", "/api/v1/environments", domain.CreateEnvironmentRequest{Name: name})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var env domain.Environment
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return env
}

func (ts *testServer) createKey(t *testing.T, envID string, perms ...string) domain.APIKey {
	t.Helper()
	rr := ts.request("POST", "/api/v1/environments/"+envID+"/keys", domain.CreateAPIKeyRequest{
		Name:        "key " + strings.Join(perms, "+"),
		Permissions: perms,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var key domain.APIKey
	_ = json.Unmarshal(rr.Body.Bytes(), &key)
	return key
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("GET", "/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	ts.request("GET", "/health", nil)

	rr := ts.request("GET", "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `sandbox_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("Expected health request to be counted, got:\n%s", rr.Body.String())
	}
}

func TestEnvironmentCRUD(t *testing.T) {
	ts := newTestServer()

	env := ts.createEnvironment(t, "Staging")
	if env.Status != domain.EnvironmentActive {
		t.Errorf("Expected status active, got %s", env.Status)
	}
	if env.Config.RateLimit != domain.DefaultEnvironmentConfig().RateLimit {
		t.Errorf("Expected default config, got %+v", env.Config)
	}

	rr := ts.request("GET", "/api/v1/environments/"+env.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Error("Expected ETag header")
	}

	// Update with a stale ETag
	desc := "Pre-production"
	rr = ts.requestWithHeaders("PUT", "/api/v1/environments/"+env.ID, domain.UpdateEnvironmentRequest{Description: &desc},
		map[string]string{"If-Match": `"environment-stale-0"`})
	if rr.Code != http.StatusPreconditionFailed {
		t.Errorf("Expected status 412, got %d", rr.Code)
	}

	// Update with the current ETag
	rr = ts.requestWithHeaders("PUT", "/api/v1/environments/"+env.ID, domain.UpdateEnvironmentRequest{Description: &desc},
		map[string]string{"If-Match": etag})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated domain.Environment
	_ = json.Unmarshal(rr.Body.Bytes(), &updated)
	if updated.Description != desc {
		t.Errorf("Expected description %q, got %q", desc, updated.Description)
	}

	// Same payload again leaves the resource unchanged
	rr = ts.request("PUT", "/api/v1/environments/"+env.ID, domain.UpdateEnvironmentRequest{Description: &desc})
	var again domain.Environment
	_ = json.Unmarshal(rr.Body.Bytes(), &again)
	if !again.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Errorf("Expected idempotent update to keep updatedAt %s, got %s", updated.UpdatedAt, again.UpdatedAt)
	}

	rr = ts.request("GET", "/api/v1/environments", nil)
	var envs []domain.Environment
	_ = json.Unmarshal(rr.Body.Bytes(), &envs)
	if len(envs) != 1 {
		t.Errorf("Expected 1 environment, got %d", len(envs))
	}

	rr = ts.request("DELETE", "/api/v1/environments/"+env.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}

	// Deleting again is a no-op
	rr = ts.request("DELETE", "/api/v1/environments/"+env.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for repeated delete, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestEnvironmentLifecycleAndSelection(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")

	rr := ts.request("POST", "/api/v1/environments/"+env.ID+"/start", nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 starting an active environment, got %d", rr.Code)
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/stop", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/select", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/selection", nil)
	var sel map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &sel)
	if sel["environmentId"] != env.ID {
		t.Errorf("Expected selection %s, got %s", env.ID, sel["environmentId"])
	}

	ts.request("DELETE", "/api/v1/environments/"+env.ID, nil)
	rr = ts.request("GET", "/api/v1/selection", nil)
	_ = json.Unmarshal(rr.Body.Bytes(), &sel)
	if sel["environmentId"] != "" {
		t.Errorf("Expected selection to clear, got %s", sel["environmentId"])
	}
}

func TestCascadeDelete(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")
	other := ts.createEnvironment(t, "QA")

	ts.createKey(t, env.ID, domain.PermissionReadData)
	ts.createKey(t, env.ID, domain.PermissionAdmin)
	otherKey := ts.createKey(t, other.ID, domain.PermissionReadData)

	rr := ts.request("POST", "/api/v1/environments/"+env.ID+"/webhooks", domain.CreateWebhookRequest{
		Name:   "Users",
		URL:    "https://example.com/hooks",
		Events: []string{"user.created"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/logs/refresh", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID, nil)
	var withCounts domain.Environment
	_ = json.Unmarshal(rr.Body.Bytes(), &withCounts)
	if withCounts.APIKeyCount != 2 || withCounts.WebhookCount != 1 {
		t.Errorf("Expected counts 2/1, got %d/%d", withCounts.APIKeyCount, withCounts.WebhookCount)
	}

	ts.request("DELETE", "/api/v1/environments/"+env.ID, nil)

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/keys", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 listing keys of deleted environment, got %d", rr.Code)
	}
	rr = ts.request("GET", "/api/v1/environments/"+other.ID+"/keys/"+otherKey.ID, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected other environment's key to survive, got %d", rr.Code)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")
	other := ts.createEnvironment(t, "QA")

	key := ts.createKey(t, env.ID, domain.PermissionReadData)
	if key.Status != domain.APIKeyActive {
		t.Errorf("Expected active key, got %s", key.Status)
	}
	if !strings.HasPrefix(key.Key, "sk_test_") {
		t.Errorf("Expected obfuscated key, got %q", key.Key)
	}

	// Keys are scoped to the environment in the path
	rr := ts.request("GET", "/api/v1/environments/"+other.ID+"/keys/"+key.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for key of another environment, got %d", rr.Code)
	}

	name := "Renamed"
	rr = ts.request("PUT", "/api/v1/environments/"+env.ID+"/keys/"+key.ID, domain.UpdateAPIKeyRequest{
		Name:        &name,
		Permissions: []string{domain.PermissionReadData, domain.PermissionWriteData},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	for range 2 {
		rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/keys/"+key.ID+"/revoke", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200 revoking, got %d", rr.Code)
		}
	}
	var revoked domain.APIKey
	_ = json.Unmarshal(rr.Body.Bytes(), &revoked)
	if revoked.Status != domain.APIKeyRevoked {
		t.Errorf("Expected revoked, got %s", revoked.Status)
	}

	rr = ts.request("DELETE", "/api/v1/environments/"+env.ID+"/keys/"+key.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
}

func TestWebhookTest(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")

	rr := ts.request("POST", "/api/v1/environments/"+env.ID+"/webhooks", domain.CreateWebhookRequest{
		Name:   "Orders",
		URL:    "https://example.com/hooks/orders",
		Secret: "whsec_test",
		Events: []string{"order.created", "order.completed"},
	})
	var hook domain.Webhook
	_ = json.Unmarshal(rr.Body.Bytes(), &hook)
	if hook.RetryPolicy.MaxRetries != 3 {
		t.Errorf("Expected default retry policy, got %+v", hook.RetryPolicy)
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/webhooks/"+hook.ID+"/test", map[string]string{"event": "order.completed"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result domain.WebhookTestResult
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	if !result.Delivered || !strings.HasPrefix(result.Signature, "sha256=") {
		t.Errorf("Unexpected test result %+v", result)
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/logs?source=Webhook", nil)
	var logs []domain.LogEntry
	_ = json.Unmarshal(rr.Body.Bytes(), &logs)
	if len(logs) != 1 {
		t.Errorf("Expected 1 webhook log entry, got %d", len(logs))
	}
}

func TestLogs(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")

	rr := ts.request("POST", "/api/v1/environments/"+env.ID+"/logs", domain.CreateLogRequest{
		Level:   domain.LogError,
		Source:  domain.SourceSystem,
		Message: "disk full",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/logs", map[string]string{"level": "LOUD", "source": "System", "message": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown level, got %d", rr.Code)
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/logs/refresh", nil)
	var batch []domain.LogEntry
	_ = json.Unmarshal(rr.Body.Bytes(), &batch)
	if len(batch) != mockdata.DefaultLogBatch {
		t.Errorf("Expected %d entries, got %d", mockdata.DefaultLogBatch, len(batch))
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/logs?limit=5", nil)
	var limited []domain.LogEntry
	_ = json.Unmarshal(rr.Body.Bytes(), &limited)
	if len(limited) != 5 {
		t.Errorf("Expected 5 entries, got %d", len(limited))
	}
	for _, e := range limited {
		if e.Message == "disk full" {
			t.Error("Refresh should replace, not append")
		}
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/logs?limit=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad limit, got %d", rr.Code)
	}

	// Scheduling is disabled on the test server, so the refresh runs inline
	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/logs/refresh?debounce=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 when debouncing is disabled, got %d", rr.Code)
	}
	var inline []domain.LogEntry
	_ = json.Unmarshal(rr.Body.Bytes(), &inline)
	if len(inline) != mockdata.DefaultLogBatch {
		t.Fatalf("Expected %d entries, got %d", mockdata.DefaultLogBatch, len(inline))
	}
	if inline[0].ID == batch[0].ID {
		t.Error("Expected a fresh batch")
	}
}

func TestAlertsAndMetrics(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")

	rr := ts.request("POST", "/api/v1/environments/"+env.ID+"/alerts", domain.CreateAlertRuleRequest{
		Name:            "Latency",
		Metric:          domain.MetricAPILatency,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       0,
		DurationMinutes: 3,
		Channels:        []string{"slack"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var rule domain.AlertRule
	_ = json.Unmarshal(rr.Body.Bytes(), &rule)

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/alerts/evaluate", nil)
	var evals []domain.AlertEvaluation
	_ = json.Unmarshal(rr.Body.Bytes(), &evals)
	if len(evals) != 1 || !evals[0].Firing {
		t.Errorf("Expected one firing evaluation (latency is always above 0), got %+v", evals)
	}

	paused := domain.AlertPaused
	rr = ts.request("PUT", "/api/v1/environments/"+env.ID+"/alerts/"+rule.ID, domain.UpdateAlertRuleRequest{Status: &paused})
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/metrics?window=15", nil)
	var snap domain.MetricsSnapshot
	_ = json.Unmarshal(rr.Body.Bytes(), &snap)
	if len(snap.Series[domain.SeriesAPIRequests]) != 15 {
		t.Errorf("Expected 15 points, got %d", len(snap.Series[domain.SeriesAPIRequests]))
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/alerts", map[string]any{
		"name": "Bad", "metric": "cpu", "operator": "gt", "durationMinutes": 1, "channels": []string{"email"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown metric, got %d", rr.Code)
	}

	// Oversized windows are rejected before any series is built
	for _, path := range []string{
		"/api/v1/environments/" + env.ID + "/metrics?window=100000000",
		"/api/v1/environments/" + env.ID + "/alerts/evaluate?window=1441",
	} {
		rr = ts.request("GET", path, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %s, got %d", path, rr.Code)
		}
		var errResp domain.StandardErrorResponse
		_ = json.Unmarshal(rr.Body.Bytes(), &errResp)
		if errResp.Error.Code != domain.ErrCodeValidationError || errResp.Error.Field != "window" {
			t.Errorf("Expected validation error on window, got %+v", errResp.Error)
		}
	}

	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/alerts", domain.CreateAlertRuleRequest{
		Name:            "Forever",
		Metric:          domain.MetricAPIErrors,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       1,
		DurationMinutes: domain.MaxMetricsWindow + 1,
		Channels:        []string{"email"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for oversized duration, got %d", rr.Code)
	}
}

func TestSimulate(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Staging")
	reader := ts.createKey(t, env.ID, domain.PermissionReadData)

	tests := []struct {
		name   string
		req    map[string]any
		status int
	}{
		{"read allowed", map[string]any{"method": "GET", "path": "/users", "apiKeyId": reader.ID}, 200},
		{"write forbidden", map[string]any{"method": "POST", "path": "/users", "apiKeyId": reader.ID}, 403},
		{"no key", map[string]any{"method": "GET", "path": "/users"}, 401},
		{"unknown path", map[string]any{"method": "GET", "path": "/nope", "apiKeyId": reader.ID}, 404},
		{"wrong method", map[string]any{"method": "PATCH", "path": "/orders", "apiKeyId": reader.ID}, 405},
		{"public", map[string]any{"method": "GET", "path": "/products"}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request("POST", "/api/v1/simulate", tt.req)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp simulator.Response
			_ = json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.StatusCode != tt.status {
				t.Errorf("Expected simulated status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}

	rr := ts.request("POST", "/api/v1/simulate", map[string]any{
		"method": "GET", "path": "/users/42", "apiKeyId": reader.ID, "environmentId": env.ID, "log": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	rr = ts.request("GET", "/api/v1/environments/"+env.ID+"/logs?source=API", nil)
	var logs []domain.LogEntry
	_ = json.Unmarshal(rr.Body.Bytes(), &logs)
	if len(logs) != 1 || logs[0].Message != "GET /users/42 200" {
		t.Errorf("Expected one logged call, got %+v", logs)
	}

	rr = ts.request("POST", "/api/v1/simulate", map[string]any{"method": "GET"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without path, got %d", rr.Code)
	}
}

func TestCatalogAndSnippets(t *testing.T) {
	ts := newTestServer()
	env := ts.createEnvironment(t, "Partner Preview")
	key := ts.createKey(t, env.ID, domain.PermissionAdmin)

	rr := ts.request("GET", "/api/v1/catalog", nil)
	var catalog []domain.Endpoint
	_ = json.Unmarshal(rr.Body.Bytes(), &catalog)
	if len(catalog) == 0 {
		t.Fatal("Expected a non-empty catalog")
	}

	rr = ts.request("GET", "/api/v1/catalog/snippet?method=GET&path=/users/{id}&lang=curl&env_id="+env.ID+"&key_id="+key.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var one map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &one)
	if !strings.Contains(one["curl"], "https://partner-preview.sandbox.local/v1/users/example_id") {
		t.Errorf("Expected personalised URL, got:\n%s", one["curl"])
	}
	if !strings.Contains(one["curl"], key.Key) {
		t.Errorf("Expected key in snippet, got:\n%s", one["curl"])
	}

	rr = ts.request("GET", "/api/v1/catalog/snippet?method=POST&path=/users", nil)
	var all map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &all)
	if len(all) != 4 {
		t.Errorf("Expected 4 languages, got %d", len(all))
	}

	rr = ts.request("GET", "/api/v1/catalog/snippet?method=GET&path=/users&lang=cobol", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown language, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/catalog/snippet?method=GET&path=/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown endpoint, got %d", rr.Code)
	}
}

func TestGenerate(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("POST", "/api/v1/generate", datagen.GenerateRequest{Prompt: "two users", Count: 2})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result struct {
		Data []map[string]any `json:"data"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	if len(result.Data) != 1 || result.Data[0]["name"] != "Ada" {
		t.Errorf("Unexpected data %+v", result.Data)
	}

	rr = ts.request("POST", "/api/v1/generate", datagen.GenerateRequest{Prompt: ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty prompt, got %d", rr.Code)
	}

	bad := newTestServerWithCompletion(completion.Static("I cannot help with that."))
	rr = bad.request("POST", "/api/v1/generate", datagen.GenerateRequest{Prompt: "users"})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502 for unparsable output, got %d", rr.Code)
	}
	var errResp domain.StandardErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &errResp)
	if errResp.Error.Details["raw"] != "I cannot help with that." {
		t.Errorf("Expected raw output in details, got %+v", errResp.Error)
	}

	off := newTestServerWithCompletion(nil)
	rr = off.request("POST", "/api/v1/generate", datagen.GenerateRequest{Prompt: "users"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 without a backend, got %d", rr.Code)
	}
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer()

	// Create environment with missing name
	rr := ts.request("POST", "/api/v1/environments", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
	var errResp domain.StandardErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &errResp)
	if errResp.Error.Code != domain.ErrCodeValidationError || errResp.Error.Field != "name" {
		t.Errorf("Expected validation error on name, got %+v", errResp.Error)
	}

	// Malformed JSON
	req := httptest.NewRequest("POST", "/api/v1/environments", strings.NewReader("{"))
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", rr.Code)
	}

	// Key in a missing environment
	rr = ts.request("POST", "/api/v1/environments/nonexistent/keys", domain.CreateAPIKeyRequest{
		Name:        "k",
		Permissions: []string{domain.PermissionReadData},
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	// Unknown permission
	env := ts.createEnvironment(t, "Staging")
	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/keys", domain.CreateAPIKeyRequest{
		Name:        "k",
		Permissions: []string{"root"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown permission, got %d", rr.Code)
	}

	// Webhook with a non-http URL
	rr = ts.request("POST", "/api/v1/environments/"+env.ID+"/webhooks", domain.CreateWebhookRequest{
		Name:   "ftp",
		URL:    "ftp://example.com/x",
		Events: []string{"user.created"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for ftp URL, got %d", rr.Code)
	}
}

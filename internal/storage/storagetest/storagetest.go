// Package storagetest holds the behavioural suite every storage backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.Storage

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"EnvironmentRoundTrip", testEnvironmentRoundTrip},
		{"UpdateEnvironmentIdempotent", testUpdateEnvironmentIdempotent},
		{"CascadeDelete", testCascadeDelete},
		{"DeleteMissingEnvironment", testDeleteMissingEnvironment},
		{"DependentsRequireEnvironment", testDependentsRequireEnvironment},
		{"UniqueIDs", testUniqueIDs},
		{"APIKeyRoundTrip", testAPIKeyRoundTrip},
		{"WebhookLifecycle", testWebhookLifecycle},
		{"AlertRuleLifecycle", testAlertRuleLifecycle},
		{"LogsNewestFirst", testLogsNewestFirst},
		{"LogFilter", testLogFilter},
		{"ReplaceLogs", testReplaceLogs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func env(id string) *domain.Environment {
	return &domain.Environment{
		ID:          id,
		Name:        "Env " + id,
		Description: "test environment",
		Status:      domain.EnvironmentActive,
		OwnerID:     "user-1",
		Region:      "us-east-1",
		Config:      domain.DefaultEnvironmentConfig(),
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func apiKey(id, envID string) *domain.APIKey {
	return &domain.APIKey{
		ID:            id,
		EnvironmentID: envID,
		Name:          "key " + id,
		Key:           "sk_test_****" + id,
		Status:        domain.APIKeyActive,
		Permissions:   []string{domain.PermissionReadData},
		CreatedAt:     base,
	}
}

func webhook(id, envID string) *domain.Webhook {
	return &domain.Webhook{
		ID:            id,
		EnvironmentID: envID,
		Name:          "hook " + id,
		URL:           "https://example.com/hooks/" + id,
		Secret:        "whsec_" + id,
		Events:        []string{"user.created"},
		Status:        domain.WebhookActive,
		RetryPolicy:   domain.RetryPolicy{Enabled: true, MaxRetries: 3},
		CreatedAt:     base,
	}
}

func logEntry(id, envID string, ts time.Time) *domain.LogEntry {
	return &domain.LogEntry{
		ID:            id,
		EnvironmentID: envID,
		Timestamp:     ts,
		Level:         domain.LogInfo,
		Source:        domain.SourceAPI,
		Message:       "entry " + id,
	}
}

func alertRule(id, envID string) *domain.AlertRule {
	return &domain.AlertRule{
		ID:              id,
		EnvironmentID:   envID,
		Name:            "rule " + id,
		Metric:          domain.MetricAPIErrors,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       5,
		DurationMinutes: 5,
		Status:          domain.AlertActive,
		Channels:        []string{"email"},
		Recipients:      []string{"ops@example.com"},
		CreatedAt:       base,
	}
}

func ids[T any](items []*T, idOf func(*T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = idOf(it)
	}
	return out
}

func logIDs(entries []*domain.LogEntry) []string {
	return ids(entries, func(e *domain.LogEntry) string { return e.ID })
}

func testEnvironmentRoundTrip(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	e := env("env-1")
	require.NoError(t, s.CreateEnvironment(ctx, e))

	got, err := s.GetEnvironment(ctx, "env-1")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	list, err := s.ListEnvironments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e, list[0])

	_, err = s.GetEnvironment(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.CreateEnvironment(ctx, env("env-1")), domain.ErrAlreadyExists)
}

func testUpdateEnvironmentIdempotent(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("env-1")))

	updated := env("env-1")
	updated.Name = "Renamed"
	updated.Config.PublicAccess = true
	updated.UpdatedAt = base.Add(time.Hour)

	require.NoError(t, s.UpdateEnvironment(ctx, updated))
	once, err := s.GetEnvironment(ctx, "env-1")
	require.NoError(t, err)

	require.NoError(t, s.UpdateEnvironment(ctx, updated))
	twice, err := s.GetEnvironment(ctx, "env-1")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, "Renamed", twice.Name)

	assert.ErrorIs(t, s.UpdateEnvironment(ctx, env("missing")), domain.ErrNotFound)
}

func testCascadeDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))
	require.NoError(t, s.CreateEnvironment(ctx, env("b")))

	for i := range 2 {
		require.NoError(t, s.CreateAPIKey(ctx, apiKey(fmt.Sprintf("a-key-%d", i), "a")))
	}
	for i := range 3 {
		require.NoError(t, s.CreateWebhook(ctx, webhook(fmt.Sprintf("a-hook-%d", i), "a")))
	}
	for i := range 4 {
		require.NoError(t, s.AppendLog(ctx, logEntry(fmt.Sprintf("a-log-%d", i), "a", base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, s.CreateAlertRule(ctx, alertRule("a-rule", "a")))

	require.NoError(t, s.CreateAPIKey(ctx, apiKey("b-key", "b")))
	require.NoError(t, s.CreateWebhook(ctx, webhook("b-hook", "b")))
	require.NoError(t, s.AppendLog(ctx, logEntry("b-log", "b", base)))
	require.NoError(t, s.CreateAlertRule(ctx, alertRule("b-rule", "b")))

	result, err := s.DeleteEnvironment(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, storage.CascadeResult{
		domain.KindAPIKey:    2,
		domain.KindWebhook:   3,
		domain.KindLogEntry:  4,
		domain.KindAlertRule: 1,
	}, result)

	_, err = s.GetEnvironment(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetAPIKey(ctx, "a-key-0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetWebhook(ctx, "a-hook-0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetAlertRule(ctx, "a-rule")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	keys, err := s.ListAPIKeys(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, keys)
	logs, err := s.ListLogs(ctx, "a", domain.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)

	// The other environment is untouched.
	n, err := s.CountAPIKeys(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.CountWebhooks(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	logs, err = s.ListLogs(ctx, "b", domain.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-log"}, logIDs(logs))
	rules, err := s.ListAlertRules(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func testDeleteMissingEnvironment(t *testing.T, s storage.Storage) {
	_, err := s.DeleteEnvironment(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDependentsRequireEnvironment(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	assert.ErrorIs(t, s.CreateAPIKey(ctx, apiKey("k", "ghost")), domain.ErrNotFound)
	assert.ErrorIs(t, s.CreateWebhook(ctx, webhook("w", "ghost")), domain.ErrNotFound)
	assert.ErrorIs(t, s.AppendLog(ctx, logEntry("l", "ghost", base)), domain.ErrNotFound)
	assert.ErrorIs(t, s.CreateAlertRule(ctx, alertRule("r", "ghost")), domain.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceLogs(ctx, "ghost", nil), domain.ErrNotFound)
}

func testUniqueIDs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))
	require.NoError(t, s.CreateEnvironment(ctx, env("b")))

	require.NoError(t, s.CreateAPIKey(ctx, apiKey("dup", "a")))
	assert.ErrorIs(t, s.CreateAPIKey(ctx, apiKey("dup", "b")), domain.ErrAlreadyExists)

	require.NoError(t, s.CreateWebhook(ctx, webhook("dup", "a")))
	assert.ErrorIs(t, s.CreateWebhook(ctx, webhook("dup", "b")), domain.ErrAlreadyExists)

	require.NoError(t, s.CreateAlertRule(ctx, alertRule("dup", "a")))
	assert.ErrorIs(t, s.CreateAlertRule(ctx, alertRule("dup", "b")), domain.ErrAlreadyExists)
}

func testAPIKeyRoundTrip(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))
	require.NoError(t, s.CreateEnvironment(ctx, env("b")))

	expires := base.Add(30 * 24 * time.Hour)
	limit := 250
	key := apiKey("key-1", "a")
	key.Permissions = []string{domain.PermissionReadData, domain.PermissionWriteData}
	key.ExpiresAt = &expires
	key.RateLimit = &limit

	require.NoError(t, s.CreateAPIKey(ctx, key))
	require.NoError(t, s.CreateAPIKey(ctx, apiKey("key-2", "b")))

	keys, err := s.ListAPIKeys(ctx, "a")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, key, keys[0])

	key.Status = domain.APIKeyRevoked
	require.NoError(t, s.UpdateAPIKey(ctx, key))
	got, err := s.GetAPIKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.APIKeyRevoked, got.Status)

	require.NoError(t, s.DeleteAPIKey(ctx, "key-1"))
	assert.ErrorIs(t, s.DeleteAPIKey(ctx, "key-1"), domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAPIKey(ctx, key), domain.ErrNotFound)

	n, err := s.CountAPIKeys(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testWebhookLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))

	hook := webhook("hook-1", "a")
	require.NoError(t, s.CreateWebhook(ctx, hook))

	triggered := base.Add(time.Minute)
	hook.Status = domain.WebhookPaused
	hook.Events = []string{"order.created", "order.completed"}
	hook.LastTriggeredAt = &triggered
	require.NoError(t, s.UpdateWebhook(ctx, hook))

	hooks, err := s.ListWebhooks(ctx, "a")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, hook, hooks[0])

	require.NoError(t, s.DeleteWebhook(ctx, "hook-1"))
	n, err := s.CountWebhooks(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testAlertRuleLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))

	first := alertRule("rule-1", "a")
	second := alertRule("rule-2", "a")
	second.CreatedAt = base.Add(time.Second)
	require.NoError(t, s.CreateAlertRule(ctx, second))
	require.NoError(t, s.CreateAlertRule(ctx, first))

	rules, err := s.ListAlertRules(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []*domain.AlertRule{first, second}, rules)

	first.Status = domain.AlertPaused
	first.Threshold = 2.5
	require.NoError(t, s.UpdateAlertRule(ctx, first))
	got, err := s.GetAlertRule(ctx, "rule-1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	require.NoError(t, s.DeleteAlertRule(ctx, "rule-1"))
	assert.ErrorIs(t, s.DeleteAlertRule(ctx, "rule-1"), domain.ErrNotFound)
}

func testLogsNewestFirst(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))

	require.NoError(t, s.AppendLog(ctx, logEntry("old", "a", base)))
	require.NoError(t, s.AppendLog(ctx, logEntry("new", "a", base.Add(2*time.Second))))
	require.NoError(t, s.AppendLog(ctx, logEntry("mid", "a", base.Add(time.Second))))
	require.NoError(t, s.AppendLog(ctx, logEntry("new-tie", "a", base.Add(2*time.Second))))

	logs, err := s.ListLogs(ctx, "a", domain.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new-tie", "new", "mid", "old"}, logIDs(logs))
}

func testLogFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))

	for i, lvl := range []domain.LogLevel{domain.LogInfo, domain.LogError, domain.LogError, domain.LogWarn} {
		e := logEntry(fmt.Sprintf("log-%d", i), "a", base.Add(time.Duration(i)*time.Second))
		e.Level = lvl
		if i == 2 {
			e.Source = domain.SourceWebhook
			e.Details = map[string]any{"event": "user.created"}
		}
		require.NoError(t, s.AppendLog(ctx, e))
	}

	logs, err := s.ListLogs(ctx, "a", domain.LogFilter{Level: domain.LogError})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-2", "log-1"}, logIDs(logs))
	assert.Equal(t, map[string]any{"event": "user.created"}, logs[0].Details)

	logs, err = s.ListLogs(ctx, "a", domain.LogFilter{Level: domain.LogError, Source: domain.SourceAPI})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-1"}, logIDs(logs))

	logs, err = s.ListLogs(ctx, "a", domain.LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-3", "log-2"}, logIDs(logs))
}

func testReplaceLogs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	require.NoError(t, s.CreateEnvironment(ctx, env("a")))
	require.NoError(t, s.CreateEnvironment(ctx, env("b")))

	require.NoError(t, s.AppendLog(ctx, logEntry("a-old-1", "a", base)))
	require.NoError(t, s.AppendLog(ctx, logEntry("a-old-2", "a", base.Add(time.Second))))
	require.NoError(t, s.AppendLog(ctx, logEntry("b-old", "b", base)))

	batch := []*domain.LogEntry{
		logEntry("a-new-1", "a", base.Add(time.Minute)),
		logEntry("a-new-2", "a", base.Add(time.Minute)),
		logEntry("a-new-3", "a", base.Add(2*time.Minute)),
	}
	require.NoError(t, s.ReplaceLogs(ctx, "a", batch))

	logs, err := s.ListLogs(ctx, "a", domain.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-new-3", "a-new-1", "a-new-2"}, logIDs(logs))

	logs, err = s.ListLogs(ctx, "b", domain.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-old"}, logIDs(logs))

	// A refreshed environment can be refreshed again with fresh ids.
	require.NoError(t, s.ReplaceLogs(ctx, "a", nil))
	logs, err = s.ListLogs(ctx, "a", domain.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

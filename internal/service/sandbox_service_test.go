package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/mockdata"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/bcnelson/sandbox-console/internal/storage/memory"
	"github.com/bcnelson/sandbox-console/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type fakeObserver struct {
	mu        sync.Mutex
	changes   []string
	refreshes int
}

func (f *fakeObserver) ObserveChange(kind, op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, kind+":"+op)
}

func (f *fakeObserver) ObserveRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func newTestService(t *testing.T) (*SandboxService, *fakeObserver) {
	t.Helper()
	gen := mockdata.New(42).WithClock(func() time.Time { return fixedNow })
	obs := &fakeObserver{}
	return NewSandboxService(memory.New(), gen, obs), obs
}

func addEnv(t *testing.T, s *SandboxService, name string) *domain.Environment {
	t.Helper()
	env, err := s.AddEnvironment(context.Background(), &domain.Environment{
		Name:   name,
		Config: domain.DefaultEnvironmentConfig(),
	})
	require.NoError(t, err)
	return env
}

func addKey(t *testing.T, s *SandboxService, envID string, perms ...string) *domain.APIKey {
	t.Helper()
	key, err := s.AddAPIKey(context.Background(), &domain.APIKey{
		EnvironmentID: envID,
		Name:          "Backend",
		Permissions:   perms,
	})
	require.NoError(t, err)
	return key
}

func addWebhook(t *testing.T, s *SandboxService, envID string) *domain.Webhook {
	t.Helper()
	hook, err := s.AddWebhook(context.Background(), &domain.Webhook{
		EnvironmentID: envID,
		Name:          "Users",
		URL:           "https://example.com/hooks/users",
		Events:        []string{"user.created", "user.deleted"},
	})
	require.NoError(t, err)
	return hook
}

func addRule(t *testing.T, s *SandboxService, envID string) *domain.AlertRule {
	t.Helper()
	rule, err := s.AddAlertRule(context.Background(), &domain.AlertRule{
		EnvironmentID:   envID,
		Name:            "Errors",
		Metric:          domain.MetricAPIErrors,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       5,
		DurationMinutes: 5,
		Channels:        []string{"email"},
		Recipients:      []string{"oncall@example.com"},
	})
	require.NoError(t, err)
	return rule
}

func TestAddEnvironmentDefaults(t *testing.T) {
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, domain.EnvironmentActive, env.Status)
	assert.Equal(t, fixedNow, env.CreatedAt)
	assert.Equal(t, fixedNow, env.UpdatedAt)
	assert.Zero(t, env.APIKeyCount)

	_, err := s.AddEnvironment(context.Background(), &domain.Environment{Name: "", Config: domain.DefaultEnvironmentConfig()})
	var verrs validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "name", verrs[0].Field)
}

func TestListEnvironmentsDerivesCounts(t *testing.T) {
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")
	addKey(t, s, env.ID, domain.PermissionReadData)
	addKey(t, s, env.ID, domain.PermissionAdmin)
	addWebhook(t, s, env.ID)

	envs, err := s.ListEnvironments(context.Background())
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, 2, envs[0].APIKeyCount)
	assert.Equal(t, 1, envs[0].WebhookCount)
}

func TestDeleteEnvironmentCascades(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")
	other := addEnv(t, s, "QA")

	addKey(t, s, env.ID, domain.PermissionReadData)
	addKey(t, s, env.ID, domain.PermissionWriteData)
	addWebhook(t, s, env.ID)
	addRule(t, s, env.ID)
	_, err := s.RefreshLogs(ctx, env.ID)
	require.NoError(t, err)

	otherKey := addKey(t, s, other.ID, domain.PermissionReadData)
	_, err = s.RefreshLogs(ctx, other.ID)
	require.NoError(t, err)

	result, err := s.DeleteEnvironment(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.CascadeResult{
		domain.KindAPIKey:    2,
		domain.KindWebhook:   1,
		domain.KindLogEntry:  mockdata.DefaultLogBatch,
		domain.KindAlertRule: 1,
	}, result)

	_, err = s.GetEnvironment(ctx, env.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.GetAPIKey(ctx, otherKey.ID)
	assert.NoError(t, err)
	logs, err := s.ListLogs(ctx, other.ID, domain.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, mockdata.DefaultLogBatch)
}

func TestDeleteMissingEnvironmentIsNoop(t *testing.T) {
	s, obs := newTestService(t)

	result, err := s.DeleteEnvironment(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Empty(t, obs.changes)
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := addEnv(t, s, "A")
	b := addEnv(t, s, "B")

	assert.Empty(t, s.SelectedEnvironment())
	assert.ErrorIs(t, s.SelectEnvironment(ctx, "missing"), domain.ErrNotFound)

	require.NoError(t, s.SelectEnvironment(ctx, a.ID))
	_, err := s.DeleteEnvironment(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, s.SelectedEnvironment(), "deleting another environment keeps the selection")

	_, err = s.DeleteEnvironment(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, s.SelectedEnvironment())
}

func TestSelectionNeverPointsAtDeletedEnvironment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	for range 200 {
		env := addEnv(t, s, "Racy")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SelectEnvironment(ctx, env.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.DeleteEnvironment(ctx, env.ID)
		}()
		wg.Wait()

		if sel := s.SelectedEnvironment(); sel != "" {
			_, err := s.GetEnvironment(ctx, sel)
			require.NoError(t, err, "selection points at a deleted environment")
		}
	}
}

func TestSubscribeOneChangePerMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	var got []domain.Change
	unsubscribe := s.Subscribe(func(c domain.Change) { got = append(got, c) })

	env := addEnv(t, s, "Staging")
	key := addKey(t, s, env.ID, domain.PermissionReadData)
	_, err := s.RevokeAPIKey(ctx, key.ID)
	require.NoError(t, err)
	_, err = s.RefreshLogs(ctx, env.ID)
	require.NoError(t, err)
	_, err = s.DeleteEnvironment(ctx, env.ID)
	require.NoError(t, err)

	assert.Equal(t, []domain.Change{
		{Kind: domain.KindEnvironment, Op: domain.OpCreate, ID: env.ID, EnvironmentID: env.ID},
		{Kind: domain.KindAPIKey, Op: domain.OpCreate, ID: key.ID, EnvironmentID: env.ID},
		{Kind: domain.KindAPIKey, Op: domain.OpUpdate, ID: key.ID, EnvironmentID: env.ID},
		{Kind: domain.KindLogEntry, Op: domain.OpRefresh, EnvironmentID: env.ID},
		{Kind: domain.KindEnvironment, Op: domain.OpDelete, ID: env.ID, EnvironmentID: env.ID},
	}, got)

	unsubscribe()
	unsubscribe()
	addEnv(t, s, "After")
	assert.Len(t, got, 5)
}

func TestUpdateEnvironmentIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	env.Description = "Pre-production"
	env.Config.RateLimit = 250
	first, err := s.UpdateEnvironment(ctx, env.Clone())
	require.NoError(t, err)
	second, err := s.UpdateEnvironment(ctx, env.Clone())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, fixedNow, second.UpdatedAt)

	_, err = s.UpdateEnvironment(ctx, &domain.Environment{ID: "missing", Name: "x", Status: domain.EnvironmentActive, Config: domain.DefaultEnvironmentConfig()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartStopEnvironment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	_, err := s.StartEnvironment(ctx, env.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stopped, err := s.StopEnvironment(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvironmentStopped, stopped.Status)

	started, err := s.StartEnvironment(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvironmentActive, started.Status)

	_, err = s.StopEnvironment(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAPIKeyStatusMovesForward(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")
	key := addKey(t, s, env.ID, domain.PermissionReadData)

	assert.Equal(t, domain.APIKeyActive, key.Status)
	assert.Contains(t, key.Key, "sk_test_")

	revoked, err := s.RevokeAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.APIKeyRevoked, revoked.Status)

	again, err := s.RevokeAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.APIKeyRevoked, again.Status)

	reactivated := again.Clone()
	reactivated.Status = domain.APIKeyActive
	_, err = s.UpdateAPIKey(ctx, reactivated)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	expired := addKey(t, s, env.ID, domain.PermissionReadData)
	expired.Status = domain.APIKeyExpired
	_, err = s.UpdateAPIKey(ctx, expired)
	require.NoError(t, err)
	_, err = s.RevokeAPIKey(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateCannotMoveEnvironment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := addEnv(t, s, "A")
	b := addEnv(t, s, "B")

	key := addKey(t, s, a.ID, domain.PermissionReadData)
	key.EnvironmentID = b.ID
	_, err := s.UpdateAPIKey(ctx, key)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	hook := addWebhook(t, s, a.ID)
	hook.EnvironmentID = b.ID
	_, err = s.UpdateWebhook(ctx, hook)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rule := addRule(t, s, a.ID)
	rule.EnvironmentID = b.ID
	_, err = s.UpdateAlertRule(ctx, rule)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDependentsRequireEnvironment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	_, err := s.AddAPIKey(ctx, &domain.APIKey{EnvironmentID: "missing", Name: "k", Permissions: []string{domain.PermissionAdmin}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.ListWebhooks(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.RefreshLogs(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshLogsReplacesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	s, obs := newTestService(t)
	a := addEnv(t, s, "A")
	b := addEnv(t, s, "B")

	old, err := s.AddLog(ctx, &domain.LogEntry{EnvironmentID: a.ID, Level: domain.LogInfo, Source: domain.SourceSystem, Message: "boot"})
	require.NoError(t, err)
	kept, err := s.AddLog(ctx, &domain.LogEntry{EnvironmentID: b.ID, Level: domain.LogWarn, Source: domain.SourceAuth, Message: "slow login"})
	require.NoError(t, err)

	batch, err := s.RefreshLogs(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, batch, mockdata.DefaultLogBatch)

	logs, err := s.ListLogs(ctx, a.ID, domain.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, mockdata.DefaultLogBatch)
	for _, e := range logs {
		assert.NotEqual(t, old.ID, e.ID)
		assert.Equal(t, a.ID, e.EnvironmentID)
	}
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].Timestamp.After(logs[i-1].Timestamp), "logs must be newest first")
	}

	other, err := s.ListLogs(ctx, b.ID, domain.LogFilter{})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, kept.ID, other[0].ID)
	assert.Equal(t, 1, obs.refreshes)
}

func TestAddLogPrepends(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	for _, msg := range []string{"first", "second", "third"} {
		_, err := s.AddLog(ctx, &domain.LogEntry{EnvironmentID: env.ID, Level: domain.LogInfo, Source: domain.SourceSystem, Message: msg})
		require.NoError(t, err)
	}

	logs, err := s.ListLogs(ctx, env.ID, domain.LogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Message)
	assert.Equal(t, "second", logs[1].Message)

	_, err = s.AddLog(ctx, &domain.LogEntry{EnvironmentID: env.ID, Level: "TRACE", Source: domain.SourceSystem, Message: "x"})
	var verrs validation.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestRecordSimulation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	entry, err := s.RecordSimulation(ctx, env.ID,
		simulator.Request{Method: "GET", Path: "/users", APIKeyID: "key"},
		&simulator.Response{StatusCode: 403, LatencyMS: 250, RequestID: "req_1"},
	)
	require.NoError(t, err)
	assert.Equal(t, domain.LogWarn, entry.Level)
	assert.Equal(t, domain.SourceAPI, entry.Source)
	assert.Equal(t, "GET /users 403", entry.Message)
	assert.Equal(t, "req_1", entry.RequestID)
	assert.Equal(t, 250, *entry.LatencyMS)
}

func TestTestWebhook(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")
	hook := addWebhook(t, s, env.ID)

	result, err := s.TestWebhook(ctx, hook.ID, "")
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "user.created", result.Event.Event)

	payload, err := json.Marshal(result.Event)
	require.NoError(t, err)
	assert.Equal(t, "sha256="+Sign(hook.Secret, payload), result.Signature)

	stored, err := s.GetWebhook(ctx, hook.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastTriggeredAt)
	assert.Equal(t, fixedNow, *stored.LastTriggeredAt)

	logs, err := s.ListLogs(ctx, env.ID, domain.LogFilter{Source: domain.SourceWebhook})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, hook.ID, logs[0].Details["webhookId"])

	_, err = s.TestWebhook(ctx, hook.ID, "order.created")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	stored.Status = domain.WebhookFailed
	_, err = s.UpdateWebhook(ctx, stored)
	require.NoError(t, err)
	failed, err := s.TestWebhook(ctx, hook.ID, "user.deleted")
	require.NoError(t, err)
	assert.False(t, failed.Delivered)
	assert.Equal(t, 500, failed.StatusCode)

	stored.Status = domain.WebhookPaused
	_, err = s.UpdateWebhook(ctx, stored)
	require.NoError(t, err)
	_, err = s.TestWebhook(ctx, hook.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSign(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac 'secret'
	assert.Equal(t, "88aab3ede8d3adf94d26ab90d3bafd4a2083070c3bcce9c014ee04a443847c0b", Sign("secret", []byte("hello")))
}

func TestAlertRules(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")
	rule := addRule(t, s, env.ID)

	assert.Equal(t, domain.AlertActive, rule.Status)

	rule.Status = domain.AlertPaused
	updated, err := s.UpdateAlertRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertPaused, updated.Status)

	evals, err := s.EvaluateAlerts(ctx, env.ID, 1)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.True(t, evals[0].Skipped)

	require.NoError(t, s.DeleteAlertRule(ctx, rule.ID))
	_, err = s.GetAlertRule(ctx, rule.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAlertRule(ctx, rule.ID), domain.ErrNotFound)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	snap, err := s.Metrics(ctx, env.ID, 30)
	require.NoError(t, err)
	assert.Len(t, snap.Series[domain.SeriesAPIRequests], 30)

	_, err = s.Metrics(ctx, "missing", 30)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var verrs validation.ValidationErrors
	_, err = s.Metrics(ctx, env.ID, 2_000_000)
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "window", verrs[0].Field)

	_, err = s.EvaluateAlerts(ctx, env.ID, domain.MaxMetricsWindow+1)
	assert.ErrorAs(t, err, &verrs)
}

func TestAddAlertRuleRejectsLongDuration(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	env := addEnv(t, s, "Staging")

	_, err := s.AddAlertRule(ctx, &domain.AlertRule{
		EnvironmentID:   env.ID,
		Name:            "Forever",
		Metric:          domain.MetricAPIErrors,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       1,
		DurationMinutes: domain.MaxMetricsWindow + 1,
		Channels:        []string{"email"},
	})
	var verrs validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "durationMinutes", verrs[0].Field)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	envs, err := s.Seed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, envs, 3)

	for _, env := range envs {
		assert.GreaterOrEqual(t, env.APIKeyCount, 1)
		logs, err := s.ListLogs(ctx, env.ID, domain.LogFilter{})
		require.NoError(t, err)
		assert.Len(t, logs, mockdata.DefaultLogBatch)
	}
}

func TestDeleteDependentsMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	for _, err := range []error{
		s.DeleteAPIKey(ctx, "missing"),
		s.DeleteWebhook(ctx, "missing"),
		s.DeleteAlertRule(ctx, "missing"),
	} {
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	}
}

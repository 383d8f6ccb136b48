package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bcnelson/sandbox-console/internal/alerting"
	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/mockdata"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/bcnelson/sandbox-console/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Observer receives mutation and refresh counts.
type Observer interface {
	ObserveChange(kind, op string)
	ObserveRefresh()
}

// SandboxService owns every mutation of the sandbox store. It validates input,
// keeps the selected environment, and notifies subscribers after each change.
type SandboxService struct {
	store    storage.Storage
	gen      *mockdata.Generator
	observer Observer

	mu          sync.Mutex
	selected    string
	subscribers map[int]func(domain.Change)
	nextSub     int
}

// NewSandboxService creates a new SandboxService. observer may be nil.
func NewSandboxService(store storage.Storage, gen *mockdata.Generator, observer Observer) *SandboxService {
	return &SandboxService{
		store:       store,
		gen:         gen,
		observer:    observer,
		subscribers: make(map[int]func(domain.Change)),
	}
}

// Store returns the underlying storage for read-only collaborators such as the simulator.
func (s *SandboxService) Store() storage.Storage {
	return s.store
}

// Now returns the service clock in UTC.
func (s *SandboxService) Now() time.Time {
	return s.gen.Now().UTC()
}

// Subscribe registers fn for every subsequent change. fn runs on the mutating
// goroutine after the store has been updated and must not block.
func (s *SandboxService) Subscribe(fn func(domain.Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *SandboxService) emit(change domain.Change) {
	s.mu.Lock()
	fns := make([]func(domain.Change), 0, len(s.subscribers))
	for _, id := range slices.Sorted(maps.Keys(s.subscribers)) {
		fns = append(fns, s.subscribers[id])
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveChange(string(change.Kind), string(change.Op))
	}
	for _, fn := range fns {
		fn(change)
	}
}

// ============================================
// Environments
// ============================================

// AddEnvironment stores a new environment. A missing ID or timestamp is filled in.
func (s *SandboxService) AddEnvironment(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	if env.ID == "" {
		env.ID = uuid.New().String()
	}
	if env.CreatedAt.IsZero() {
		env.CreatedAt = s.gen.Now().UTC()
	}
	if env.UpdatedAt.IsZero() {
		env.UpdatedAt = env.CreatedAt
	}
	if env.Status == "" {
		env.Status = domain.EnvironmentActive
	}
	if err := validation.Environment(env); err != nil {
		return nil, err
	}
	if err := s.store.CreateEnvironment(ctx, env); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindEnvironment, Op: domain.OpCreate, ID: env.ID, EnvironmentID: env.ID})
	return s.GetEnvironment(ctx, env.ID)
}

// GetEnvironment returns an environment with its derived counts.
func (s *SandboxService) GetEnvironment(ctx context.Context, id string) (*domain.Environment, error) {
	env, err := s.store.GetEnvironment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fillCounts(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// ListEnvironments returns every environment with its derived counts, oldest first.
func (s *SandboxService) ListEnvironments(ctx context.Context) ([]*domain.Environment, error) {
	envs, err := s.store.ListEnvironments(ctx)
	if err != nil {
		return nil, err
	}
	for _, env := range envs {
		if err := s.fillCounts(ctx, env); err != nil {
			return nil, err
		}
	}
	return envs, nil
}

func (s *SandboxService) fillCounts(ctx context.Context, env *domain.Environment) error {
	keys, err := s.store.CountAPIKeys(ctx, env.ID)
	if err != nil {
		return fmt.Errorf("counting api keys: %w", err)
	}
	hooks, err := s.store.CountWebhooks(ctx, env.ID)
	if err != nil {
		return fmt.Errorf("counting webhooks: %w", err)
	}
	env.APIKeyCount, env.WebhookCount = keys, hooks
	return nil
}

// UpdateEnvironment replaces the stored environment with env. Applying the
// same env twice leaves the same state; UpdatedAt is taken from env as is.
func (s *SandboxService) UpdateEnvironment(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	if err := validation.Environment(env); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEnvironment(ctx, env); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindEnvironment, Op: domain.OpUpdate, ID: env.ID, EnvironmentID: env.ID})
	return s.GetEnvironment(ctx, env.ID)
}

// DeleteEnvironment removes an environment and everything it owns. Deleting a
// missing environment is a no-op and returns an empty result.
func (s *SandboxService) DeleteEnvironment(ctx context.Context, id string) (storage.CascadeResult, error) {
	// The selection lock spans the delete so a concurrent select cannot land
	// on an environment that is already gone.
	s.mu.Lock()
	result, err := s.store.DeleteEnvironment(ctx, id)
	if err == nil && s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()
	if errors.Is(err, domain.ErrNotFound) {
		return storage.CascadeResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("environment_id", id).Interface("removed", result).Msg("Environment deleted")
	s.emit(domain.Change{Kind: domain.KindEnvironment, Op: domain.OpDelete, ID: id, EnvironmentID: id})
	return result, nil
}

// StartEnvironment moves a stopped environment to active.
func (s *SandboxService) StartEnvironment(ctx context.Context, id string) (*domain.Environment, error) {
	return s.transition(ctx, id, domain.EnvironmentStopped, domain.EnvironmentActive)
}

// StopEnvironment moves an active environment to stopped.
func (s *SandboxService) StopEnvironment(ctx context.Context, id string) (*domain.Environment, error) {
	return s.transition(ctx, id, domain.EnvironmentActive, domain.EnvironmentStopped)
}

func (s *SandboxService) transition(ctx context.Context, id string, from, to domain.EnvironmentStatus) (*domain.Environment, error) {
	env, err := s.store.GetEnvironment(ctx, id)
	if err != nil {
		return nil, err
	}
	if env.Status != from {
		return nil, fmt.Errorf("environment is %s, expected %s: %w", env.Status, from, domain.ErrInvalidTransition)
	}
	env.Status = to
	env.UpdatedAt = s.gen.Now().UTC()
	return s.UpdateEnvironment(ctx, env)
}

// SelectEnvironment marks id as the selected environment.
func (s *SandboxService) SelectEnvironment(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, err := s.store.GetEnvironment(ctx, id); err != nil {
		s.mu.Unlock()
		return err
	}
	s.selected = id
	s.mu.Unlock()
	s.emit(domain.Change{Kind: domain.KindSelection, Op: domain.OpUpdate, ID: id, EnvironmentID: id})
	return nil
}

// SelectedEnvironment returns the selected environment id, or "" when none is selected.
func (s *SandboxService) SelectedEnvironment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ============================================
// API Keys
// ============================================

// AddAPIKey stores a new key. Status defaults to active and Key to an obfuscated value.
func (s *SandboxService) AddAPIKey(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = s.gen.Now().UTC()
	}
	if key.Status == "" {
		key.Status = domain.APIKeyActive
	}
	if key.Key == "" {
		key.Key = s.gen.ObfuscatedKey()
	}
	if err := validation.APIKey(key); err != nil {
		return nil, err
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindAPIKey, Op: domain.OpCreate, ID: key.ID, EnvironmentID: key.EnvironmentID})
	return key, nil
}

// GetAPIKey returns a key by id.
func (s *SandboxService) GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	return s.store.GetAPIKey(ctx, id)
}

// ListAPIKeys returns the keys of an environment.
func (s *SandboxService) ListAPIKeys(ctx context.Context, envID string) ([]*domain.APIKey, error) {
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	return s.store.ListAPIKeys(ctx, envID)
}

// UpdateAPIKey replaces a key by id. The owning environment cannot change and
// the status may only move forward from active.
func (s *SandboxService) UpdateAPIKey(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error) {
	existing, err := s.store.GetAPIKey(ctx, key.ID)
	if err != nil {
		return nil, err
	}
	if key.EnvironmentID != existing.EnvironmentID {
		return nil, fmt.Errorf("api key cannot move between environments: %w", domain.ErrInvalidInput)
	}
	if key.Status != existing.Status && existing.Status != domain.APIKeyActive {
		return nil, fmt.Errorf("api key is %s: %w", existing.Status, domain.ErrInvalidTransition)
	}
	if err := validation.APIKey(key); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindAPIKey, Op: domain.OpUpdate, ID: key.ID, EnvironmentID: key.EnvironmentID})
	return key, nil
}

// RevokeAPIKey revokes an active key. Revoking a revoked key is a no-op.
func (s *SandboxService) RevokeAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		return nil, err
	}
	switch key.Status {
	case domain.APIKeyRevoked:
		return key, nil
	case domain.APIKeyExpired:
		return nil, fmt.Errorf("api key has expired: %w", domain.ErrInvalidTransition)
	}
	key.Status = domain.APIKeyRevoked
	return s.UpdateAPIKey(ctx, key)
}

// DeleteAPIKey removes a key.
func (s *SandboxService) DeleteAPIKey(ctx context.Context, id string) error {
	key, err := s.store.GetAPIKey(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAPIKey(ctx, id); err != nil {
		return err
	}
	s.emit(domain.Change{Kind: domain.KindAPIKey, Op: domain.OpDelete, ID: id, EnvironmentID: key.EnvironmentID})
	return nil
}

// ============================================
// Webhooks
// ============================================

// AddWebhook stores a new webhook. Status defaults to active and a signing secret is generated when empty.
func (s *SandboxService) AddWebhook(ctx context.Context, hook *domain.Webhook) (*domain.Webhook, error) {
	if hook.ID == "" {
		hook.ID = uuid.New().String()
	}
	if hook.CreatedAt.IsZero() {
		hook.CreatedAt = s.gen.Now().UTC()
	}
	if hook.Status == "" {
		hook.Status = domain.WebhookActive
	}
	if hook.Secret == "" {
		hook.Secret = "whsec_" + uuid.New().String()
	}
	if err := validation.Webhook(hook); err != nil {
		return nil, err
	}
	if err := s.store.CreateWebhook(ctx, hook); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindWebhook, Op: domain.OpCreate, ID: hook.ID, EnvironmentID: hook.EnvironmentID})
	return hook, nil
}

// GetWebhook returns a webhook by id.
func (s *SandboxService) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	return s.store.GetWebhook(ctx, id)
}

// ListWebhooks returns the webhooks of an environment.
func (s *SandboxService) ListWebhooks(ctx context.Context, envID string) ([]*domain.Webhook, error) {
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	return s.store.ListWebhooks(ctx, envID)
}

// UpdateWebhook replaces a webhook by id.
func (s *SandboxService) UpdateWebhook(ctx context.Context, hook *domain.Webhook) (*domain.Webhook, error) {
	existing, err := s.store.GetWebhook(ctx, hook.ID)
	if err != nil {
		return nil, err
	}
	if hook.EnvironmentID != existing.EnvironmentID {
		return nil, fmt.Errorf("webhook cannot move between environments: %w", domain.ErrInvalidInput)
	}
	if err := validation.Webhook(hook); err != nil {
		return nil, err
	}
	if err := s.store.UpdateWebhook(ctx, hook); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindWebhook, Op: domain.OpUpdate, ID: hook.ID, EnvironmentID: hook.EnvironmentID})
	return hook, nil
}

// DeleteWebhook removes a webhook.
func (s *SandboxService) DeleteWebhook(ctx context.Context, id string) error {
	hook, err := s.store.GetWebhook(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWebhook(ctx, id); err != nil {
		return err
	}
	s.emit(domain.Change{Kind: domain.KindWebhook, Op: domain.OpDelete, ID: id, EnvironmentID: hook.EnvironmentID})
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload keyed by secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestWebhook simulates one delivery of event to a webhook. Nothing is sent
// over the network; the outcome is recorded as a Webhook log entry. An empty
// event uses the first event the webhook subscribes to.
func (s *SandboxService) TestWebhook(ctx context.Context, id, event string) (*domain.WebhookTestResult, error) {
	hook, err := s.store.GetWebhook(ctx, id)
	if err != nil {
		return nil, err
	}
	if hook.Status == domain.WebhookPaused {
		return nil, fmt.Errorf("webhook is paused: %w", domain.ErrInvalidTransition)
	}
	if event == "" && len(hook.Events) > 0 {
		event = hook.Events[0]
	}
	if !slices.Contains(hook.Events, event) {
		return nil, fmt.Errorf("webhook does not subscribe to %q: %w", event, domain.ErrInvalidInput)
	}

	now := s.gen.Now().UTC()
	evt := domain.WebhookEvent{
		ID:        s.gen.EventID(),
		Event:     event,
		Timestamp: now,
		Data:      s.gen.Object(map[string]string{"id": "id", "status": "string", "amount": "number"}),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}

	result := &domain.WebhookTestResult{
		Event:      evt,
		Signature:  "sha256=" + Sign(hook.Secret, payload),
		StatusCode: 200,
		LatencyMS:  int(s.gen.Duration(50*time.Millisecond, 800*time.Millisecond).Milliseconds()),
		Delivered:  true,
	}
	level, msg := domain.LogInfo, fmt.Sprintf("Webhook delivered: %s", event)
	if hook.Status == domain.WebhookFailed {
		result.StatusCode, result.Delivered = 500, false
		level, msg = domain.LogError, fmt.Sprintf("Webhook delivery failed: %s", event)
	}

	hook.LastTriggeredAt = &now
	if _, err := s.UpdateWebhook(ctx, hook); err != nil {
		return nil, err
	}

	status, latency := result.StatusCode, result.LatencyMS
	if _, err := s.AddLog(ctx, &domain.LogEntry{
		EnvironmentID: hook.EnvironmentID,
		Timestamp:     now,
		Level:         level,
		Source:        domain.SourceWebhook,
		Message:       msg,
		Details:       map[string]any{"webhookId": hook.ID, "url": hook.URL, "eventId": evt.ID},
		StatusCode:    &status,
		LatencyMS:     &latency,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ============================================
// Logs
// ============================================

// AddLog prepends an entry to its environment's stream.
func (s *SandboxService) AddLog(ctx context.Context, entry *domain.LogEntry) (*domain.LogEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.gen.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = s.gen.LogID(entry.Timestamp)
	}
	if err := validation.LogEntry(entry); err != nil {
		return nil, err
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindLogEntry, Op: domain.OpCreate, ID: entry.ID, EnvironmentID: entry.EnvironmentID})
	return entry, nil
}

// ListLogs returns an environment's entries newest first.
func (s *SandboxService) ListLogs(ctx context.Context, envID string, filter domain.LogFilter) ([]*domain.LogEntry, error) {
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, envID, filter)
}

// RefreshLogs replaces an environment's logs with a fresh synthetic batch.
// Other environments are left untouched.
func (s *SandboxService) RefreshLogs(ctx context.Context, envID string) ([]*domain.LogEntry, error) {
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	batch := s.gen.Logs(envID, mockdata.DefaultLogBatch)
	if err := s.store.ReplaceLogs(ctx, envID, batch); err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.ObserveRefresh()
	}
	s.emit(domain.Change{Kind: domain.KindLogEntry, Op: domain.OpRefresh, EnvironmentID: envID})
	return batch, nil
}

// RecordSimulation appends an API log entry describing a simulated call.
func (s *SandboxService) RecordSimulation(ctx context.Context, envID string, req simulator.Request, resp *simulator.Response) (*domain.LogEntry, error) {
	level := domain.LogInfo
	switch {
	case resp.StatusCode >= 500:
		level = domain.LogError
	case resp.StatusCode >= 400:
		level = domain.LogWarn
	}
	status, latency := resp.StatusCode, resp.LatencyMS
	return s.AddLog(ctx, &domain.LogEntry{
		EnvironmentID: envID,
		Level:         level,
		Source:        domain.SourceAPI,
		Message:       fmt.Sprintf("%s %s %d", req.Method, req.Path, resp.StatusCode),
		Details:       map[string]any{"simulated": true, "apiKeyId": req.APIKeyID},
		RequestID:     resp.RequestID,
		StatusCode:    &status,
		LatencyMS:     &latency,
	})
}

// ============================================
// Alert Rules
// ============================================

// AddAlertRule stores a new rule. Status defaults to active.
func (s *SandboxService) AddAlertRule(ctx context.Context, rule *domain.AlertRule) (*domain.AlertRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = s.gen.Now().UTC()
	}
	if rule.Status == "" {
		rule.Status = domain.AlertActive
	}
	if err := validation.AlertRule(rule); err != nil {
		return nil, err
	}
	if err := s.store.CreateAlertRule(ctx, rule); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindAlertRule, Op: domain.OpCreate, ID: rule.ID, EnvironmentID: rule.EnvironmentID})
	return rule, nil
}

// GetAlertRule returns a rule by id.
func (s *SandboxService) GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	return s.store.GetAlertRule(ctx, id)
}

// ListAlertRules returns the rules of an environment.
func (s *SandboxService) ListAlertRules(ctx context.Context, envID string) ([]*domain.AlertRule, error) {
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	return s.store.ListAlertRules(ctx, envID)
}

// UpdateAlertRule replaces a rule by id.
func (s *SandboxService) UpdateAlertRule(ctx context.Context, rule *domain.AlertRule) (*domain.AlertRule, error) {
	existing, err := s.store.GetAlertRule(ctx, rule.ID)
	if err != nil {
		return nil, err
	}
	if rule.EnvironmentID != existing.EnvironmentID {
		return nil, fmt.Errorf("alert rule cannot move between environments: %w", domain.ErrInvalidInput)
	}
	if err := validation.AlertRule(rule); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAlertRule(ctx, rule); err != nil {
		return nil, err
	}
	s.emit(domain.Change{Kind: domain.KindAlertRule, Op: domain.OpUpdate, ID: rule.ID, EnvironmentID: rule.EnvironmentID})
	return rule, nil
}

// DeleteAlertRule removes a rule.
func (s *SandboxService) DeleteAlertRule(ctx context.Context, id string) error {
	rule, err := s.store.GetAlertRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAlertRule(ctx, id); err != nil {
		return err
	}
	s.emit(domain.Change{Kind: domain.KindAlertRule, Op: domain.OpDelete, ID: id, EnvironmentID: rule.EnvironmentID})
	return nil
}

// ============================================
// Metrics and alert evaluation
// ============================================

// Metrics returns a synthetic snapshot covering the last window minutes.
func (s *SandboxService) Metrics(ctx context.Context, envID string, window int) (*domain.MetricsSnapshot, error) {
	if err := validation.ValidateMetricsWindow(window); err != nil {
		return nil, err
	}
	if _, err := s.store.GetEnvironment(ctx, envID); err != nil {
		return nil, err
	}
	return s.gen.Metrics(envID, window), nil
}

// EvaluateAlerts checks every rule of an environment against one snapshot.
// The window is widened so that each rule sees its full sustained duration.
func (s *SandboxService) EvaluateAlerts(ctx context.Context, envID string, window int) ([]domain.AlertEvaluation, error) {
	if err := validation.ValidateMetricsWindow(window); err != nil {
		return nil, err
	}
	rules, err := s.ListAlertRules(ctx, envID)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		window = max(window, r.DurationMinutes)
	}
	// Rules stored before the duration bound existed must not widen past it.
	window = min(window, domain.MaxMetricsWindow)
	return alerting.EvaluateAll(rules, s.gen.Metrics(envID, window)), nil
}

// ============================================
// Seeding
// ============================================

// Seed adds n synthetic environments, each with keys, webhooks, alert rules and a log batch.
func (s *SandboxService) Seed(ctx context.Context, n int) ([]*domain.Environment, error) {
	envs := make([]*domain.Environment, 0, n)
	for range n {
		env, err := s.AddEnvironment(ctx, s.gen.Environment())
		if err != nil {
			return nil, fmt.Errorf("seeding environment: %w", err)
		}
		for range s.gen.Between(1, 4) {
			if _, err := s.AddAPIKey(ctx, s.gen.APIKey(env.ID)); err != nil {
				return nil, fmt.Errorf("seeding api key: %w", err)
			}
		}
		for range s.gen.Between(0, 3) {
			if _, err := s.AddWebhook(ctx, s.gen.Webhook(env.ID)); err != nil {
				return nil, fmt.Errorf("seeding webhook: %w", err)
			}
		}
		for range s.gen.Between(0, 2) {
			if _, err := s.AddAlertRule(ctx, s.gen.AlertRule(env.ID)); err != nil {
				return nil, fmt.Errorf("seeding alert rule: %w", err)
			}
		}
		if _, err := s.RefreshLogs(ctx, env.ID); err != nil {
			return nil, fmt.Errorf("seeding logs: %w", err)
		}
		if env, err = s.GetEnvironment(ctx, env.ID); err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	log.Info().Int("environments", len(envs)).Msg("Seeded sandbox store")
	return envs, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/storage"
)

// dependent is a collection that cascades with its owning environment.
type dependent interface {
	removeEnvironment(envID string) int
}

// Store is an in-memory implementation of the storage interface.
type Store struct {
	mu sync.RWMutex

	environments map[string]*domain.Environment
	apiKeys      *collection[domain.APIKey]
	webhooks     *collection[domain.Webhook]
	alertRules   *collection[domain.AlertRule]
	logs         *logStream

	dependents map[domain.EntityKind]dependent
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	s := &Store{
		environments: make(map[string]*domain.Environment),
		apiKeys: newCollection(
			func(k *domain.APIKey) string { return k.ID },
			func(k *domain.APIKey) string { return k.EnvironmentID },
			(*domain.APIKey).Clone,
			func(a, b *domain.APIKey) bool { return a.CreatedAt.Before(b.CreatedAt) },
		),
		webhooks: newCollection(
			func(w *domain.Webhook) string { return w.ID },
			func(w *domain.Webhook) string { return w.EnvironmentID },
			(*domain.Webhook).Clone,
			func(a, b *domain.Webhook) bool { return a.CreatedAt.Before(b.CreatedAt) },
		),
		alertRules: newCollection(
			func(r *domain.AlertRule) string { return r.ID },
			func(r *domain.AlertRule) string { return r.EnvironmentID },
			(*domain.AlertRule).Clone,
			func(a, b *domain.AlertRule) bool { return a.CreatedAt.Before(b.CreatedAt) },
		),
		logs: newLogStream(),
	}
	s.dependents = map[domain.EntityKind]dependent{
		domain.KindAPIKey:    s.apiKeys,
		domain.KindWebhook:   s.webhooks,
		domain.KindLogEntry:  s.logs,
		domain.KindAlertRule: s.alertRules,
	}
	return s
}

func (s *Store) Close() error { return nil }

// requireEnvironment must be called with the lock held.
func (s *Store) requireEnvironment(id string) error {
	if _, exists := s.environments[id]; !exists {
		return fmt.Errorf("environment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ============================================
// Environments
// ============================================

func (s *Store) CreateEnvironment(ctx context.Context, env *domain.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.environments[env.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.environments[env.ID] = env.Clone()
	return nil
}

func (s *Store) GetEnvironment(ctx context.Context, id string) (*domain.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, exists := s.environments[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return env.Clone(), nil
}

func (s *Store) ListEnvironments(ctx context.Context) ([]*domain.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	envs := make([]*domain.Environment, 0, len(s.environments))
	for _, env := range s.environments {
		envs = append(envs, env.Clone())
	}
	sort.Slice(envs, func(i, j int) bool {
		if !envs[i].CreatedAt.Equal(envs[j].CreatedAt) {
			return envs[i].CreatedAt.Before(envs[j].CreatedAt)
		}
		return envs[i].ID < envs[j].ID
	})
	return envs, nil
}

func (s *Store) UpdateEnvironment(ctx context.Context, env *domain.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.environments[env.ID]; !exists {
		return domain.ErrNotFound
	}
	s.environments[env.ID] = env.Clone()
	return nil
}

func (s *Store) DeleteEnvironment(ctx context.Context, id string) (storage.CascadeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.environments[id]; !exists {
		return nil, domain.ErrNotFound
	}

	// Resolve the whole table before touching anything so a missing
	// registration cannot leave a half-deleted environment.
	deps := make([]dependent, len(storage.Cascades))
	for i, kind := range storage.Cascades {
		dep, ok := s.dependents[kind]
		if !ok {
			return nil, fmt.Errorf("no cascade registered for %s", kind)
		}
		deps[i] = dep
	}

	result := make(storage.CascadeResult, len(deps))
	for i, dep := range deps {
		result[storage.Cascades[i]] = dep.removeEnvironment(id)
	}
	delete(s.environments, id)
	return result, nil
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(key.EnvironmentID); err != nil {
		return err
	}
	return s.apiKeys.insert(key)
}

func (s *Store) GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKeys.get(id)
}

func (s *Store) ListAPIKeys(ctx context.Context, environmentID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKeys.list(environmentID), nil
}

func (s *Store) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(key.EnvironmentID); err != nil {
		return err
	}
	return s.apiKeys.replace(key)
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKeys.remove(id)
}

func (s *Store) CountAPIKeys(ctx context.Context, environmentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKeys.count(environmentID), nil
}

// ============================================
// Webhooks
// ============================================

func (s *Store) CreateWebhook(ctx context.Context, hook *domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(hook.EnvironmentID); err != nil {
		return err
	}
	return s.webhooks.insert(hook)
}

func (s *Store) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhooks.get(id)
}

func (s *Store) ListWebhooks(ctx context.Context, environmentID string) ([]*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhooks.list(environmentID), nil
}

func (s *Store) UpdateWebhook(ctx context.Context, hook *domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(hook.EnvironmentID); err != nil {
		return err
	}
	return s.webhooks.replace(hook)
}

func (s *Store) DeleteWebhook(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhooks.remove(id)
}

func (s *Store) CountWebhooks(ctx context.Context, environmentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.webhooks.count(environmentID), nil
}

// ============================================
// Logs
// ============================================

func (s *Store) AppendLog(ctx context.Context, entry *domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(entry.EnvironmentID); err != nil {
		return err
	}
	return s.logs.prepend(entry)
}

func (s *Store) ListLogs(ctx context.Context, environmentID string, filter domain.LogFilter) ([]*domain.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logs.list(environmentID, filter), nil
}

func (s *Store) ReplaceLogs(ctx context.Context, environmentID string, entries []*domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(environmentID); err != nil {
		return err
	}
	return s.logs.replace(environmentID, entries)
}

// ============================================
// Alert Rules
// ============================================

func (s *Store) CreateAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(rule.EnvironmentID); err != nil {
		return err
	}
	return s.alertRules.insert(rule)
}

func (s *Store) GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alertRules.get(id)
}

func (s *Store) ListAlertRules(ctx context.Context, environmentID string) ([]*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alertRules.list(environmentID), nil
}

func (s *Store) UpdateAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireEnvironment(rule.EnvironmentID); err != nil {
		return err
	}
	return s.alertRules.replace(rule)
}

func (s *Store) DeleteAlertRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alertRules.remove(id)
}

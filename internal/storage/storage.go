package storage

import (
	"context"

	"github.com/bcnelson/sandbox-console/internal/domain"
)

// Cascades lists, in deletion order, the collections owned by an environment.
// Backends register a deleter for every kind here; deleting an environment
// walks this table inside a single critical section or transaction.
var Cascades = []domain.EntityKind{
	domain.KindAPIKey,
	domain.KindWebhook,
	domain.KindLogEntry,
	domain.KindAlertRule,
}

// CascadeResult reports how many dependents were removed per kind.
type CascadeResult map[domain.EntityKind]int

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use and must return copies,
// never references into their own state.
type Storage interface {
	// Close releases the underlying resources.
	Close() error

	// Environments
	CreateEnvironment(ctx context.Context, env *domain.Environment) error
	GetEnvironment(ctx context.Context, id string) (*domain.Environment, error)
	ListEnvironments(ctx context.Context) ([]*domain.Environment, error)
	UpdateEnvironment(ctx context.Context, env *domain.Environment) error
	// DeleteEnvironment removes the environment and all of its dependents atomically.
	DeleteEnvironment(ctx context.Context, id string) (CascadeResult, error)

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, environmentID string) ([]*domain.APIKey, error)
	UpdateAPIKey(ctx context.Context, key *domain.APIKey) error
	DeleteAPIKey(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context, environmentID string) (int, error)

	// Webhooks
	CreateWebhook(ctx context.Context, hook *domain.Webhook) error
	GetWebhook(ctx context.Context, id string) (*domain.Webhook, error)
	ListWebhooks(ctx context.Context, environmentID string) ([]*domain.Webhook, error)
	UpdateWebhook(ctx context.Context, hook *domain.Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
	CountWebhooks(ctx context.Context, environmentID string) (int, error)

	// Logs, always returned newest first.
	AppendLog(ctx context.Context, entry *domain.LogEntry) error
	ListLogs(ctx context.Context, environmentID string, filter domain.LogFilter) ([]*domain.LogEntry, error)
	// ReplaceLogs discards every entry of the environment and stores entries instead.
	ReplaceLogs(ctx context.Context, environmentID string, entries []*domain.LogEntry) error

	// Alert Rules
	CreateAlertRule(ctx context.Context, rule *domain.AlertRule) error
	GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error)
	ListAlertRules(ctx context.Context, environmentID string) ([]*domain.AlertRule, error)
	UpdateAlertRule(ctx context.Context, rule *domain.AlertRule) error
	DeleteAlertRule(ctx context.Context, id string) error
}

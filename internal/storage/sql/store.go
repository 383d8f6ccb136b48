package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// cascadeTables maps each dependent kind to the table that holds it.
var cascadeTables = map[domain.EntityKind]string{
	domain.KindAPIKey:    "api_keys",
	domain.KindWebhook:   "webhooks",
	domain.KindLogEntry:  "log_entries",
	domain.KindAlertRule: "alert_rules",
}

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY")
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface on SQLite.
type Store struct {
	db *sqlx.DB
}

var _ storage.Storage = (*Store)(nil)

// New opens the database and runs migrations. Only the sqlite3 driver is supported.
func New(driver, dsn string) (*Store, error) {
	if driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// dbInterface is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func requireEnvironment(ctx context.Context, db dbInterface, id string) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM environments WHERE id = $1`, id); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("environment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func expectAffected(result sql.Result, err error) error {
	if err != nil {
		return wrapUniqueError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// Environments
// ============================================

const environmentColumns = `id, name, description, status, owner_id, region, rate_limit,
	retention_days, logging_enabled, public_access, created_at, updated_at`

func (s *Store) CreateEnvironment(ctx context.Context, env *domain.Environment) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO environments (`+environmentColumns+`)
		 VALUES (:id, :name, :description, :status, :owner_id, :region, :rate_limit,
		 :retention_days, :logging_enabled, :public_access, :created_at, :updated_at)`,
		environmentToRow(env))
	return wrapUniqueError(err)
}

func (s *Store) GetEnvironment(ctx context.Context, id string) (*domain.Environment, error) {
	var row environmentRow
	err := s.db.GetContext(ctx, &row, `SELECT `+environmentColumns+` FROM environments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListEnvironments(ctx context.Context) ([]*domain.Environment, error) {
	var rows []environmentRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+environmentColumns+` FROM environments ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	envs := make([]*domain.Environment, 0, len(rows))
	for _, r := range rows {
		envs = append(envs, r.toDomain())
	}
	return envs, nil
}

func (s *Store) UpdateEnvironment(ctx context.Context, env *domain.Environment) error {
	return expectAffected(s.db.NamedExecContext(ctx,
		`UPDATE environments SET name = :name, description = :description, status = :status,
		 owner_id = :owner_id, region = :region, rate_limit = :rate_limit,
		 retention_days = :retention_days, logging_enabled = :logging_enabled,
		 public_access = :public_access, updated_at = :updated_at
		 WHERE id = :id`,
		environmentToRow(env)))
}

func (s *Store) DeleteEnvironment(ctx context.Context, id string) (storage.CascadeResult, error) {
	tables := make([]string, len(storage.Cascades))
	for i, kind := range storage.Cascades {
		table, ok := cascadeTables[kind]
		if !ok {
			return nil, fmt.Errorf("no cascade registered for %s", kind)
		}
		tables[i] = table
	}

	result := make(storage.CascadeResult, len(tables))
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireEnvironment(ctx, tx, id); err != nil {
			return domain.ErrNotFound
		}
		for i, table := range tables {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE environment_id = $1`, id)
			if err != nil {
				return fmt.Errorf("cascading %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			result[storage.Cascades[i]] = int(n)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM environments WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ============================================
// API Keys
// ============================================

const apiKeyColumns = `id, environment_id, name, key_value, status, permissions,
	created_at, expires_at, last_used_at, rate_limit`

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	if err := requireEnvironment(ctx, s.db, key.EnvironmentID); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`)
		 VALUES (:id, :environment_id, :name, :key_value, :status, :permissions,
		 :created_at, :expires_at, :last_used_at, :rate_limit)`,
		apiKeyToRow(key))
	return wrapUniqueError(err)
}

func (s *Store) GetAPIKey(ctx context.Context, id string) (*domain.APIKey, error) {
	var row apiKeyRow
	err := s.db.GetContext(ctx, &row, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAPIKeys(ctx context.Context, environmentID string) ([]*domain.APIKey, error) {
	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE environment_id = $1 ORDER BY created_at, id`,
		environmentID); err != nil {
		return nil, err
	}
	keys := make([]*domain.APIKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.toDomain())
	}
	return keys, nil
}

func (s *Store) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	if err := requireEnvironment(ctx, s.db, key.EnvironmentID); err != nil {
		return err
	}
	return expectAffected(s.db.NamedExecContext(ctx,
		`UPDATE api_keys SET environment_id = :environment_id, name = :name, key_value = :key_value,
		 status = :status, permissions = :permissions, created_at = :created_at,
		 expires_at = :expires_at, last_used_at = :last_used_at, rate_limit = :rate_limit
		 WHERE id = :id`,
		apiKeyToRow(key)))
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	return expectAffected(s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id))
}

func (s *Store) CountAPIKeys(ctx context.Context, environmentID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM api_keys WHERE environment_id = $1`, environmentID)
	return n, err
}

// ============================================
// Webhooks
// ============================================

const webhookColumns = `id, environment_id, name, url, secret, events, status,
	retry_enabled, retry_max, last_triggered_at, created_at`

func (s *Store) CreateWebhook(ctx context.Context, hook *domain.Webhook) error {
	if err := requireEnvironment(ctx, s.db, hook.EnvironmentID); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO webhooks (`+webhookColumns+`)
		 VALUES (:id, :environment_id, :name, :url, :secret, :events, :status,
		 :retry_enabled, :retry_max, :last_triggered_at, :created_at)`,
		webhookToRow(hook))
	return wrapUniqueError(err)
}

func (s *Store) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	var row webhookRow
	err := s.db.GetContext(ctx, &row, `SELECT `+webhookColumns+` FROM webhooks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListWebhooks(ctx context.Context, environmentID string) ([]*domain.Webhook, error) {
	var rows []webhookRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+webhookColumns+` FROM webhooks WHERE environment_id = $1 ORDER BY created_at, id`,
		environmentID); err != nil {
		return nil, err
	}
	hooks := make([]*domain.Webhook, 0, len(rows))
	for _, r := range rows {
		hooks = append(hooks, r.toDomain())
	}
	return hooks, nil
}

func (s *Store) UpdateWebhook(ctx context.Context, hook *domain.Webhook) error {
	if err := requireEnvironment(ctx, s.db, hook.EnvironmentID); err != nil {
		return err
	}
	return expectAffected(s.db.NamedExecContext(ctx,
		`UPDATE webhooks SET environment_id = :environment_id, name = :name, url = :url,
		 secret = :secret, events = :events, status = :status, retry_enabled = :retry_enabled,
		 retry_max = :retry_max, last_triggered_at = :last_triggered_at, created_at = :created_at
		 WHERE id = :id`,
		webhookToRow(hook)))
}

func (s *Store) DeleteWebhook(ctx context.Context, id string) error {
	return expectAffected(s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id))
}

func (s *Store) CountWebhooks(ctx context.Context, environmentID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM webhooks WHERE environment_id = $1`, environmentID)
	return n, err
}

// ============================================
// Logs
// ============================================

const logColumns = `id, environment_id, ts_unix_nano, level, source, message, details,
	request_id, status_code, latency_ms`

const insertLog = `INSERT INTO log_entries (` + logColumns + `)
	VALUES (:id, :environment_id, :ts_unix_nano, :level, :source, :message, :details,
	:request_id, :status_code, :latency_ms)`

func (s *Store) AppendLog(ctx context.Context, entry *domain.LogEntry) error {
	if err := requireEnvironment(ctx, s.db, entry.EnvironmentID); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx, insertLog, logToRow(entry))
	return wrapUniqueError(err)
}

func (s *Store) ListLogs(ctx context.Context, environmentID string, filter domain.LogFilter) ([]*domain.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM log_entries WHERE environment_id = $1`
	args := []any{environmentID}
	if filter.Level != "" {
		args = append(args, string(filter.Level))
		query += fmt.Sprintf(` AND level = $%d`, len(args))
	}
	if filter.Source != "" {
		args = append(args, string(filter.Source))
		query += fmt.Sprintf(` AND source = $%d`, len(args))
	}
	query += ` ORDER BY ts_unix_nano DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var rows []logRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]*domain.LogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

func (s *Store) ReplaceLogs(ctx context.Context, environmentID string, entries []*domain.LogEntry) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireEnvironment(ctx, tx, environmentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM log_entries WHERE environment_id = $1`, environmentID); err != nil {
			return err
		}
		// Later inserts win ties on timestamp, so insert in reverse to keep
		// the batch's own order for equal timestamps.
		for _, e := range slices.Backward(entries) {
			row := logToRow(e)
			row.EnvironmentID = environmentID
			if _, err := tx.NamedExecContext(ctx, insertLog, row); err != nil {
				return wrapUniqueError(err)
			}
		}
		return nil
	})
}

// ============================================
// Alert Rules
// ============================================

const alertRuleColumns = `id, environment_id, name, metric, operator, threshold,
	duration_minutes, status, channels, recipients, created_at`

func (s *Store) CreateAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	if err := requireEnvironment(ctx, s.db, rule.EnvironmentID); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO alert_rules (`+alertRuleColumns+`)
		 VALUES (:id, :environment_id, :name, :metric, :operator, :threshold,
		 :duration_minutes, :status, :channels, :recipients, :created_at)`,
		alertRuleToRow(rule))
	return wrapUniqueError(err)
}

func (s *Store) GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	var row alertRuleRow
	err := s.db.GetContext(ctx, &row, `SELECT `+alertRuleColumns+` FROM alert_rules WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAlertRules(ctx context.Context, environmentID string) ([]*domain.AlertRule, error) {
	var rows []alertRuleRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+alertRuleColumns+` FROM alert_rules WHERE environment_id = $1 ORDER BY created_at, id`,
		environmentID); err != nil {
		return nil, err
	}
	rules := make([]*domain.AlertRule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, r.toDomain())
	}
	return rules, nil
}

func (s *Store) UpdateAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	if err := requireEnvironment(ctx, s.db, rule.EnvironmentID); err != nil {
		return err
	}
	return expectAffected(s.db.NamedExecContext(ctx,
		`UPDATE alert_rules SET environment_id = :environment_id, name = :name, metric = :metric,
		 operator = :operator, threshold = :threshold, duration_minutes = :duration_minutes,
		 status = :status, channels = :channels, recipients = :recipients, created_at = :created_at
		 WHERE id = :id`,
		alertRuleToRow(rule)))
}

func (s *Store) DeleteAlertRule(ctx context.Context, id string) error {
	return expectAffected(s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id))
}

package sql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
)

// jsonList stores a string slice as a JSON array in a TEXT column.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *jsonList) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil || raw == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// jsonObject stores a map as a JSON object in a nullable TEXT column.
type jsonObject map[string]any

func (o jsonObject) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(o))
	return string(b), err
}

func (o *jsonObject) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil || raw == nil {
		*o = nil
		return err
	}
	return json.Unmarshal(raw, (*map[string]any)(o))
}

func textOf(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}

type environmentRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Description    string    `db:"description"`
	Status         string    `db:"status"`
	OwnerID        string    `db:"owner_id"`
	Region         string    `db:"region"`
	RateLimit      int       `db:"rate_limit"`
	RetentionDays  int       `db:"retention_days"`
	LoggingEnabled bool      `db:"logging_enabled"`
	PublicAccess   bool      `db:"public_access"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func environmentToRow(e *domain.Environment) environmentRow {
	return environmentRow{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		Status:         string(e.Status),
		OwnerID:        e.OwnerID,
		Region:         e.Region,
		RateLimit:      e.Config.RateLimit,
		RetentionDays:  e.Config.RetentionDays,
		LoggingEnabled: e.Config.LoggingEnabled,
		PublicAccess:   e.Config.PublicAccess,
		CreatedAt:      e.CreatedAt.UTC(),
		UpdatedAt:      e.UpdatedAt.UTC(),
	}
}

func (r environmentRow) toDomain() *domain.Environment {
	return &domain.Environment{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      domain.EnvironmentStatus(r.Status),
		OwnerID:     r.OwnerID,
		Region:      r.Region,
		Config: domain.EnvironmentConfig{
			RateLimit:      r.RateLimit,
			RetentionDays:  r.RetentionDays,
			LoggingEnabled: r.LoggingEnabled,
			PublicAccess:   r.PublicAccess,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type apiKeyRow struct {
	ID            string     `db:"id"`
	EnvironmentID string     `db:"environment_id"`
	Name          string     `db:"name"`
	KeyValue      string     `db:"key_value"`
	Status        string     `db:"status"`
	Permissions   jsonList   `db:"permissions"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
	LastUsedAt    *time.Time `db:"last_used_at"`
	RateLimit     *int       `db:"rate_limit"`
}

func apiKeyToRow(k *domain.APIKey) apiKeyRow {
	return apiKeyRow{
		ID:            k.ID,
		EnvironmentID: k.EnvironmentID,
		Name:          k.Name,
		KeyValue:      k.Key,
		Status:        string(k.Status),
		Permissions:   jsonList(k.Permissions),
		CreatedAt:     k.CreatedAt.UTC(),
		ExpiresAt:     utcPtr(k.ExpiresAt),
		LastUsedAt:    utcPtr(k.LastUsedAt),
		RateLimit:     k.RateLimit,
	}
}

func (r apiKeyRow) toDomain() *domain.APIKey {
	return &domain.APIKey{
		ID:            r.ID,
		EnvironmentID: r.EnvironmentID,
		Name:          r.Name,
		Key:           r.KeyValue,
		Status:        domain.APIKeyStatus(r.Status),
		Permissions:   []string(r.Permissions),
		CreatedAt:     r.CreatedAt,
		ExpiresAt:     r.ExpiresAt,
		LastUsedAt:    r.LastUsedAt,
		RateLimit:     r.RateLimit,
	}
}

type webhookRow struct {
	ID              string     `db:"id"`
	EnvironmentID   string     `db:"environment_id"`
	Name            string     `db:"name"`
	URL             string     `db:"url"`
	Secret          string     `db:"secret"`
	Events          jsonList   `db:"events"`
	Status          string     `db:"status"`
	RetryEnabled    bool       `db:"retry_enabled"`
	RetryMax        int        `db:"retry_max"`
	LastTriggeredAt *time.Time `db:"last_triggered_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

func webhookToRow(w *domain.Webhook) webhookRow {
	return webhookRow{
		ID:              w.ID,
		EnvironmentID:   w.EnvironmentID,
		Name:            w.Name,
		URL:             w.URL,
		Secret:          w.Secret,
		Events:          jsonList(w.Events),
		Status:          string(w.Status),
		RetryEnabled:    w.RetryPolicy.Enabled,
		RetryMax:        w.RetryPolicy.MaxRetries,
		LastTriggeredAt: utcPtr(w.LastTriggeredAt),
		CreatedAt:       w.CreatedAt.UTC(),
	}
}

func (r webhookRow) toDomain() *domain.Webhook {
	return &domain.Webhook{
		ID:            r.ID,
		EnvironmentID: r.EnvironmentID,
		Name:          r.Name,
		URL:           r.URL,
		Secret:        r.Secret,
		Events:        []string(r.Events),
		Status:        domain.WebhookStatus(r.Status),
		RetryPolicy: domain.RetryPolicy{
			Enabled:    r.RetryEnabled,
			MaxRetries: r.RetryMax,
		},
		LastTriggeredAt: r.LastTriggeredAt,
		CreatedAt:       r.CreatedAt,
	}
}

// logRow stores the timestamp as unix nanoseconds so ordering is numeric.
type logRow struct {
	ID            string     `db:"id"`
	EnvironmentID string     `db:"environment_id"`
	TSUnixNano    int64      `db:"ts_unix_nano"`
	Level         string     `db:"level"`
	Source        string     `db:"source"`
	Message       string     `db:"message"`
	Details       jsonObject `db:"details"`
	RequestID     string     `db:"request_id"`
	StatusCode    *int       `db:"status_code"`
	LatencyMS     *int       `db:"latency_ms"`
}

func logToRow(e *domain.LogEntry) logRow {
	return logRow{
		ID:            e.ID,
		EnvironmentID: e.EnvironmentID,
		TSUnixNano:    e.Timestamp.UnixNano(),
		Level:         string(e.Level),
		Source:        string(e.Source),
		Message:       e.Message,
		Details:       jsonObject(e.Details),
		RequestID:     e.RequestID,
		StatusCode:    e.StatusCode,
		LatencyMS:     e.LatencyMS,
	}
}

func (r logRow) toDomain() *domain.LogEntry {
	return &domain.LogEntry{
		ID:            r.ID,
		EnvironmentID: r.EnvironmentID,
		Timestamp:     time.Unix(0, r.TSUnixNano).UTC(),
		Level:         domain.LogLevel(r.Level),
		Source:        domain.LogSource(r.Source),
		Message:       r.Message,
		Details:       map[string]any(r.Details),
		RequestID:     r.RequestID,
		StatusCode:    r.StatusCode,
		LatencyMS:     r.LatencyMS,
	}
}

type alertRuleRow struct {
	ID              string    `db:"id"`
	EnvironmentID   string    `db:"environment_id"`
	Name            string    `db:"name"`
	Metric          string    `db:"metric"`
	Operator        string    `db:"operator"`
	Threshold       float64   `db:"threshold"`
	DurationMinutes int       `db:"duration_minutes"`
	Status          string    `db:"status"`
	Channels        jsonList  `db:"channels"`
	Recipients      jsonList  `db:"recipients"`
	CreatedAt       time.Time `db:"created_at"`
}

func alertRuleToRow(a *domain.AlertRule) alertRuleRow {
	return alertRuleRow{
		ID:              a.ID,
		EnvironmentID:   a.EnvironmentID,
		Name:            a.Name,
		Metric:          string(a.Metric),
		Operator:        string(a.Operator),
		Threshold:       a.Threshold,
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Channels:        jsonList(a.Channels),
		Recipients:      jsonList(a.Recipients),
		CreatedAt:       a.CreatedAt.UTC(),
	}
}

func (r alertRuleRow) toDomain() *domain.AlertRule {
	return &domain.AlertRule{
		ID:              r.ID,
		EnvironmentID:   r.EnvironmentID,
		Name:            r.Name,
		Metric:          domain.AlertMetric(r.Metric),
		Operator:        domain.AlertOperator(r.Operator),
		Threshold:       r.Threshold,
		DurationMinutes: r.DurationMinutes,
		Status:          domain.AlertStatus(r.Status),
		Channels:        []string(r.Channels),
		Recipients:      []string(r.Recipients),
		CreatedAt:       r.CreatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

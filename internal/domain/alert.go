package domain

import "time"

// AlertMetric is a metric an alert rule can watch.
type AlertMetric string

const (
	MetricAPIErrors         AlertMetric = "api_errors"
	MetricAPILatency        AlertMetric = "api_latency"
	MetricWebhookFailures   AlertMetric = "webhook_failures"
	MetricRateLimitExceeded AlertMetric = "rate_limit_exceeded"
)

// AlertOperator compares a metric value against a threshold.
type AlertOperator string

const (
	OperatorGreaterThan AlertOperator = "gt"
	OperatorLessThan    AlertOperator = "lt"
	OperatorEqual       AlertOperator = "eq"
)

// AlertStatus is whether a rule is evaluated.
type AlertStatus string

const (
	AlertActive AlertStatus = "active"
	AlertPaused AlertStatus = "paused"
)

// Notification channels for alert rules.
var KnownAlertChannels = []string{"email", "slack", "sms", "webhook"}

// AlertRule watches one metric of an environment.
type AlertRule struct {
	ID              string        `json:"id" db:"id"`
	EnvironmentID   string        `json:"environmentId" db:"environment_id"`
	Name            string        `json:"name" db:"name"`
	Metric          AlertMetric   `json:"metric" db:"metric"`
	Operator        AlertOperator `json:"operator" db:"operator"`
	Threshold       float64       `json:"threshold" db:"threshold"`
	DurationMinutes int           `json:"durationMinutes" db:"duration_minutes"`
	Status          AlertStatus   `json:"status" db:"status"`
	Channels        []string      `json:"channels" db:"-"`
	Recipients      []string      `json:"recipients" db:"-"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}

// CreateAlertRuleRequest is the request body for creating an alert rule.
type CreateAlertRuleRequest struct {
	Name            string        `json:"name" validate:"required,max=64"`
	Metric          AlertMetric   `json:"metric" validate:"required"`
	Operator        AlertOperator `json:"operator" validate:"required,oneof=gt lt eq"`
	Threshold       float64       `json:"threshold"`
	DurationMinutes int           `json:"durationMinutes" validate:"gte=1,lte=1440"`
	Channels        []string      `json:"channels" validate:"required,min=1"`
	Recipients      []string      `json:"recipients,omitempty"`
}

// UpdateAlertRuleRequest is the request body for updating an alert rule.
type UpdateAlertRuleRequest struct {
	Name            *string        `json:"name,omitempty" validate:"omitempty,max=64"`
	Operator        *AlertOperator `json:"operator,omitempty" validate:"omitempty,oneof=gt lt eq"`
	Threshold       *float64       `json:"threshold,omitempty"`
	DurationMinutes *int           `json:"durationMinutes,omitempty" validate:"omitempty,gte=1,lte=1440"`
	Status          *AlertStatus   `json:"status,omitempty" validate:"omitempty,oneof=active paused"`
	Channels        []string       `json:"channels,omitempty"`
	Recipients      []string       `json:"recipients,omitempty"`
}

// AlertEvaluation is the outcome of checking one rule against current metrics.
type AlertEvaluation struct {
	Rule    *AlertRule `json:"rule"`
	Value   float64    `json:"value"`
	Firing  bool       `json:"firing"`
	Skipped bool       `json:"skipped,omitempty"`
}

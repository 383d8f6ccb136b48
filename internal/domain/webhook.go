package domain

import "time"

// WebhookStatus is the delivery state of a webhook.
type WebhookStatus string

const (
	WebhookActive WebhookStatus = "active"
	WebhookPaused WebhookStatus = "paused"
	WebhookFailed WebhookStatus = "failed"
)

// Events a webhook can subscribe to.
var KnownWebhookEvents = []string{
	"user.created",
	"user.updated",
	"user.deleted",
	"order.created",
	"order.completed",
	"payment.succeeded",
	"payment.failed",
}

// Webhook is a notification target registered on an environment.
// Deliveries are simulated; nothing is sent over the network.
type Webhook struct {
	ID              string        `json:"id" db:"id"`
	EnvironmentID   string        `json:"environmentId" db:"environment_id"`
	Name            string        `json:"name" db:"name"`
	URL             string        `json:"url" db:"url"`
	Secret          string        `json:"secret" db:"secret"`
	Events          []string      `json:"events" db:"-"`
	Status          WebhookStatus `json:"status" db:"status"`
	RetryPolicy     RetryPolicy   `json:"retryPolicy"`
	LastTriggeredAt *time.Time    `json:"lastTriggeredAt,omitempty" db:"last_triggered_at"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}

// RetryPolicy is declarative only; no retries are executed.
type RetryPolicy struct {
	Enabled    bool `json:"enabled" db:"retry_enabled"`
	MaxRetries int  `json:"maxRetries" db:"retry_max"`
}

// CreateWebhookRequest is the request body for creating a webhook.
type CreateWebhookRequest struct {
	Name        string       `json:"name" validate:"required,max=64"`
	URL         string       `json:"url" validate:"required,url"`
	Secret      string       `json:"secret,omitempty"`
	Events      []string     `json:"events" validate:"required,min=1"`
	RetryPolicy *RetryPolicy `json:"retryPolicy,omitempty"`
}

// UpdateWebhookRequest is the request body for updating a webhook.
type UpdateWebhookRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,max=64"`
	URL         *string        `json:"url,omitempty" validate:"omitempty,url"`
	Events      []string       `json:"events,omitempty"`
	Status      *WebhookStatus `json:"status,omitempty"`
	RetryPolicy *RetryPolicy   `json:"retryPolicy,omitempty"`
}

// WebhookEvent is the payload produced by a simulated delivery.
type WebhookEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// WebhookTestResult describes a simulated delivery.
type WebhookTestResult struct {
	Event      WebhookEvent `json:"event"`
	Signature  string       `json:"signature"`
	StatusCode int          `json:"statusCode"`
	LatencyMS  int          `json:"latencyMs"`
	Delivered  bool         `json:"delivered"`
}

package domain

import "time"

// EnvironmentStatus is the lifecycle state of a sandbox environment.
type EnvironmentStatus string

const (
	EnvironmentActive       EnvironmentStatus = "active"
	EnvironmentStopped      EnvironmentStatus = "stopped"
	EnvironmentArchived     EnvironmentStatus = "archived"
	EnvironmentProvisioning EnvironmentStatus = "provisioning"
)

// Valid reports whether s is a known environment status.
func (s EnvironmentStatus) Valid() bool {
	switch s {
	case EnvironmentActive, EnvironmentStopped, EnvironmentArchived, EnvironmentProvisioning:
		return true
	}
	return false
}

// Environment is an isolated sandbox that owns API keys, webhooks, alert rules
// and a partition of the log stream.
type Environment struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Status      EnvironmentStatus `json:"status" db:"status"`
	OwnerID     string            `json:"ownerId" db:"owner_id"`
	Region      string            `json:"region" db:"region"`
	Config      EnvironmentConfig `json:"config"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`

	// Derived at read time, never stored.
	APIKeyCount  int `json:"apiKeyCount" db:"-"`
	WebhookCount int `json:"webhookCount" db:"-"`
}

// EnvironmentConfig holds the tunables of an environment.
type EnvironmentConfig struct {
	RateLimit      int  `json:"rateLimit" db:"rate_limit"` // requests per minute
	RetentionDays  int  `json:"retentionDays" db:"retention_days"`
	LoggingEnabled bool `json:"loggingEnabled" db:"logging_enabled"`
	PublicAccess   bool `json:"publicAccess" db:"public_access"`
}

// DefaultEnvironmentConfig is applied when a create request leaves the config empty.
func DefaultEnvironmentConfig() EnvironmentConfig {
	return EnvironmentConfig{
		RateLimit:      1000,
		RetentionDays:  7,
		LoggingEnabled: true,
	}
}

// CreateEnvironmentRequest is the request body for creating an environment.
type CreateEnvironmentRequest struct {
	Name        string             `json:"name" validate:"required,max=64"`
	Description string             `json:"description,omitempty" validate:"max=512"`
	Region      string             `json:"region,omitempty"`
	OwnerID     string             `json:"ownerId,omitempty"`
	Status      EnvironmentStatus  `json:"status,omitempty"`
	Config      *EnvironmentConfig `json:"config,omitempty"`
}

// UpdateEnvironmentRequest is the request body for updating an environment.
type UpdateEnvironmentRequest struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,max=64"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=512"`
	Region      *string            `json:"region,omitempty"`
	Config      *EnvironmentConfig `json:"config,omitempty"`
}

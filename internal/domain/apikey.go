package domain

import (
	"slices"
	"time"
)

// APIKeyStatus is the state of an API key. Transitions only move forward.
type APIKeyStatus string

const (
	APIKeyActive  APIKeyStatus = "active"
	APIKeyRevoked APIKeyStatus = "revoked"
	APIKeyExpired APIKeyStatus = "expired"
)

// Permissions understood by the request simulator.
const (
	PermissionReadData       = "read:data"
	PermissionWriteData      = "write:data"
	PermissionManageWebhooks = "manage:webhooks"
	PermissionAdmin          = "admin"
)

// KnownPermissions lists every permission that can be granted to a key.
var KnownPermissions = []string{
	PermissionReadData,
	PermissionWriteData,
	PermissionManageWebhooks,
	PermissionAdmin,
}

// APIKey is a sandbox credential scoped to one environment.
// Key holds an obfuscated display value, never a usable secret.
type APIKey struct {
	ID            string       `json:"id" db:"id"`
	EnvironmentID string       `json:"environmentId" db:"environment_id"`
	Name          string       `json:"name" db:"name"`
	Key           string       `json:"key" db:"key_value"`
	Status        APIKeyStatus `json:"status" db:"status"`
	Permissions   []string     `json:"permissions" db:"-"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty" db:"expires_at"`
	LastUsedAt    *time.Time   `json:"lastUsedAt,omitempty" db:"last_used_at"`
	RateLimit     *int         `json:"rateLimit,omitempty" db:"rate_limit"`
}

// HasPermission reports whether the key was granted perm.
func (k *APIKey) HasPermission(perm string) bool {
	return slices.Contains(k.Permissions, perm)
}

// CreateAPIKeyRequest is the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name        string     `json:"name" validate:"required,max=64"`
	Permissions []string   `json:"permissions" validate:"required,min=1"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RateLimit   *int       `json:"rateLimit,omitempty" validate:"omitempty,gt=0"`
}

// UpdateAPIKeyRequest is the request body for updating an API key.
type UpdateAPIKeyRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=64"`
	Permissions []string   `json:"permissions,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RateLimit   *int       `json:"rateLimit,omitempty" validate:"omitempty,gt=0"`
}

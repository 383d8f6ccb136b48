package domain

// EntityKind names a stored collection.
type EntityKind string

const (
	KindEnvironment EntityKind = "environment"
	KindAPIKey      EntityKind = "api_key"
	KindWebhook     EntityKind = "webhook"
	KindLogEntry    EntityKind = "log_entry"
	KindAlertRule   EntityKind = "alert_rule"
	KindSelection   EntityKind = "selection"
)

// ChangeOp is the kind of mutation a Change reports.
type ChangeOp string

const (
	OpCreate  ChangeOp = "create"
	OpUpdate  ChangeOp = "update"
	OpDelete  ChangeOp = "delete"
	OpRefresh ChangeOp = "refresh"
)

// Change is emitted to subscribers after every successful mutation.
type Change struct {
	Kind          EntityKind `json:"kind"`
	Op            ChangeOp   `json:"op"`
	ID            string     `json:"id,omitempty"`
	EnvironmentID string     `json:"environmentId,omitempty"`
}

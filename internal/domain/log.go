package domain

import "time"

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
	LogDebug LogLevel = "DEBUG"
)

// LogSource is the subsystem that produced a log entry.
type LogSource string

const (
	SourceAPI     LogSource = "API"
	SourceWebhook LogSource = "Webhook"
	SourceSystem  LogSource = "System"
	SourceAuth    LogSource = "Auth"
)

// LogEntry is one line of an environment's log stream.
// Entries are append-only; they only disappear on refresh or with their environment.
type LogEntry struct {
	ID            string         `json:"id" db:"id"`
	EnvironmentID string         `json:"environmentId" db:"environment_id"`
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
	Level         LogLevel       `json:"level" db:"level"`
	Source        LogSource      `json:"source" db:"source"`
	Message       string         `json:"message" db:"message"`
	Details       map[string]any `json:"details,omitempty" db:"-"`
	RequestID     string         `json:"requestId,omitempty" db:"request_id"`
	StatusCode    *int           `json:"statusCode,omitempty" db:"status_code"`
	LatencyMS     *int           `json:"latencyMs,omitempty" db:"latency_ms"`
}

// LogFilter narrows a log listing. Zero values match everything.
type LogFilter struct {
	Level  LogLevel
	Source LogSource
	Limit  int
}

// Match reports whether e passes the level and source filters.
func (f LogFilter) Match(e *LogEntry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	return true
}

// CreateLogRequest is the request body for appending a log entry.
type CreateLogRequest struct {
	Level      LogLevel       `json:"level" validate:"required,oneof=INFO WARN ERROR DEBUG"`
	Source     LogSource      `json:"source" validate:"required,oneof=API Webhook System Auth"`
	Message    string         `json:"message" validate:"required"`
	Details    map[string]any `json:"details,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	StatusCode *int           `json:"statusCode,omitempty"`
	LatencyMS  *int           `json:"latencyMs,omitempty"`
}

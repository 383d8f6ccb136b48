// Package validation provides validation functions for sandbox entities and
// request payloads. Request shape is checked with go-playground/validator;
// domain rules that span fields or depend on the known vocabularies are
// checked by hand.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates a request DTO's tags and returns ValidationErrors on failure.
func Struct(v any) error {
	return fromValidator(validate.Struct(v))
}

// ============================================
// Field rules
// ============================================

// ValidatePermissions checks that perms is non-empty, known and free of duplicates.
func ValidatePermissions(perms []string) error {
	if len(perms) == 0 {
		return fmt.Errorf("at least one permission is required")
	}
	seen := make(map[string]bool, len(perms))
	for _, p := range perms {
		if !slices.Contains(domain.KnownPermissions, p) {
			return fmt.Errorf("unknown permission %q (valid: %s)", p, strings.Join(domain.KnownPermissions, ", "))
		}
		if seen[p] {
			return fmt.Errorf("duplicate permission %q", p)
		}
		seen[p] = true
	}
	return nil
}

// ValidateWebhookEvents checks that events is non-empty and every event is known.
func ValidateWebhookEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	for _, e := range events {
		if !slices.Contains(domain.KnownWebhookEvents, e) {
			return fmt.Errorf("unknown event %q", e)
		}
	}
	return nil
}

// ValidateWebhookURL requires an absolute http or https URL with a host.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// ValidateAlertChannels checks that channels is non-empty and every channel is known.
func ValidateAlertChannels(channels []string) error {
	if len(channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}
	for _, c := range channels {
		if !slices.Contains(domain.KnownAlertChannels, c) {
			return fmt.Errorf("unknown channel %q (valid: %s)", c, strings.Join(domain.KnownAlertChannels, ", "))
		}
	}
	return nil
}

// ValidateAlertMetric checks the metric name.
func ValidateAlertMetric(m domain.AlertMetric) error {
	switch m {
	case domain.MetricAPIErrors, domain.MetricAPILatency, domain.MetricWebhookFailures, domain.MetricRateLimitExceeded:
		return nil
	}
	return fmt.Errorf("unknown metric %q", m)
}

// ValidateAlertOperator checks the comparison operator.
func ValidateAlertOperator(op domain.AlertOperator) error {
	switch op {
	case domain.OperatorGreaterThan, domain.OperatorLessThan, domain.OperatorEqual:
		return nil
	}
	return fmt.Errorf("unknown operator %q (valid: gt, lt, eq)", op)
}

// ValidateRecipients requires every recipient to be an email address.
func ValidateRecipients(recipients []string) error {
	for _, r := range recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("invalid recipient %q", r)
		}
	}
	return nil
}

// ValidateMetricsWindow checks a requested snapshot width in minutes.
func ValidateMetricsWindow(window int) error {
	if window < 1 || window > domain.MaxMetricsWindow {
		return ValidationErrors{NewValidationError("window", fmt.Sprint(window), fmt.Sprintf("must be between 1 and %d", domain.MaxMetricsWindow))}
	}
	return nil
}

// ValidateEnvironmentConfig checks the numeric bounds of an environment configuration.
func ValidateEnvironmentConfig(cfg domain.EnvironmentConfig) ValidationErrors {
	var errs ValidationErrors
	if cfg.RateLimit <= 0 {
		errs.Add("config.rateLimit", fmt.Sprint(cfg.RateLimit), "must be greater than 0")
	}
	if cfg.RetentionDays < 1 || cfg.RetentionDays > 365 {
		errs.Add("config.retentionDays", fmt.Sprint(cfg.RetentionDays), "must be between 1 and 365")
	}
	return errs
}

// ============================================
// Entity rules
// ============================================

// Environment validates a complete environment record.
func Environment(env *domain.Environment) error {
	var errs ValidationErrors
	if strings.TrimSpace(env.Name) == "" {
		errs.Add("name", env.Name, "is required")
	}
	if len(env.Name) > 64 {
		errs.Add("name", env.Name, "must be at most 64 characters")
	}
	if !env.Status.Valid() {
		errs.Add("status", string(env.Status), "must be one of: active, stopped, archived, provisioning")
	}
	errs = append(errs, ValidateEnvironmentConfig(env.Config)...)
	return errs.Err()
}

// APIKey validates a complete API key record.
func APIKey(key *domain.APIKey) error {
	var errs ValidationErrors
	if key.EnvironmentID == "" {
		errs.Add("environmentId", "", "is required")
	}
	if strings.TrimSpace(key.Name) == "" {
		errs.Add("name", key.Name, "is required")
	}
	switch key.Status {
	case domain.APIKeyActive, domain.APIKeyRevoked, domain.APIKeyExpired:
	default:
		errs.Add("status", string(key.Status), "must be one of: active, revoked, expired")
	}
	if err := ValidatePermissions(key.Permissions); err != nil {
		errs.Add("permissions", strings.Join(key.Permissions, ","), err.Error())
	}
	if key.RateLimit != nil && *key.RateLimit <= 0 {
		errs.Add("rateLimit", fmt.Sprint(*key.RateLimit), "must be greater than 0")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(key.CreatedAt) {
		errs.Add("expiresAt", key.ExpiresAt.String(), "must not be before createdAt")
	}
	return errs.Err()
}

// Webhook validates a complete webhook record.
func Webhook(hook *domain.Webhook) error {
	var errs ValidationErrors
	if hook.EnvironmentID == "" {
		errs.Add("environmentId", "", "is required")
	}
	if strings.TrimSpace(hook.Name) == "" {
		errs.Add("name", hook.Name, "is required")
	}
	if err := ValidateWebhookURL(hook.URL); err != nil {
		errs.Add("url", hook.URL, err.Error())
	}
	if err := ValidateWebhookEvents(hook.Events); err != nil {
		errs.Add("events", strings.Join(hook.Events, ","), err.Error())
	}
	switch hook.Status {
	case domain.WebhookActive, domain.WebhookPaused, domain.WebhookFailed:
	default:
		errs.Add("status", string(hook.Status), "must be one of: active, paused, failed")
	}
	if hook.RetryPolicy.MaxRetries < 0 || hook.RetryPolicy.MaxRetries > 10 {
		errs.Add("retryPolicy.maxRetries", fmt.Sprint(hook.RetryPolicy.MaxRetries), "must be between 0 and 10")
	}
	return errs.Err()
}

// AlertRule validates a complete alert rule record.
func AlertRule(rule *domain.AlertRule) error {
	var errs ValidationErrors
	if rule.EnvironmentID == "" {
		errs.Add("environmentId", "", "is required")
	}
	if strings.TrimSpace(rule.Name) == "" {
		errs.Add("name", rule.Name, "is required")
	}
	if err := ValidateAlertMetric(rule.Metric); err != nil {
		errs.Add("metric", string(rule.Metric), err.Error())
	}
	if err := ValidateAlertOperator(rule.Operator); err != nil {
		errs.Add("operator", string(rule.Operator), err.Error())
	}
	if rule.DurationMinutes < 1 || rule.DurationMinutes > domain.MaxMetricsWindow {
		errs.Add("durationMinutes", fmt.Sprint(rule.DurationMinutes), fmt.Sprintf("must be between 1 and %d", domain.MaxMetricsWindow))
	}
	if rule.Status != domain.AlertActive && rule.Status != domain.AlertPaused {
		errs.Add("status", string(rule.Status), "must be one of: active, paused")
	}
	if err := ValidateAlertChannels(rule.Channels); err != nil {
		errs.Add("channels", strings.Join(rule.Channels, ","), err.Error())
	}
	if err := ValidateRecipients(rule.Recipients); err != nil {
		errs.Add("recipients", strings.Join(rule.Recipients, ","), err.Error())
	}
	return errs.Err()
}

// LogEntry validates a log entry.
func LogEntry(e *domain.LogEntry) error {
	var errs ValidationErrors
	if e.EnvironmentID == "" {
		errs.Add("environmentId", "", "is required")
	}
	switch e.Level {
	case domain.LogInfo, domain.LogWarn, domain.LogError, domain.LogDebug:
	default:
		errs.Add("level", string(e.Level), "must be one of: INFO, WARN, ERROR, DEBUG")
	}
	switch e.Source {
	case domain.SourceAPI, domain.SourceWebhook, domain.SourceSystem, domain.SourceAuth:
	default:
		errs.Add("source", string(e.Source), "must be one of: API, Webhook, System, Auth")
	}
	if strings.TrimSpace(e.Message) == "" {
		errs.Add("message", e.Message, "is required")
	}
	return errs.Err()
}

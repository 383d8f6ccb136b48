// Package mockdata synthesises the sandbox's environments, keys, webhooks, logs,
// alert rules, metric series and mock response objects.
package mockdata

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultLogBatch is the number of entries a log refresh produces.
const DefaultLogBatch = 25

// Generator is safe for concurrent use. Its output is reproducible for a
// given seed and clock, apart from uuid identifiers.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a generator seeded with seed.
func New(seed int64) *Generator {
	rng := rand.New(rand.NewSource(seed))
	return &Generator{
		rng:     rng,
		entropy: ulid.Monotonic(rng, 0),
		now:     time.Now,
	}
}

// WithClock replaces the generator's clock.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

// Now returns the generator's current time in UTC.
func (g *Generator) Now() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().UTC()
}

// Between returns a uniformly distributed integer in [lo, hi].
func (g *Generator) Between(lo, hi int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.between(lo, hi)
}

// Duration returns a uniformly distributed duration in [lo, hi] at millisecond resolution.
func (g *Generator) Duration(lo, hi time.Duration) time.Duration {
	return time.Duration(g.Between(int(lo.Milliseconds()), int(hi.Milliseconds()))) * time.Millisecond
}

// RequestID returns a time-ordered request identifier.
func (g *Generator) RequestID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "req_" + strings.ToLower(g.ulid().String())
}

// LogID returns a log entry identifier that sorts by ts.
func (g *Generator) LogID(ts time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "log_" + strings.ToLower(ulid.MustNew(ulid.Timestamp(ts), g.entropy).String())
}

// EventID returns a time-ordered webhook event identifier.
func (g *Generator) EventID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "evt_" + strings.ToLower(g.ulid().String())
}

// ObfuscatedKey returns a display-safe key value with only the tail visible.
func (g *Generator) ObfuscatedKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.obfuscatedKey()
}

// ============================================
// Entities
// ============================================

var (
	envNames = []string{"Development", "Staging", "QA", "Integration", "Demo", "Load Test", "Partner Preview"}
	regions  = []string{"us-east-1", "us-west-2", "eu-west-1", "eu-central-1", "ap-southeast-1"}
	owners   = []string{"user_alice", "user_bob", "user_carol", "user_dave"}
	keyNames = []string{"Backend Service", "Mobile App", "CI Pipeline", "Analytics Export", "Partner Integration"}
	hookHost = []string{"api.acme.dev", "hooks.example.com", "events.partner.io", "ingest.internal.test"}
)

// Environment returns a synthetic environment. Counts are left for the store to derive.
func (g *Generator) Environment() *domain.Environment {
	g.mu.Lock()
	defer g.mu.Unlock()

	created := g.now().UTC().Add(-time.Duration(g.between(1, 90*24)) * time.Hour)
	status := domain.EnvironmentActive
	switch r := g.rng.Intn(10); {
	case r == 0:
		status = domain.EnvironmentStopped
	case r == 1:
		status = domain.EnvironmentProvisioning
	}
	cfg := domain.DefaultEnvironmentConfig()
	cfg.RateLimit = pick(g.rng, []int{100, 500, 1000, 5000})
	cfg.RetentionDays = pick(g.rng, []int{1, 7, 14, 30})
	cfg.PublicAccess = g.rng.Intn(4) == 0

	return &domain.Environment{
		ID:          uuid.New().String(),
		Name:        pick(g.rng, envNames),
		Description: "Synthetic sandbox environment",
		Status:      status,
		OwnerID:     pick(g.rng, owners),
		Region:      pick(g.rng, regions),
		Config:      cfg,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// APIKey returns a synthetic key for envID with a random permission set.
func (g *Generator) APIKey(envID string) *domain.APIKey {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	created := now.Add(-time.Duration(g.between(1, 60*24)) * time.Hour)
	lastUsed := now.Add(-time.Duration(g.between(1, 600)) * time.Minute)

	var perms []string
	if g.rng.Intn(5) == 0 {
		perms = []string{domain.PermissionAdmin}
	} else {
		perms = []string{domain.PermissionReadData}
		if g.rng.Intn(2) == 0 {
			perms = append(perms, domain.PermissionWriteData)
		}
		if g.rng.Intn(3) == 0 {
			perms = append(perms, domain.PermissionManageWebhooks)
		}
	}

	status := domain.APIKeyActive
	if g.rng.Intn(8) == 0 {
		status = domain.APIKeyRevoked
	}

	return &domain.APIKey{
		ID:            uuid.New().String(),
		EnvironmentID: envID,
		Name:          pick(g.rng, keyNames),
		Key:           g.obfuscatedKey(),
		Status:        status,
		Permissions:   perms,
		CreatedAt:     created,
		LastUsedAt:    &lastUsed,
	}
}

// Webhook returns a synthetic webhook for envID subscribed to a few known events.
func (g *Generator) Webhook(envID string) *domain.Webhook {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	created := now.Add(-time.Duration(g.between(1, 30*24)) * time.Hour)
	triggered := now.Add(-time.Duration(g.between(1, 300)) * time.Minute)

	n := g.between(1, 3)
	idx := g.rng.Perm(len(domain.KnownWebhookEvents))[:n]
	events := make([]string, n)
	for i, j := range idx {
		events[i] = domain.KnownWebhookEvents[j]
	}

	status := domain.WebhookActive
	switch r := g.rng.Intn(10); {
	case r == 0:
		status = domain.WebhookFailed
	case r == 1:
		status = domain.WebhookPaused
	}

	return &domain.Webhook{
		ID:              uuid.New().String(),
		EnvironmentID:   envID,
		Name:            strings.ReplaceAll(events[0], ".", " ") + " handler",
		URL:             fmt.Sprintf("https://%s/webhooks/%s", pick(g.rng, hookHost), strings.ReplaceAll(events[0], ".", "-")),
		Secret:          "whsec_" + g.token(24),
		Events:          events,
		Status:          status,
		RetryPolicy:     domain.RetryPolicy{Enabled: g.rng.Intn(4) != 0, MaxRetries: g.between(1, 5)},
		LastTriggeredAt: &triggered,
		CreatedAt:       created,
	}
}

// AlertRule returns a synthetic rule for envID.
func (g *Generator) AlertRule(envID string) *domain.AlertRule {
	g.mu.Lock()
	defer g.mu.Unlock()

	metric := pick(g.rng, []domain.AlertMetric{
		domain.MetricAPIErrors, domain.MetricAPILatency,
		domain.MetricWebhookFailures, domain.MetricRateLimitExceeded,
	})
	threshold := map[domain.AlertMetric]float64{
		domain.MetricAPIErrors:         10,
		domain.MetricAPILatency:        800,
		domain.MetricWebhookFailures:   3,
		domain.MetricRateLimitExceeded: 5,
	}[metric]

	return &domain.AlertRule{
		ID:              uuid.New().String(),
		EnvironmentID:   envID,
		Name:            "High " + strings.ReplaceAll(string(metric), "_", " "),
		Metric:          metric,
		Operator:        domain.OperatorGreaterThan,
		Threshold:       threshold,
		DurationMinutes: pick(g.rng, []int{1, 5, 10, 15}),
		Status:          domain.AlertActive,
		Channels:        []string{pick(g.rng, domain.KnownAlertChannels)},
		Recipients:      []string{"oncall@example.com"},
		CreatedAt:       g.now().UTC().Add(-time.Duration(g.between(1, 30*24)) * time.Hour),
	}
}

// ============================================
// Logs
// ============================================

var (
	apiPaths   = []string{"/users", "/users/usr_123", "/orders", "/orders/ord_456", "/products"}
	apiMethods = []string{"GET", "GET", "GET", "POST", "PUT", "DELETE"}
)

// Logs returns n entries for envID, newest first, spread over the last hour.
func (g *Generator) Logs(envID string, n int) []*domain.LogEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	entries := make([]*domain.LogEntry, n)
	for i := range n {
		ts := now.Add(-time.Duration(g.between(0, 3600)) * time.Second)
		entries[i] = g.logEntry(envID, ts)
	}
	slices.SortStableFunc(entries, func(a, b *domain.LogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return entries
}

func (g *Generator) logEntry(envID string, ts time.Time) *domain.LogEntry {
	e := &domain.LogEntry{
		ID:            "log_" + strings.ToLower(ulid.MustNew(ulid.Timestamp(ts), g.entropy).String()),
		EnvironmentID: envID,
		Timestamp:     ts,
		Level:         domain.LogInfo,
	}

	switch r := g.rng.Intn(10); {
	case r < 6:
		e.Source = domain.SourceAPI
		method, path := pick(g.rng, apiMethods), pick(g.rng, apiPaths)
		status := pick(g.rng, []int{200, 200, 200, 201, 204, 400, 401, 404, 429, 500})
		latency := g.between(20, 1200)
		e.RequestID = "req_" + strings.ToLower(g.ulid().String())
		e.StatusCode = &status
		e.LatencyMS = &latency
		e.Message = fmt.Sprintf("%s %s %d", method, path, status)
		e.Details = map[string]any{"method": method, "path": path}
		switch {
		case status >= 500:
			e.Level = domain.LogError
		case status >= 400:
			e.Level = domain.LogWarn
		}
	case r < 8:
		e.Source = domain.SourceWebhook
		event := pick(g.rng, domain.KnownWebhookEvents)
		if g.rng.Intn(5) == 0 {
			e.Level = domain.LogError
			e.Message = "Webhook delivery failed: " + event
			e.Details = map[string]any{"event": event, "attempt": g.between(1, 3)}
		} else {
			e.Message = "Webhook delivered: " + event
			e.Details = map[string]any{"event": event}
		}
	case r < 9:
		e.Source = domain.SourceAuth
		if g.rng.Intn(3) == 0 {
			e.Level = domain.LogWarn
			e.Message = "Rejected request with invalid API key"
		} else {
			e.Message = "API key authenticated"
		}
	default:
		e.Source = domain.SourceSystem
		e.Level = pick(g.rng, []domain.LogLevel{domain.LogInfo, domain.LogDebug})
		e.Message = pick(g.rng, []string{
			"Environment health check passed",
			"Rate limiter window rotated",
			"Cache warmed",
		})
	}
	return e
}

// ============================================
// Metrics
// ============================================

type seriesShape struct {
	lo, hi int
}

var seriesShapes = map[string]seriesShape{
	domain.SeriesAPIRequests:               {50, 500},
	string(domain.MetricAPIErrors):         {0, 15},
	string(domain.MetricAPILatency):        {80, 900},
	string(domain.MetricWebhookFailures):   {0, 5},
	string(domain.MetricRateLimitExceeded): {0, 10},
}

// Metrics returns one point per minute over the last window minutes for every series.
func (g *Generator) Metrics(envID string, window int) *domain.MetricsSnapshot {
	window = min(max(window, 1), domain.MaxMetricsWindow)
	g.mu.Lock()
	defer g.mu.Unlock()

	to := g.now().UTC().Truncate(time.Minute)
	from := to.Add(-time.Duration(window-1) * time.Minute)
	snap := &domain.MetricsSnapshot{
		EnvironmentID: envID,
		From:          from,
		To:            to,
		Series:        make(map[string][]domain.MetricPoint, len(seriesShapes)),
	}
	for _, name := range sortedKeys(seriesShapes) {
		shape := seriesShapes[name]
		points := make([]domain.MetricPoint, window)
		for i := range window {
			points[i] = domain.MetricPoint{
				Timestamp: from.Add(time.Duration(i) * time.Minute),
				Value:     float64(g.between(shape.lo, shape.hi)),
			}
		}
		snap.Series[name] = points
	}
	return snap
}

// ============================================
// Mock objects
// ============================================

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Margaret", "Ken", "Barbara"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov"}
	words      = []string{"alpha", "bravo", "delta", "echo", "nova", "orbit", "pixel", "quartz"}
)

// Object builds a mock object from a field -> type schema. Unknown types produce strings.
func (g *Generator) Object(schema map[string]string) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.object(schema)
}

// Objects builds n mock objects from the same schema.
func (g *Generator) Objects(schema map[string]string, n int) []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = g.object(schema)
	}
	return out
}

func (g *Generator) object(schema map[string]string) map[string]any {
	obj := make(map[string]any, len(schema))
	for _, field := range sortedKeys(schema) {
		obj[field] = g.value(field, schema[field])
	}
	if _, ok := obj["id"]; !ok {
		obj["id"] = g.token(12)
	}
	return obj
}

func (g *Generator) value(field, typ string) any {
	switch strings.ToLower(typ) {
	case "id", "uuid":
		return g.token(12)
	case "number", "float":
		return float64(g.between(100, 100000)) / 100
	case "integer", "int":
		return g.between(1, 1000)
	case "boolean", "bool":
		return g.rng.Intn(2) == 0
	case "email":
		return strings.ToLower(pick(g.rng, firstNames)) + "@example.com"
	case "datetime", "date", "timestamp":
		return g.now().UTC().Add(-time.Duration(g.between(0, 720)) * time.Hour).Format(time.RFC3339)
	case "array":
		return []string{pick(g.rng, words), pick(g.rng, words)}
	case "object":
		return map[string]any{"key": pick(g.rng, words)}
	}
	if strings.Contains(strings.ToLower(field), "name") {
		return pick(g.rng, firstNames) + " " + pick(g.rng, lastNames)
	}
	return pick(g.rng, words) + "-" + g.token(4)
}

// ============================================
// helpers (lock held)
// ============================================

func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) ulid() ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (g *Generator) token(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[g.rng.Intn(len(tokenAlphabet))]
	}
	return string(b)
}

func (g *Generator) obfuscatedKey() string {
	return "sk_test_" + strings.Repeat("•", 20) + g.token(4)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

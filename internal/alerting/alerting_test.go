package alerting

import (
	"testing"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/stretchr/testify/assert"
)

func snapshot(metric domain.AlertMetric, values ...float64) *domain.MetricsSnapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.MetricPoint, len(values))
	for i, v := range values {
		points[i] = domain.MetricPoint{Timestamp: start.Add(time.Duration(i) * time.Minute), Value: v}
	}
	return &domain.MetricsSnapshot{Series: map[string][]domain.MetricPoint{string(metric): points}}
}

func rule(op domain.AlertOperator, threshold float64, minutes int) *domain.AlertRule {
	return &domain.AlertRule{
		Metric:          domain.MetricAPIErrors,
		Operator:        op,
		Threshold:       threshold,
		DurationMinutes: minutes,
		Status:          domain.AlertActive,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		rule    *domain.AlertRule
		values  []float64
		firing  bool
		skipped bool
		value   float64
	}{
		{"sustained breach", rule(domain.OperatorGreaterThan, 10, 3), []float64{1, 12, 15, 11}, true, false, 11},
		{"breach not sustained", rule(domain.OperatorGreaterThan, 10, 3), []float64{20, 20, 5, 20}, false, false, 20},
		{"single point window", rule(domain.OperatorGreaterThan, 10, 1), []float64{1, 1, 11}, true, false, 11},
		{"zero duration uses one point", rule(domain.OperatorGreaterThan, 10, 0), []float64{11}, true, false, 11},
		{"window longer than series", rule(domain.OperatorLessThan, 5, 30), []float64{1, 2, 3}, true, false, 3},
		{"less than not met", rule(domain.OperatorLessThan, 5, 2), []float64{1, 6}, false, false, 6},
		{"equal", rule(domain.OperatorEqual, 0, 2), []float64{3, 0, 0}, true, false, 0},
		{"unknown operator", rule("ne", 0, 1), []float64{1}, false, false, 1},
		{"no data", rule(domain.OperatorGreaterThan, 0, 1), nil, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rule, snapshot(domain.MetricAPIErrors, tt.values...))
			assert.Equal(t, tt.firing, got.Firing)
			assert.Equal(t, tt.skipped, got.Skipped)
			assert.Equal(t, tt.value, got.Value)
			assert.Same(t, tt.rule, got.Rule)
		})
	}
}

func TestPausedRuleIsSkipped(t *testing.T) {
	r := rule(domain.OperatorGreaterThan, 0, 1)
	r.Status = domain.AlertPaused
	got := Evaluate(r, snapshot(domain.MetricAPIErrors, 100))
	assert.True(t, got.Skipped)
	assert.False(t, got.Firing)
}

func TestOtherMetricIgnored(t *testing.T) {
	r := rule(domain.OperatorGreaterThan, 0, 1)
	r.Metric = domain.MetricAPILatency
	got := Evaluate(r, snapshot(domain.MetricAPIErrors, 100))
	assert.True(t, got.Skipped)
}

func TestEvaluateAll(t *testing.T) {
	snap := snapshot(domain.MetricAPIErrors, 5, 5)
	got := EvaluateAll([]*domain.AlertRule{
		rule(domain.OperatorGreaterThan, 1, 2),
		rule(domain.OperatorGreaterThan, 10, 2),
	}, snap)
	assert.Len(t, got, 2)
	assert.True(t, got[0].Firing)
	assert.False(t, got[1].Firing)
}

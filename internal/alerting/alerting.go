// Package alerting evaluates alert rules against metric series.
package alerting

import (
	"github.com/bcnelson/sandbox-console/internal/domain"
)

// Compare applies op to value and threshold.
func Compare(op domain.AlertOperator, value, threshold float64) bool {
	switch op {
	case domain.OperatorGreaterThan:
		return value > threshold
	case domain.OperatorLessThan:
		return value < threshold
	case domain.OperatorEqual:
		return value == threshold
	}
	return false
}

// Evaluate checks rule against the snapshot's series for its metric. A rule
// fires when the condition holds for every point in the last DurationMinutes
// points (at least one). Paused rules and rules without data are skipped.
func Evaluate(rule *domain.AlertRule, snap *domain.MetricsSnapshot) domain.AlertEvaluation {
	eval := domain.AlertEvaluation{Rule: rule}
	if rule.Status != domain.AlertActive {
		eval.Skipped = true
		return eval
	}

	var series []domain.MetricPoint
	if snap != nil {
		series = snap.Series[string(rule.Metric)]
	}
	if len(series) == 0 {
		eval.Skipped = true
		return eval
	}

	window := max(rule.DurationMinutes, 1)
	if window > len(series) {
		window = len(series)
	}
	tail := series[len(series)-window:]
	eval.Value = tail[len(tail)-1].Value

	eval.Firing = true
	for _, p := range tail {
		if !Compare(rule.Operator, p.Value, rule.Threshold) {
			eval.Firing = false
			break
		}
	}
	return eval
}

// EvaluateAll evaluates every rule against the same snapshot, in order.
func EvaluateAll(rules []*domain.AlertRule, snap *domain.MetricsSnapshot) []domain.AlertEvaluation {
	out := make([]domain.AlertEvaluation, len(rules))
	for i, r := range rules {
		out[i] = Evaluate(r, snap)
	}
	return out
}

package domain

import "time"

// MetricPoint is one sample of a synthetic series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricsSnapshot holds per-minute synthetic series for one environment,
// oldest point first.
type MetricsSnapshot struct {
	EnvironmentID string                   `json:"environmentId"`
	From          time.Time                `json:"from"`
	To            time.Time                `json:"to"`
	Series        map[string][]MetricPoint `json:"series"`
}

// MaxMetricsWindow is the widest snapshot, in minutes, that can be requested.
const MaxMetricsWindow = 1440

// Series names present in every snapshot.
const (
	SeriesAPIRequests = "api_requests"
)

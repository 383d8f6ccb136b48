package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	simulatedCalls   *prometheus.CounterVec
	simulatedLatency *prometheus.HistogramVec
	logRefreshes     prometheus.Counter
	storeChanges     *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sandbox",
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sandbox",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		simulatedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sandbox",
			Name:      "simulated_calls_total",
			Help:      "Simulated API calls, by method and synthesised status.",
		}, []string{"method", "status"}),
		simulatedLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sandbox",
			Name:      "simulated_latency_seconds",
			Help:      "Sampled latency attached to simulated calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 2},
		}, []string{"method"}),
		logRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sandbox",
			Name:      "log_refreshes_total",
			Help:      "Synthetic log batches regenerated.",
		}),
		storeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sandbox",
			Name:      "store_changes_total",
			Help:      "Store mutations, by entity kind and operation.",
		}, []string{"kind", "op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.simulatedCalls,
		m.simulatedLatency,
		m.logRefreshes,
		m.storeChanges,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one handled request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSimulation records one simulated call outcome.
func (m *Metrics) ObserveSimulation(method string, status int, latency time.Duration) {
	m.simulatedCalls.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.simulatedLatency.WithLabelValues(method).Observe(latency.Seconds())
}

// ObserveRefresh records one regenerated log batch.
func (m *Metrics) ObserveRefresh() {
	m.logRefreshes.Inc()
}

// ObserveChange records one store mutation.
func (m *Metrics) ObserveChange(kind, op string) {
	m.storeChanges.WithLabelValues(kind, op).Inc()
}

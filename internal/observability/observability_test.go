package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/sandbox-console/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.ObserveSimulation("GET", 200, 150*time.Millisecond)
	m.ObserveSimulation("GET", 200, 300*time.Millisecond)
	m.ObserveSimulation("POST", 401, time.Second)
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	m.ObserveRefresh()
	m.ObserveChange("environment", "delete")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.simulatedCalls.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.simulatedCalls.WithLabelValues("POST", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logRefreshes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeChanges.WithLabelValues("environment", "delete")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveSimulation("GET", 404, 100*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `sandbox_simulated_calls_total{method="GET",status="404"} 1`)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)

	var buf bytes.Buffer
	initLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("env", "staging").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"env":"staging"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	buf.Reset()
	initLogger(config.LoggingConfig{Level: "bogus", Format: "text"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Info().Msg("console")
	assert.Contains(t, buf.String(), "console")
}

package api

import (
	"net/http"

	"github.com/bcnelson/sandbox-console/internal/api/handler"
	"github.com/bcnelson/sandbox-console/internal/api/middleware"
	"github.com/bcnelson/sandbox-console/internal/datagen"
	"github.com/bcnelson/sandbox-console/internal/observability"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new HTTP router with all routes configured.
// metrics may be nil, in which case /metrics is not served.
func NewRouter(
	sandbox *service.SandboxService,
	tail *service.TailService,
	sim *simulator.Simulator,
	gen *datagen.Generator,
	metrics *observability.Metrics,
) http.Handler {
	r := chi.NewRouter()

	var obs middleware.HTTPObserver
	if metrics != nil {
		obs = metrics
	}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(obs))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		envHandler := handler.NewEnvironmentHandler(sandbox)
		r.Get("/environments", envHandler.List)
		r.Post("/environments", envHandler.Create)
		r.Get("/selection", envHandler.Selection)

		r.Route("/environments/{env_id}", func(r chi.Router) {
			r.Get("/", envHandler.Get)
			r.Put("/", envHandler.Update)
			r.Delete("/", envHandler.Delete)
			r.Post("/start", envHandler.Start)
			r.Post("/stop", envHandler.Stop)
			r.Post("/select", envHandler.Select)

			// API Keys
			keyHandler := handler.NewAPIKeyHandler(sandbox)
			r.Get("/keys", keyHandler.List)
			r.Post("/keys", keyHandler.Create)
			r.Get("/keys/{id}", keyHandler.Get)
			r.Put("/keys/{id}", keyHandler.Update)
			r.Delete("/keys/{id}", keyHandler.Delete)
			r.Post("/keys/{id}/revoke", keyHandler.Revoke)

			// Webhooks
			hookHandler := handler.NewWebhookHandler(sandbox)
			r.Get("/webhooks", hookHandler.List)
			r.Post("/webhooks", hookHandler.Create)
			r.Get("/webhooks/{id}", hookHandler.Get)
			r.Put("/webhooks/{id}", hookHandler.Update)
			r.Delete("/webhooks/{id}", hookHandler.Delete)
			r.Post("/webhooks/{id}/test", hookHandler.Test)

			// Logs
			logHandler := handler.NewLogHandler(sandbox, tail)
			r.Get("/logs", logHandler.List)
			r.Post("/logs", logHandler.Create)
			r.Post("/logs/refresh", logHandler.Refresh)

			// Alert rules and metrics
			alertHandler := handler.NewAlertHandler(sandbox)
			r.Get("/alerts", alertHandler.List)
			r.Post("/alerts", alertHandler.Create)
			r.Get("/alerts/evaluate", alertHandler.Evaluate)
			r.Get("/alerts/{id}", alertHandler.Get)
			r.Put("/alerts/{id}", alertHandler.Update)
			r.Delete("/alerts/{id}", alertHandler.Delete)
			r.Get("/metrics", alertHandler.Metrics)
		})

		// Simulator
		simHandler := handler.NewSimulatorHandler(sandbox, sim, gen)
		r.Get("/catalog", simHandler.Catalog)
		r.Get("/catalog/snippet", simHandler.Snippet)
		r.Post("/simulate", simHandler.Simulate)
		r.Post("/generate", simHandler.Generate)
	})

	return r
}

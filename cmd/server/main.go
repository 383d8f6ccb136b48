package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bcnelson/sandbox-console/internal/api"
	"github.com/bcnelson/sandbox-console/internal/completion"
	"github.com/bcnelson/sandbox-console/internal/config"
	"github.com/bcnelson/sandbox-console/internal/datagen"
	"github.com/bcnelson/sandbox-console/internal/mockdata"
	"github.com/bcnelson/sandbox-console/internal/observability"
	"github.com/bcnelson/sandbox-console/internal/service"
	"github.com/bcnelson/sandbox-console/internal/simulator"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/bcnelson/sandbox-console/internal/storage/memory"
	"github.com/bcnelson/sandbox-console/internal/storage/sql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	observability.InitLogger(cfg.Logging)
	metrics := observability.NewMetrics()

	// Initialize storage
	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	seed := cfg.Seed.Random
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := mockdata.New(seed)

	sandbox := service.NewSandboxService(store, gen, metrics)
	if _, err := sandbox.Seed(context.Background(), cfg.Seed.Environments); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sandbox")
	}

	// Initialize tail service
	tail := service.NewTailService(sandbox, cfg.Tail.Debounce, cfg.Tail.Auto)
	stopWatch := tail.Watch()
	defer stopWatch()
	defer tail.Stop()

	sim := simulator.New(store, gen, simulator.Config{
		MinLatency: cfg.Simulator.MinLatency,
		MaxLatency: cfg.Simulator.MaxLatency,
		Delay:      cfg.Simulator.Delay,
		Recorder:   metrics,
	})

	// Initialize completion client (or file shim for testing)
	var client completion.Client
	switch {
	case cfg.UseFileShim():
		log.Info().Str("path", cfg.Completion.FileShim).Msg("Using file shim for completions")
		client = completion.NewFileShim(cfg.Completion.FileShim)
	case cfg.CompletionEnabled():
		client = completion.NewHTTPClient(cfg.Completion.BaseURL, cfg.Completion.APIKey, cfg.Completion.Model, cfg.Completion.Timeout)
	default:
		log.Warn().Msg("No completion backend configured; data generation is disabled")
	}

	router := api.NewRouter(sandbox, tail, sim, datagen.New(client), metrics)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("Starting sandbox console")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func newStore(cfg config.StorageConfig) (storage.Storage, error) {
	if cfg.Driver == "sqlite3" {
		return sql.New(cfg.Driver, cfg.DSN)
	}
	return memory.New(), nil
}

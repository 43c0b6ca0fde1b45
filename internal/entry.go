// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/focusfive/internal/analytics"
	"github.com/starford/focusfive/internal/api"
	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/metastore"
	"github.com/starford/focusfive/internal/models"
	"github.com/starford/focusfive/internal/rollover"
	"github.com/starford/focusfive/internal/sse"
	"github.com/starford/focusfive/internal/storage"
	"github.com/starford/focusfive/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.Bool("rollover", cfg.Rollover.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directory exists.
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Initialize storage and clear temp files left by an interrupted write.
	store, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if n, err := store.SweepTemp(); err != nil {
		logger.Warn("temp sweep failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("removed stale temp files", slog.Int("count", n))
	}

	meta := metastore.New(store, logger)
	days := dayservice.NewService(store, meta, logger)
	engine := analytics.NewEngine(days, meta, cfg.Analytics.Engine(), logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	publish := func(kind string, date time.Time) {
		broker.PublishDayEvent(kind, models.DateKey(date))
	}

	// Reconcile files edited while the server was down.
	if n, err := watcher.Sync(ctx, days, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync complete", slog.Int("reconciled", n))
	}

	apiRouter := api.NewRouter(days, engine, publish, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := watcher.Watch(gCtx, days, store, store.Root(), logger, publish); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Create each new day on schedule.
	if cfg.Rollover.Enabled {
		job := rollover.New(days, cfg.Rollover.Job(), logger, rollover.WithCreated(func(date time.Time) {
			publish(watcher.KindCreated, date)
		}))
		g.Go(func() error {
			return job.Start(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancelRun()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

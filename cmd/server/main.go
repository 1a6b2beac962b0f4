// Package main is the entrypoint for the predictd API server.
package main

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

	"github.com/marketscope/predictd/internal/api"
	"github.com/marketscope/predictd/internal/api/handler"
	mw "github.com/marketscope/predictd/internal/api/middleware"
	"github.com/marketscope/predictd/internal/api/response"
	"github.com/marketscope/predictd/internal/cache"
	"github.com/marketscope/predictd/internal/config"
	"github.com/marketscope/predictd/internal/feed"
	"github.com/marketscope/predictd/internal/modelcache"
	"github.com/marketscope/predictd/internal/pipeline"
	"github.com/marketscope/predictd/internal/plugin"
	"github.com/marketscope/predictd/internal/predict"
	"github.com/marketscope/predictd/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"feed_provider", cfg.Feed.Provider,
		"predict_provider", cfg.Predict.Provider,
		"env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Build plugins and register them
	feeder, err := feed.NewFeeder(cfg.Feed)
	if err != nil {
		return fmt.Errorf("create feeder: %w", err)
	}
	predictor, err := predict.NewPredictor(cfg.Predict)
	if err != nil {
		return fmt.Errorf("create predictor: %w", err)
	}

	registry := plugin.NewRegistry()
	if err := registry.Register(plugin.CapabilityFeeder, feeder.Name(), feeder); err != nil {
		return fmt.Errorf("register feeder: %w", err)
	}
	if err := registry.Register(plugin.CapabilityPredictor, predictor.Name(), predictor); err != nil {
		return fmt.Errorf("register predictor: %w", err)
	}
	slog.Info("plugins registered", "feeder", feeder.Name(), "predictor", predictor.Name())

	// 6. Create stores, model cache, and the pipeline
	pgStore := store.NewPostgresStore(pool)
	models := modelcache.New(predictor, cfg.ModelCache.TTL)

	pipeSvc, err := pipeline.NewService(pgStore, redisCache, registry, models, pipeline.Config{
		Workers:          cfg.Pipeline.Workers,
		QueueSize:        cfg.Pipeline.QueueSize,
		InferenceTimeout: cfg.Predict.InferenceTimeout,
		ShortTermModel:   cfg.Predict.ShortTermModel,
		LongTermModel:    cfg.Predict.LongTermModel,
		FeederName:       feeder.Name(),
		PredictorName:    predictor.Name(),
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer pipeSvc.Close()

	if err := registry.Register(plugin.CapabilityPipeline, "default", pipeSvc); err != nil {
		return fmt.Errorf("register pipeline: %w", err)
	}

	// 7. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler: healthHandler(pgStore, redisCache),
		SubmitHandler: handler.NewSubmitHandler(pipeSvc),
		StatusHandler: handler.NewStatusHandler(pipeSvc),
	}
	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

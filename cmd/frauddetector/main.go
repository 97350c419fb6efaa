// frauddetector - real-time fraud scoring service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/abtest"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/alerts"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/api"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/bus"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/cache"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/ensemble"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/explain"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/features"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/models"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/recorder"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/repository"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := domain.DefaultConfig()
	domain.LoadFromEnv(cfg)

	// Initialize structured logger
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting frauddetector",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"strategy", cfg.Ensemble.Strategy,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"models", len(cfg.Models),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize model registry and ensemble weights
	registry := models.NewRegistry(cfg.Models, logger)
	seed := make(map[string]float64, len(cfg.Models))
	for _, m := range cfg.Models {
		seed[m.ID] = m.Weight
	}
	weights := ensemble.NewWeightTable(seed)
	slog.Info("model registry initialized", "models", len(registry.Models()))

	// Initialize Explainer
	expl, err := explain.NewExplainer(cfg.Explain, logger)
	if err != nil {
		slog.Error("failed to initialize explainer", "error", err)
		os.Exit(1)
	}

	// Wire the scoring pipeline
	predictor := ensemble.NewPredictor(
		cfg.Ensemble,
		cfg.Explain,
		features.NewBuilder(repo, logger),
		ensemble.NewParallelScorer(registry, cfg.Ensemble.MaxConcurrentScores, logger),
		weights,
		cacheImpl,
		repo,
		busImpl,
		expl,
		logger,
	)

	// Metrics recorder consumes prediction events off the bus
	registerer := prometheus.NewRegistry()
	registerer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := recorder.New(registerer, logger)
	if err != nil {
		slog.Error("failed to initialize recorder", "error", err)
		os.Exit(1)
	}
	if err := rec.Start(ctx, busImpl); err != nil {
		slog.Error("failed to start recorder", "error", err)
		os.Exit(1)
	}
	defer rec.Stop()

	// Alert worker republishes high-risk predictions on the alert topic
	alertWorker := alerts.NewWorker(busImpl, alerts.DefaultThreshold, logger)
	if err := alertWorker.Start(ctx); err != nil {
		slog.Error("failed to start alert worker", "error", err)
		os.Exit(1)
	}
	defer alertWorker.Stop()

	// Initialize A/B experiment manager
	abtests := abtest.NewManager(logger)

	// Initialize Server
	srv := api.NewServer(cfg.Server, predictor, registry, weights, abtests,
		repo, cacheImpl, busImpl, registerer, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("frauddetector is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("frauddetector shutdown complete")
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  frauddetector - real-time fraud scoring")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Strategy: %s\n", cfg.Ensemble.Strategy)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /predict                      - Score a transaction")
	fmt.Println("    POST /predict/batch                - Score a batch of transactions")
	fmt.Println("    GET  /predictions/{id}             - Get prediction by ID")
	fmt.Println("    GET  /transactions/{id}            - Get transaction by ID")
	fmt.Println("    GET  /transactions/{id}/prediction - Latest prediction for a transaction")
	fmt.Println("    GET  /models                       - List models and weights")
	fmt.Println("    PUT  /models/{id}                  - Enable or disable a model")
	fmt.Println("    PUT  /models/weights               - Update ensemble weights")
	fmt.Println("    POST /abtests                      - Create an A/B strategy test")
	fmt.Println("    GET  /abtests/{name}/report        - A/B test report")
	fmt.Println("    GET  /health                       - Health check")
	fmt.Println("    GET  /metrics                      - Prometheus metrics")
	fmt.Println()
}

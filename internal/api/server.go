package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/abtest"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/ensemble"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(
	cfg domain.ServerConfig,
	predictor *ensemble.Predictor,
	registry domain.ModelRegistry,
	weights *ensemble.WeightTable,
	abtests *abtest.Manager,
	repo domain.Repository,
	cache domain.PredictionCache,
	bus domain.EventBus,
	metrics prometheus.Gatherer,
	version string,
) *Server {
	handler := NewHandler(predictor, registry, weights, abtests, repo, cache, bus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health and metrics endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	if metrics != nil {
		router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}

	// Scoring
	router.Post("/predict", handler.Predict)
	router.Post("/predict/batch", handler.PredictBatch)

	// Retrieval
	router.Get("/predictions/{id}", handler.GetPrediction)
	router.Get("/transactions/{id}", handler.GetTransaction)
	router.Get("/transactions/{id}/prediction", handler.GetTransactionPrediction)

	// Model management
	router.Get("/models", handler.ListModels)
	router.Put("/models/weights", handler.UpdateWeights)
	router.Put("/models/{id}", handler.SetModelEnabled)

	// A/B experiments
	router.Post("/abtests", handler.CreateABTest)
	router.Get("/abtests", handler.ListABTests)
	router.Get("/abtests/{name}/report", handler.ABTestReport)
	router.Post("/abtests/{name}/stop", handler.StopABTest)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}

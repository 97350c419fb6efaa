// Package recorder consumes prediction events off the bus and exposes
// Prometheus metrics. It runs out of band: the scoring path never waits on
// metrics recording.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// Recorder subscribes to prediction events and maintains service metrics.
type Recorder struct {
	predictions   *prometheus.CounterVec
	fraudDetected *prometheus.CounterVec
	probability   prometheus.Histogram
	confidence    prometheus.Histogram
	processingMs  prometheus.Histogram
	cacheHits     prometheus.Counter
	modelScores   *prometheus.HistogramVec

	sub    domain.Subscription
	logger *slog.Logger
}

// New creates a recorder and registers its metrics with the given registry.
func New(reg prometheus.Registerer, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_predictions_total",
			Help: "Total scored predictions by decision, risk level and strategy.",
		}, []string{"decision", "risk_level", "strategy"}),
		fraudDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_detected_total",
			Help: "Predictions above the fraud threshold, by risk level.",
		}, []string{"risk_level"}),
		probability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_probability",
			Help:    "Distribution of ensemble fraud probabilities.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_confidence",
			Help:    "Distribution of ensemble confidences.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		processingMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_processing_milliseconds",
			Help:    "End-to-end scoring latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraud_cache_hits_total",
			Help: "Predictions served from the prediction cache.",
		}),
		modelScores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraud_model_prediction",
			Help:    "Per-model prediction distribution.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"model_id"}),
		logger: logger,
	}

	collectors := []prometheus.Collector{
		r.predictions, r.fraudDetected, r.probability, r.confidence,
		r.processingMs, r.cacheHits, r.modelScores,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return r, nil
}

// Start subscribes to the prediction topic.
func (r *Recorder) Start(ctx context.Context, bus domain.EventBus) error {
	sub, err := bus.Subscribe(ctx, domain.TopicPredictionRecorded, r.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicPredictionRecorded, err)
	}
	r.sub = sub
	r.logger.Info("recorder started", "topic", domain.TopicPredictionRecorded)
	return nil
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

func (r *Recorder) handle(ctx context.Context, msg *domain.Message) error {
	var event domain.PredictionRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		r.logger.Warn("malformed prediction event", "error", err)
		return nil
	}
	r.Observe(&event)
	return nil
}

// Observe folds one prediction event into the metrics.
func (r *Recorder) Observe(event *domain.PredictionRecorded) {
	r.predictions.WithLabelValues(
		string(event.Decision),
		string(event.RiskLevel),
		string(event.Strategy),
	).Inc()

	r.probability.Observe(event.FraudProbability)
	r.confidence.Observe(event.Confidence)
	r.processingMs.Observe(event.ProcessingMs)

	if event.FraudProbability >= 0.5 {
		r.fraudDetected.WithLabelValues(string(event.RiskLevel)).Inc()
	}
	if event.Cached {
		r.cacheHits.Inc()
	}
	for modelID, p := range event.ModelPredictions {
		r.modelScores.WithLabelValues(modelID).Observe(p)
	}
}

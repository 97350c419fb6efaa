// Package ensemble implements the scoring core: parallel model fan-out,
// result combination, the decision policy and the caching orchestrator.
package ensemble

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// VectorBuilder turns a transaction into a model-ready feature vector.
type VectorBuilder interface {
	Build(ctx context.Context, tx *domain.Transaction) (*domain.FeatureVector, error)
}

// Explainer produces the best-effort decision explanation.
type Explainer interface {
	Explain(ctx context.Context, fv *domain.FeatureVector, results map[string]domain.ModelResult, weights map[string]float64) *domain.Explanation
}

// Predictor orchestrates a scoring request end to end: cache lookup, model
// fan-out, combination, decision, explanation, then the write-behind cache
// fill, persistence and event publish.
type Predictor struct {
	cfg     domain.EnsembleConfig
	explain domain.ExplainConfig
	builder VectorBuilder
	scorer  *ParallelScorer
	weights *WeightTable
	cache   domain.PredictionCache
	repo    domain.Repository
	bus     domain.EventBus
	expl    Explainer
	logger  *slog.Logger
}

// NewPredictor wires the scoring pipeline. Cache, repository, bus and
// explainer are optional; a nil dependency disables that stage.
func NewPredictor(
	cfg domain.EnsembleConfig,
	explainCfg domain.ExplainConfig,
	builder VectorBuilder,
	scorer *ParallelScorer,
	weights *WeightTable,
	cache domain.PredictionCache,
	repo domain.Repository,
	bus domain.EventBus,
	expl Explainer,
	logger *slog.Logger,
) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{
		cfg:     cfg,
		explain: explainCfg,
		builder: builder,
		scorer:  scorer,
		weights: weights,
		cache:   cache,
		repo:    repo,
		bus:     bus,
		expl:    expl,
		logger:  logger,
	}
}

// Predict scores one transaction with the configured strategy.
func (p *Predictor) Predict(ctx context.Context, tx *domain.Transaction) (*domain.EnsembleResult, error) {
	return p.PredictWithStrategy(ctx, tx, p.cfg.Strategy)
}

// PredictWithStrategy scores one transaction with an explicit combination
// strategy, used by A/B experiments to route users to a variant.
func (p *Predictor) PredictWithStrategy(ctx context.Context, tx *domain.Transaction, strategy domain.Strategy) (*domain.EnsembleResult, error) {
	tracer := otel.Tracer("ensemble")
	ctx, span := tracer.Start(ctx, "predictor.predict")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	start := time.Now()

	fv, err := p.builder.Build(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	fingerprint := fv.Fingerprint()
	if cached := p.cacheGet(ctx, fingerprint); cached != nil {
		p.logger.Debug("cache hit", "transactionId", tx.ID)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		// Cached serves still publish, so metrics see every answered request.
		p.publish(ctx, cached)
		return cached, nil
	}

	results, err := p.scorer.ScoreAll(ctx, fv)
	if err != nil {
		return nil, err
	}

	weights := p.weights.Snapshot()
	prob, confidence, err := Combine(strategy, results, weights, p.cfg.FraudThreshold)
	if err != nil {
		return nil, err
	}

	result := &domain.EnsembleResult{
		ID:               uuid.NewString(),
		TransactionID:    tx.ID,
		FraudProbability: prob,
		Confidence:       confidence,
		RiskLevel:        RiskOf(prob),
		Decision:         Decide(prob, confidence, p.cfg.ConfidenceThreshold),
		ModelResults:     results,
		Strategy:         strategy,
		ComputedAt:       time.Now().UTC(),
	}

	if p.explain.Enabled && p.expl != nil {
		result.Explanation = p.expl.Explain(ctx, fv, results, weights)
	}

	result.ProcessingMs = float64(time.Since(start).Microseconds()) / 1000.0

	p.cachePut(ctx, fingerprint, result)
	p.persist(ctx, tx, result)
	p.publish(ctx, result)

	p.logger.Info("transaction scored",
		"transactionId", tx.ID,
		"probability", result.FraudProbability,
		"confidence", result.Confidence,
		"decision", result.Decision,
		"riskLevel", result.RiskLevel,
		"models", len(results),
		"processingMs", result.ProcessingMs)

	return result, nil
}

// PredictBatch scores transactions sequentially; the parallelism lives
// inside each request's model fan-out. A failed item does not abort the
// batch.
func (p *Predictor) PredictBatch(ctx context.Context, txs []*domain.Transaction) ([]*domain.EnsembleResult, []error) {
	results := make([]*domain.EnsembleResult, len(txs))
	errs := make([]error, len(txs))
	for i, tx := range txs {
		results[i], errs[i] = p.Predict(ctx, tx)
	}
	return results, errs
}

// cacheGet is best-effort: cache failures degrade to a recompute.
func (p *Predictor) cacheGet(ctx context.Context, fingerprint string) *domain.EnsembleResult {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.Get(ctx, fingerprint)
	if err != nil {
		p.logger.Warn("cache read failed", "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	// Serve a copy so callers cannot mutate the cached entry.
	cp := *cached
	cp.Cached = true
	return &cp
}

func (p *Predictor) cachePut(ctx context.Context, fingerprint string, result *domain.EnsembleResult) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(ctx, fingerprint, result); err != nil {
		p.logger.Warn("cache write failed", "error", err)
	}
}

func (p *Predictor) persist(ctx context.Context, tx *domain.Transaction, result *domain.EnsembleResult) {
	if p.repo == nil {
		return
	}
	if err := p.repo.SaveTransaction(ctx, tx); err != nil {
		p.logger.Warn("transaction save failed", "transactionId", tx.ID, "error", err)
	}
	if err := p.repo.SavePrediction(ctx, result); err != nil {
		p.logger.Warn("prediction save failed", "transactionId", tx.ID, "error", err)
	}
}

func (p *Predictor) publish(ctx context.Context, result *domain.EnsembleResult) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(result.Recorded())
	if err != nil {
		p.logger.Warn("event marshal failed", "error", err)
		return
	}
	if err := p.bus.Publish(ctx, domain.TopicPredictionRecorded, payload); err != nil {
		p.logger.Warn("event publish failed", "error", err)
	}
}

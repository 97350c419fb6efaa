package ensemble

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

type passthroughBuilder struct{}

func (passthroughBuilder) Build(ctx context.Context, tx *domain.Transaction) (*domain.FeatureVector, error) {
	return &domain.FeatureVector{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		MerchantID:    tx.MerchantID,
		Amount:        tx.Amount,
		PaymentMethod: tx.PaymentMethod,
	}, nil
}

type mapCache struct {
	entries map[string]*domain.EnsembleResult
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.EnsembleResult)}
}

func (c *mapCache) Get(ctx context.Context, fp string) (*domain.EnsembleResult, error) {
	return c.entries[fp], nil
}

func (c *mapCache) Put(ctx context.Context, fp string, r *domain.EnsembleResult) error {
	c.entries[fp] = r
	return nil
}

func (c *mapCache) Ping(ctx context.Context) error { return nil }
func (c *mapCache) Close() error                   { return nil }

func countingScorer(p float64, calls *atomic.Int64) domain.Scorer {
	return domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
		calls.Add(1)
		return p, nil
	})
}

func testPredictor(reg domain.ModelRegistry, weights *WeightTable, cache domain.PredictionCache) *Predictor {
	cfg := domain.EnsembleConfig{
		Strategy:            domain.StrategyWeightedAverage,
		FraudThreshold:      0.5,
		ConfidenceThreshold: 0.7,
		MaxConcurrentScores: 4,
	}
	scorer := NewParallelScorer(reg, cfg.MaxConcurrentScores, nil)
	return NewPredictor(cfg, domain.ExplainConfig{}, passthroughBuilder{}, scorer, weights, cache, nil, nil, nil, nil)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()

	t.Run("weighted ensemble end to end", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", fixedScorer(0.9), 1.0),
			handle("b", fixedScorer(0.2), 1.0),
			handle("c", fixedScorer(0.1), 1.0),
		}}
		weights := NewWeightTable(map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2})
		p := testPredictor(reg, weights, nil)

		result, err := p.Predict(ctx, &domain.Transaction{ID: "tx-1", Amount: 100})
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if math.Abs(result.FraudProbability-0.53) > 1e-9 {
			t.Errorf("FraudProbability = %v, want 0.53", result.FraudProbability)
		}
		if result.RiskLevel != domain.RiskLow {
			t.Errorf("RiskLevel = %v, want LOW", result.RiskLevel)
		}
		if len(result.ModelResults) != 3 {
			t.Errorf("ModelResults has %d entries, want 3", len(result.ModelResults))
		}
		if result.ID == "" || result.ComputedAt.IsZero() {
			t.Error("result identity fields not populated")
		}
	})

	t.Run("cache hit skips scoring", func(t *testing.T) {
		var calls atomic.Int64
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", countingScorer(0.8, &calls), 1.0),
		}}
		weights := NewWeightTable(map[string]float64{"a": 1})
		p := testPredictor(reg, weights, newMapCache())

		tx := &domain.Transaction{ID: "tx-2", UserID: "u", Amount: 50}
		first, err := p.Predict(ctx, tx)
		if err != nil {
			t.Fatalf("first Predict() error = %v", err)
		}
		second, err := p.Predict(ctx, tx)
		if err != nil {
			t.Fatalf("second Predict() error = %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("scorer called %d times, want 1", calls.Load())
		}
		if !second.Cached {
			t.Error("second result should be marked cached")
		}
		if first.Cached {
			t.Error("first result should not be marked cached")
		}
		if second.FraudProbability != first.FraudProbability || second.ID != first.ID {
			t.Error("cached result differs from original")
		}
	})

	t.Run("different fingerprints do not collide", func(t *testing.T) {
		var calls atomic.Int64
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", countingScorer(0.8, &calls), 1.0),
		}}
		p := testPredictor(reg, NewWeightTable(map[string]float64{"a": 1}), newMapCache())

		if _, err := p.Predict(ctx, &domain.Transaction{ID: "tx-3", Amount: 10}); err != nil {
			t.Fatal(err)
		}
		if _, err := p.Predict(ctx, &domain.Transaction{ID: "tx-3", Amount: 20}); err != nil {
			t.Fatal(err)
		}
		if calls.Load() != 2 {
			t.Errorf("scorer called %d times, want 2", calls.Load())
		}
	})

	t.Run("all models failing surfaces error", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", failingScorer(errors.New("down")), 1.0),
		}}
		p := testPredictor(reg, NewWeightTable(map[string]float64{"a": 1}), nil)

		_, err := p.Predict(ctx, &domain.Transaction{ID: "tx-4"})
		if !errors.Is(err, ErrNoPredictions) {
			t.Fatalf("err = %v, want ErrNoPredictions", err)
		}
	})

	t.Run("batch continues past failures", func(t *testing.T) {
		flaky := domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
			if fv.TransactionID == "bad" {
				return 0, errors.New("down")
			}
			return 0.4, nil
		})
		reg := &stubRegistry{handles: []domain.ModelHandle{handle("a", flaky, 1.0)}}
		p := testPredictor(reg, NewWeightTable(map[string]float64{"a": 1}), nil)

		results, errs := p.PredictBatch(ctx, []*domain.Transaction{
			{ID: "good-1"}, {ID: "bad"}, {ID: "good-2"},
		})
		if errs[0] != nil || errs[2] != nil {
			t.Errorf("unexpected errors: %v, %v", errs[0], errs[2])
		}
		if errs[1] == nil {
			t.Error("expected error for failing item")
		}
		if results[0] == nil || results[2] == nil {
			t.Error("successful items missing results")
		}
	})

	t.Run("processing time recorded", func(t *testing.T) {
		slow := domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
			time.Sleep(5 * time.Millisecond)
			return 0.5, nil
		})
		reg := &stubRegistry{handles: []domain.ModelHandle{handle("a", slow, 1.0)}}
		p := testPredictor(reg, NewWeightTable(map[string]float64{"a": 1}), nil)

		result, err := p.Predict(ctx, &domain.Transaction{ID: "tx-5"})
		if err != nil {
			t.Fatal(err)
		}
		if result.ProcessingMs <= 0 {
			t.Errorf("ProcessingMs = %v, want > 0", result.ProcessingMs)
		}
	})
}

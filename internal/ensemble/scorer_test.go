package ensemble

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// stubRegistry returns a fixed set of model handles.
type stubRegistry struct {
	handles []domain.ModelHandle
}

func (s *stubRegistry) EnabledModels() []domain.ModelHandle      { return s.handles }
func (s *stubRegistry) Models() []domain.ModelInfo               { return nil }
func (s *stubRegistry) SetEnabled(id string, enabled bool) error { return nil }

func fixedScorer(p float64) domain.Scorer {
	return domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
		return p, nil
	})
}

func failingScorer(err error) domain.Scorer {
	return domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
		return 0, err
	})
}

func handle(id string, s domain.Scorer, mult float64) domain.ModelHandle {
	return domain.ModelHandle{
		ID:                   id,
		Weight:               1,
		ConfidenceMultiplier: mult,
		Timeout:              time.Second,
		Scorer:               s,
	}
}

func TestScoreAll(t *testing.T) {
	ctx := context.Background()
	fv := &domain.FeatureVector{TransactionID: "tx-1"}

	t.Run("all models succeed", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", fixedScorer(0.9), 1.0),
			handle("b", fixedScorer(0.2), 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results["a"].Prediction != 0.9 {
			t.Errorf("a.Prediction = %v, want 0.9", results["a"].Prediction)
		}
	})

	t.Run("failed model is isolated", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("ok", fixedScorer(0.7), 1.0),
			handle("broken", failingScorer(errors.New("model offline")), 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
		if _, ok := results["broken"]; ok {
			t.Error("failed model must not appear in results")
		}
	})

	t.Run("panicking model is isolated", func(t *testing.T) {
		panicky := domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
			panic("nil weights matrix")
		})
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("ok", fixedScorer(0.4), 1.0),
			handle("panicky", panicky, 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
	})

	t.Run("slow model times out", func(t *testing.T) {
		slow := domain.ScorerFunc(func(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
			select {
			case <-time.After(5 * time.Second):
				return 0.5, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		})
		h := handle("slow", slow, 1.0)
		h.Timeout = 20 * time.Millisecond
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("fast", fixedScorer(0.6), 1.0),
			h,
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if _, ok := results["slow"]; ok {
			t.Error("timed-out model must not appear in results")
		}
		if _, ok := results["fast"]; !ok {
			t.Error("fast model should have succeeded")
		}
	})

	t.Run("all models fail", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("a", failingScorer(errors.New("down")), 1.0),
			handle("b", failingScorer(errors.New("down")), 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		_, err := s.ScoreAll(ctx, fv)
		if !errors.Is(err, ErrNoPredictions) {
			t.Fatalf("err = %v, want ErrNoPredictions", err)
		}
	})

	t.Run("no models enabled", func(t *testing.T) {
		s := NewParallelScorer(&stubRegistry{}, 4, nil)
		_, err := s.ScoreAll(ctx, fv)
		if !errors.Is(err, ErrNoModels) {
			t.Fatalf("err = %v, want ErrNoModels", err)
		}
	})

	t.Run("non-finite prediction rejected", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("nan", fixedScorer(math.NaN()), 1.0),
			handle("ok", fixedScorer(0.3), 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if _, ok := results["nan"]; ok {
			t.Error("NaN prediction must be dropped")
		}
	})

	t.Run("out-of-range prediction clamped", func(t *testing.T) {
		reg := &stubRegistry{handles: []domain.ModelHandle{
			handle("hot", fixedScorer(1.7), 1.0),
		}}
		s := NewParallelScorer(reg, 4, nil)
		results, err := s.ScoreAll(ctx, fv)
		if err != nil {
			t.Fatalf("ScoreAll() error = %v", err)
		}
		if results["hot"].Prediction != 1.0 {
			t.Errorf("Prediction = %v, want clamped 1.0", results["hot"].Prediction)
		}
	})
}

func TestDeriveConfidence(t *testing.T) {
	cases := []struct {
		prediction, multiplier, want float64
	}{
		{0.5, 1.0, 0.0},  // boundary prediction carries no information
		{1.0, 1.0, 1.0},  // extreme prediction, full trust
		{0.0, 1.0, 1.0},  // extreme in the other direction
		{0.75, 1.0, 0.5}, // halfway out
		{1.0, 0.5, 0.5},  // trust multiplier scales down
		{1.0, 2.0, 1.0},  // capped at 1
	}
	for _, c := range cases {
		if got := deriveConfidence(c.prediction, c.multiplier); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("deriveConfidence(%v, %v) = %v, want %v", c.prediction, c.multiplier, got, c.want)
		}
	}
}

package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// ParallelScorer fans one feature vector out to every enabled model.
// Each model runs under its own timeout; one model failing, panicking or
// timing out never affects the others.
type ParallelScorer struct {
	registry      domain.ModelRegistry
	maxConcurrent int
	logger        *slog.Logger
}

// NewParallelScorer creates a scorer over the given registry.
func NewParallelScorer(registry domain.ModelRegistry, maxConcurrent int, logger *slog.Logger) *ParallelScorer {
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParallelScorer{
		registry:      registry,
		maxConcurrent: maxConcurrent,
		logger:        logger,
	}
}

// ScoreAll scores the vector with every enabled model and returns the
// successful results. Returns ErrNoModels when nothing is enabled, and
// ErrNoPredictions when every model failed.
func (s *ParallelScorer) ScoreAll(ctx context.Context, fv *domain.FeatureVector) (map[string]domain.ModelResult, error) {
	handles := s.registry.EnabledModels()
	if len(handles) == 0 {
		return nil, ErrNoModels
	}

	type outcome struct {
		result domain.ModelResult
		err    error
	}
	outcomes := make([]outcome, len(handles))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)

	for i, h := range handles {
		wg.Add(1)
		go func(idx int, handle domain.ModelHandle) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := s.scoreOne(ctx, handle, fv)
			outcomes[idx] = outcome{result: result, err: err}
		}(i, h)
	}

	wg.Wait()

	results := make(map[string]domain.ModelResult, len(handles))
	for i, o := range outcomes {
		if o.err != nil {
			s.logger.Warn("model scoring failed",
				"modelId", handles[i].ID,
				"transactionId", fv.TransactionID,
				"error", o.err)
			continue
		}
		results[o.result.ModelID] = o.result
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %d models attempted", ErrNoPredictions, len(handles))
	}
	return results, nil
}

// scoreOne runs a single model under its timeout and derives its confidence.
func (s *ParallelScorer) scoreOne(ctx context.Context, h domain.ModelHandle, fv *domain.FeatureVector) (result domain.ModelResult, err error) {
	// A panicking model backend counts as a failed model, nothing more.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s panicked: %v", h.ID, r)
		}
	}()

	mctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	start := time.Now()
	prediction, err := h.Scorer.Score(mctx, fv)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		return domain.ModelResult{}, err
	}
	if mctx.Err() != nil {
		return domain.ModelResult{}, mctx.Err()
	}
	if math.IsNaN(prediction) || math.IsInf(prediction, 0) {
		return domain.ModelResult{}, fmt.Errorf("model %s returned non-finite prediction", h.ID)
	}

	prediction = clamp01(prediction)
	return domain.ModelResult{
		ModelID:    h.ID,
		Prediction: prediction,
		Confidence: deriveConfidence(prediction, h.ConfidenceMultiplier),
		LatencyMs:  latency,
	}, nil
}

// deriveConfidence maps distance from the decision boundary to [0,1]:
// predictions near 0.5 are uncertain, extreme predictions are confident,
// scaled down by the model family's trust multiplier.
func deriveConfidence(prediction, multiplier float64) float64 {
	return math.Min(1.0, 2*math.Abs(prediction-0.5)*multiplier)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

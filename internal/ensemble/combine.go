package ensemble

import (
	"fmt"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// Combine reduces per-model results to a single fraud probability and
// confidence under the given strategy. Pure and order-invariant: the same
// result set always produces the same output regardless of map iteration
// order. Outputs are clamped to [0,1].
func Combine(strategy domain.Strategy, results map[string]domain.ModelResult, weights map[string]float64, fraudThreshold float64) (prob, confidence float64, err error) {
	if len(results) == 0 {
		return 0, 0, ErrNoPredictions
	}

	switch strategy {
	case domain.StrategyWeightedAverage:
		prob, confidence = weightedAverage(results, weights)
	case domain.StrategyVoting:
		prob, confidence = voting(results, fraudThreshold)
	case domain.StrategyStacking:
		prob, confidence = stacking(results, weights)
	default:
		return 0, 0, fmt.Errorf("unknown combination strategy: %s", strategy)
	}

	return clamp01(prob), clamp01(confidence), nil
}

// weightedAverage combines predictions and confidences by model weight.
// When every participating model carries zero weight there is no signal to
// prefer, so the output is the neutral (0.5, 0.0).
func weightedAverage(results map[string]domain.ModelResult, weights map[string]float64) (float64, float64) {
	var probSum, confSum, weightSum float64
	for id, r := range results {
		w := weights[id]
		probSum += w * r.Prediction
		confSum += w * r.Confidence
		weightSum += w
	}
	if weightSum == 0 {
		return 0.5, 0.0
	}
	return probSum / weightSum, confSum / weightSum
}

// voting counts models predicting above the fraud threshold. The probability
// is the vote fraction; the confidence is the unweighted mean of the model
// confidences.
func voting(results map[string]domain.ModelResult, fraudThreshold float64) (float64, float64) {
	var votes int
	var confSum float64
	for _, r := range results {
		if r.Prediction > fraudThreshold {
			votes++
		}
		confSum += r.Confidence
	}
	total := float64(len(results))
	return float64(votes) / total, confSum / total
}

// stacking weighs each prediction by the model's own confidence, so certain
// models dominate. When every confidence is zero it degrades to the static
// weighted average.
func stacking(results map[string]domain.ModelResult, weights map[string]float64) (float64, float64) {
	var probSum, confSum float64
	for _, r := range results {
		probSum += r.Confidence * r.Prediction
		confSum += r.Confidence
	}
	if confSum == 0 {
		return weightedAverage(results, weights)
	}
	return probSum / confSum, confSum / float64(len(results))
}

package models

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// newScorer constructs the backend for a model family. Each backend is a
// deterministic heuristic over the feature vector, tuned so the families
// disagree the way independently trained models would.
func newScorer(cfg domain.ModelConfig) (domain.Scorer, error) {
	switch cfg.Type {
	case "gradient_boost":
		return domain.ScorerFunc(scoreGradientBoost), nil
	case "sequence":
		return domain.ScorerFunc(scoreSequence), nil
	case "text":
		return domain.ScorerFunc(scoreText), nil
	case "graph":
		return domain.ScorerFunc(scoreGraph), nil
	case "anomaly":
		return domain.ScorerFunc(scoreAnomaly), nil
	default:
		return nil, fmt.Errorf("unknown model type: %s", cfg.Type)
	}
}

// scoreGradientBoost weights tabular risk signals: amount, velocity,
// payment method and timing.
func scoreGradientBoost(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	z := -2.0
	z += 0.35 * fv.Named["amount_log"]
	z += 0.25 * fv.Named["user_tx_velocity"]
	z += 2.0 * fv.Named["payment_method_risk"]
	z += 0.8 * fv.Named["is_off_hours"]
	z += jitter(fv.TransactionID, "gradient_boost")
	return sigmoid(z), nil
}

// scoreSequence leans on behavioral velocity, standing in for a recurrent
// model over the user's transaction history.
func scoreSequence(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	z := -2.5
	z += 0.6 * fv.Named["user_tx_velocity"]
	z += 0.2 * fv.Named["amount_log"]
	z += 0.5 * fv.Named["is_off_hours"]
	z += jitter(fv.TransactionID, "sequence")
	return sigmoid(z), nil
}

// scoreText keys on categorical context, standing in for a model over
// transaction descriptions.
func scoreText(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	z := -1.8
	z += 2.5 * fv.Named["payment_method_risk"]
	z += 0.3 * fv.Named["is_weekend"]
	z += jitter(fv.TransactionID, "text")
	return sigmoid(z), nil
}

// scoreGraph approximates a relationship model with a stable per-pair risk
// prior derived from the user/merchant edge.
func scoreGraph(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	z := -2.2
	z += 3.0 * pairPrior(fv.UserID, fv.MerchantID)
	z += 0.2 * fv.Named["amount_log"]
	z += jitter(fv.TransactionID, "graph")
	return sigmoid(z), nil
}

// scoreAnomaly measures how far the vector deviates from a neutral profile.
func scoreAnomaly(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	if len(fv.Values) == 0 {
		return 0.5, nil
	}
	var sum float64
	for _, v := range fv.Values {
		sum += math.Abs(v)
	}
	mean := sum / float64(len(fv.Values))
	return sigmoid(mean - 1.0), nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// jitter derives a small stable offset from the transaction so the model
// families never collapse to identical scores. Range [-0.25, 0.25].
func jitter(txID, family string) float64 {
	h := fnv.New32a()
	h.Write([]byte(txID))
	h.Write([]byte{0})
	h.Write([]byte(family))
	return (float64(h.Sum32()%1000)/1000.0 - 0.5) * 0.5
}

// pairPrior maps a user/merchant edge to a stable value in [0,1).
func pairPrior(userID, merchantID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(merchantID))
	return float64(h.Sum32()%1000) / 1000.0
}

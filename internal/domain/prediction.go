package domain

import (
	"time"
)

// Strategy selects how per-model results are combined into one score.
type Strategy string

const (
	StrategyWeightedAverage Strategy = "weighted_average"
	StrategyVoting          Strategy = "voting"
	StrategyStacking        Strategy = "stacking"
)

// RiskLevel buckets fraud probability for reporting. Independent of the
// business decision: a HIGH risk transaction can still route to REVIEW
// when model confidence is low.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Decision is the bounded business outcome of a scoring request.
type Decision string

const (
	DecisionApprove           Decision = "APPROVE"
	DecisionApproveMonitoring Decision = "APPROVE_WITH_MONITORING"
	DecisionReview            Decision = "REVIEW"
	DecisionDecline           Decision = "DECLINE"
)

// ModelResult is the outcome of one model scoring one request.
// Produced once per model per request; never mutated.
type ModelResult struct {
	ModelID    string  `json:"modelId"`
	Prediction float64 `json:"prediction"` // fraud likelihood in [0,1]
	Confidence float64 `json:"confidence"` // derived, in [0,1]
	LatencyMs  float64 `json:"latencyMs"`
}

// EnsembleResult is the complete scoring outcome for one transaction.
// Immutable; cached by request fingerprint.
type EnsembleResult struct {
	ID               string  `json:"id"`
	TransactionID    string  `json:"transactionId"`
	FraudProbability float64 `json:"fraudProbability"`
	Confidence       float64 `json:"confidence"`

	RiskLevel RiskLevel `json:"riskLevel"`
	Decision  Decision  `json:"decision"`

	// ModelResults contains exactly the models that returned successfully.
	// Failed models are absent, never recorded with a sentinel score.
	ModelResults map[string]ModelResult `json:"modelResults"`

	Explanation *Explanation `json:"explanation,omitempty"`

	Strategy     Strategy  `json:"strategy"`
	ComputedAt   time.Time `json:"computedAt"`
	ProcessingMs float64   `json:"processingMs"`

	// Cached marks results served from the prediction cache.
	Cached bool `json:"cached,omitempty"`
}

// Explanation is a best-effort, human-readable attribution of a decision.
// Pure function of the scoring inputs; never affects the decision.
type Explanation struct {
	// ModelContributions reports each successful model's share of the
	// weighted-average probability, regardless of the active strategy.
	ModelContributions map[string]ModelContribution `json:"modelContributions,omitempty"`

	// KeyFactors lists triggered metadata heuristics in fixed rule order.
	KeyFactors []string `json:"keyFactors,omitempty"`

	// FeatureImportance lists the strongest numeric features, descending
	// by magnitude.
	FeatureImportance []FeatureImportance `json:"featureImportance,omitempty"`
}

// ModelContribution breaks down one model's role in the ensemble output.
type ModelContribution struct {
	Prediction   float64 `json:"prediction"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Confidence   float64 `json:"confidence"`
}

// FeatureImportance names a numeric feature and its importance score.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// PredictionRecorded is the fire-and-forget event emitted after every
// scoring decision for asynchronous metrics recording.
type PredictionRecorded struct {
	TransactionID    string             `json:"transactionId"`
	FraudProbability float64            `json:"fraudProbability"`
	Confidence       float64            `json:"confidence"`
	RiskLevel        RiskLevel          `json:"riskLevel"`
	Decision         Decision           `json:"decision"`
	ModelPredictions map[string]float64 `json:"modelPredictions"`
	Strategy         Strategy           `json:"strategy"`
	ProcessingMs     float64            `json:"processingMs"`
	Cached           bool               `json:"cached"`
	RecordedAt       time.Time          `json:"recordedAt"`
}

// Recorded builds the metrics event for this result.
func (r *EnsembleResult) Recorded() *PredictionRecorded {
	preds := make(map[string]float64, len(r.ModelResults))
	for id, mr := range r.ModelResults {
		preds[id] = mr.Prediction
	}
	return &PredictionRecorded{
		TransactionID:    r.TransactionID,
		FraudProbability: r.FraudProbability,
		Confidence:       r.Confidence,
		RiskLevel:        r.RiskLevel,
		Decision:         r.Decision,
		ModelPredictions: preds,
		Strategy:         r.Strategy,
		ProcessingMs:     r.ProcessingMs,
		Cached:           r.Cached,
		RecordedAt:       time.Now().UTC(),
	}
}

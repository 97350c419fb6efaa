package domain

import (
	"context"
	"time"
)

// Scorer is the single capability contract the ensemble core requires of a
// model: given a feature vector, return a fraud likelihood in [0,1],
// possibly failing. Backend variance (trees, networks, anomaly detectors)
// is never visible inside the core.
type Scorer interface {
	Score(ctx context.Context, fv *FeatureVector) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, fv *FeatureVector) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, fv *FeatureVector) (float64, error) {
	return f(ctx, fv)
}

// ModelConfig describes one model in the registry.
type ModelConfig struct {
	ID   string `json:"id"`
	Type string `json:"type"` // scorer backend family, e.g. "gradient_boost"

	// Weight is the model's static ensemble weight; normalized at read time.
	Weight float64 `json:"weight"`

	Enabled bool `json:"enabled"`

	// ConfidenceMultiplier scales the derived confidence for this model
	// family. Tuning parameter, not load-bearing correctness.
	ConfidenceMultiplier float64 `json:"confidenceMultiplier"`

	// Timeout bounds a single scoring call. Zero means the registry default.
	Timeout time.Duration `json:"timeout"`
}

// ModelHandle is a snapshot of one enabled, loaded model taken at the start
// of a request's fan-out. Stable for the duration of that request.
type ModelHandle struct {
	ID                   string
	Weight               float64
	ConfidenceMultiplier float64
	Timeout              time.Duration
	Scorer               Scorer
}

// ModelInfo describes a registered model for API consumers.
type ModelInfo struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Weight   float64   `json:"weight"`
	Enabled  bool      `json:"enabled"`
	Loaded   bool      `json:"loaded"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
}

// ModelRegistry maps model identifiers to scorers and their static
// configuration. The core queries it; it does not manage model lifecycle.
type ModelRegistry interface {
	// EnabledModels returns a snapshot of every enabled and loaded model.
	EnabledModels() []ModelHandle

	// Models lists all registered models, including disabled ones.
	Models() []ModelInfo

	// SetEnabled toggles a model at runtime.
	SetEnabled(modelID string, enabled bool) error
}

// Default per-model scoring timeout when a ModelConfig leaves it unset.
const DefaultModelTimeout = 5 * time.Second

// DefaultConfidenceMultiplier applies to model families without an explicit
// trust constant.
const DefaultConfidenceMultiplier = 0.5

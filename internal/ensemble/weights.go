package ensemble

import (
	"fmt"
	"sync"
)

// WeightTable holds the runtime-mutable ensemble weights. Readers always see
// a consistent snapshot; a scoring request never mixes weights from two
// different updates.
type WeightTable struct {
	mu      sync.RWMutex
	weights map[string]float64
}

// NewWeightTable seeds the table from static model weights.
func NewWeightTable(seed map[string]float64) *WeightTable {
	w := make(map[string]float64, len(seed))
	for id, v := range seed {
		w[id] = v
	}
	return &WeightTable{weights: w}
}

// Snapshot returns a normalized copy of the current weights. When every
// weight is zero the raw zeros are returned; the combiner handles that case
// with its neutral fallback.
func (t *WeightTable) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var sum float64
	for _, v := range t.weights {
		sum += v
	}
	out := make(map[string]float64, len(t.weights))
	for id, v := range t.weights {
		if sum > 0 {
			out[id] = v / sum
		} else {
			out[id] = v
		}
	}
	return out
}

// Get returns the raw weight for a model, or zero when absent.
func (t *WeightTable) Get(modelID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.weights[modelID]
}

// Update replaces the weights for the given models. Unlisted models keep
// their current weight. Negative weights are rejected before any change is
// applied.
func (t *WeightTable) Update(weights map[string]float64) error {
	for id, v := range weights {
		if v < 0 {
			return fmt.Errorf("weight for model %s must be non-negative, got %v", id, v)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, v := range weights {
		t.weights[id] = v
	}
	return nil
}

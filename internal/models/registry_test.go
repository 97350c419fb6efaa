package models

import (
	"context"
	"testing"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

func testConfigs() []domain.ModelConfig {
	return []domain.ModelConfig{
		{ID: "gb", Type: "gradient_boost", Weight: 0.4, Enabled: true, ConfidenceMultiplier: 1.0},
		{ID: "seq", Type: "sequence", Weight: 0.25, Enabled: true, ConfidenceMultiplier: 0.8},
		{ID: "txt", Type: "text", Weight: 0.15, Enabled: false, ConfidenceMultiplier: 0.7},
		{ID: "bad", Type: "nonexistent", Weight: 0.1, Enabled: true},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("enabled models excludes disabled and unloaded", func(t *testing.T) {
		r := NewRegistry(testConfigs(), nil)
		handles := r.EnabledModels()
		if len(handles) != 2 {
			t.Fatalf("EnabledModels() returned %d models, want 2", len(handles))
		}
		// Sorted by ID: gb before seq.
		if handles[0].ID != "gb" || handles[1].ID != "seq" {
			t.Errorf("unexpected ordering: %s, %s", handles[0].ID, handles[1].ID)
		}
	})

	t.Run("handle defaults applied", func(t *testing.T) {
		r := NewRegistry([]domain.ModelConfig{
			{ID: "m", Type: "gradient_boost", Weight: 1, Enabled: true},
		}, nil)
		h := r.EnabledModels()[0]
		if h.Timeout != domain.DefaultModelTimeout {
			t.Errorf("Timeout = %v, want default %v", h.Timeout, domain.DefaultModelTimeout)
		}
		if h.ConfidenceMultiplier != domain.DefaultConfidenceMultiplier {
			t.Errorf("ConfidenceMultiplier = %v, want default %v", h.ConfidenceMultiplier, domain.DefaultConfidenceMultiplier)
		}
	})

	t.Run("models lists everything", func(t *testing.T) {
		r := NewRegistry(testConfigs(), nil)
		infos := r.Models()
		if len(infos) != 4 {
			t.Fatalf("Models() returned %d, want 4", len(infos))
		}
		byID := make(map[string]domain.ModelInfo)
		for _, info := range infos {
			byID[info.ID] = info
		}
		if byID["txt"].Enabled {
			t.Error("txt should be disabled")
		}
		if byID["bad"].Loaded {
			t.Error("bad should be unloaded")
		}
	})

	t.Run("set enabled", func(t *testing.T) {
		r := NewRegistry(testConfigs(), nil)
		if err := r.SetEnabled("txt", true); err != nil {
			t.Fatalf("SetEnabled() error = %v", err)
		}
		if len(r.EnabledModels()) != 3 {
			t.Errorf("expected 3 enabled models after toggle")
		}
		if err := r.SetEnabled("missing", true); err == nil {
			t.Error("SetEnabled() on unknown model should fail")
		}
	})
}

func TestScorers(t *testing.T) {
	fv := &domain.FeatureVector{
		TransactionID: "tx-1",
		UserID:        "user-1",
		MerchantID:    "merchant-1",
		Named: map[string]float64{
			"amount_log":          5,
			"user_tx_velocity":    3,
			"payment_method_risk": 0.9,
			"is_off_hours":        1,
		},
		Values: []float64{1, 2, 3},
	}

	for _, typ := range []string{"gradient_boost", "sequence", "text", "graph", "anomaly"} {
		t.Run(typ, func(t *testing.T) {
			s, err := newScorer(domain.ModelConfig{ID: typ, Type: typ})
			if err != nil {
				t.Fatalf("newScorer(%s) error = %v", typ, err)
			}
			p1, err := s.Score(context.Background(), fv)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if p1 < 0 || p1 > 1 {
				t.Errorf("Score() = %v, outside [0,1]", p1)
			}
			p2, _ := s.Score(context.Background(), fv)
			if p1 != p2 {
				t.Errorf("scorer not deterministic: %v vs %v", p1, p2)
			}
		})
	}

	t.Run("unknown type rejected", func(t *testing.T) {
		if _, err := newScorer(domain.ModelConfig{Type: "quantum"}); err == nil {
			t.Error("expected error for unknown model type")
		}
	})
}

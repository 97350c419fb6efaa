package recorder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/bus"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

func event() *domain.PredictionRecorded {
	return &domain.PredictionRecorded{
		TransactionID:    "tx-1",
		FraudProbability: 0.85,
		Confidence:       0.9,
		RiskLevel:        domain.RiskHigh,
		Decision:         domain.DecisionReview,
		Strategy:         domain.StrategyWeightedAverage,
		ModelPredictions: map[string]float64{"gb": 0.9, "seq": 0.8},
		ProcessingMs:     3.2,
		RecordedAt:       time.Now().UTC(),
	}
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r.Observe(event())
	r.Observe(event())

	got := testutil.ToFloat64(r.predictions.WithLabelValues("REVIEW", "HIGH", "weighted_average"))
	if got != 2 {
		t.Errorf("predictions counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.fraudDetected.WithLabelValues("HIGH")); got != 2 {
		t.Errorf("fraud detected counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.cacheHits); got != 0 {
		t.Errorf("cache hits = %v, want 0", got)
	}

	cached := event()
	cached.Cached = true
	r.Observe(cached)
	if got := testutil.ToFloat64(r.cacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestLowProbabilityNotCountedAsFraud(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	e := event()
	e.FraudProbability = 0.2
	e.RiskLevel = domain.RiskVeryLow
	r.Observe(e)

	if got := testutil.ToFloat64(r.fraudDetected.WithLabelValues("VERY_LOW")); got != 0 {
		t.Errorf("fraud detected counter = %v, want 0 for low probability", got)
	}
}

func TestConsumesFromBus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	b := bus.NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()
	if err := r.Start(ctx, b); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	payload, _ := json.Marshal(event())
	if err := b.Publish(ctx, domain.TopicPredictionRecorded, payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if testutil.ToFloat64(r.predictions.WithLabelValues("REVIEW", "HIGH", "weighted_average")) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for event to be recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Malformed payloads are dropped without breaking the subscription.
	b.Publish(ctx, domain.TopicPredictionRecorded, []byte("not json"))
	payload2, _ := json.Marshal(event())
	b.Publish(ctx, domain.TopicPredictionRecorded, payload2)

	deadline = time.After(time.Second)
	for {
		if testutil.ToFloat64(r.predictions.WithLabelValues("REVIEW", "HIGH", "weighted_average")) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("subscription broke after malformed payload")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

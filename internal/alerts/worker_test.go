package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/bus"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

func publishPrediction(t *testing.T, b domain.EventBus, prob float64) {
	t.Helper()
	event := domain.PredictionRecorded{
		TransactionID:    "tx-1",
		FraudProbability: prob,
		Confidence:       0.8,
		RiskLevel:        domain.RiskHigh,
		Decision:         domain.DecisionReview,
		Strategy:         domain.StrategyWeightedAverage,
		RecordedAt:       time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)
	if err := b.Publish(context.Background(), domain.TopicPredictionRecorded, payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func collectAlerts(t *testing.T, b domain.EventBus) (*sync.Mutex, *[]Alert) {
	t.Helper()
	var mu sync.Mutex
	var alerts []Alert
	_, err := b.Subscribe(context.Background(), domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		var a Alert
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			t.Errorf("bad alert payload: %v", err)
			return nil
		}
		mu.Lock()
		alerts = append(alerts, a)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	return &mu, &alerts
}

func waitForAlerts(t *testing.T, mu *sync.Mutex, alerts *[]Alert, want int) []Alert {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(*alerts)
		got := append([]Alert(nil), *alerts...)
		mu.Unlock()
		if n >= want {
			return got
		}
		select {
		case <-deadline:
			t.Fatalf("timeout: got %d alerts, want %d", n, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHighRiskPredictionRaisesAlert(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	mu, alerts := collectAlerts(t, b)

	w := NewWorker(b, 0.7, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	publishPrediction(t, b, 0.95)

	got := waitForAlerts(t, mu, alerts, 1)
	if got[0].TransactionID != "tx-1" {
		t.Errorf("transactionId = %s, want tx-1", got[0].TransactionID)
	}
	if got[0].Level != "high" {
		t.Errorf("level = %s, want high for probability 0.95", got[0].Level)
	}
	if got[0].ID == "" {
		t.Error("expected alert id")
	}
}

func TestMediumLevelBelowPointNine(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	mu, alerts := collectAlerts(t, b)

	w := NewWorker(b, 0.7, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	publishPrediction(t, b, 0.75)

	got := waitForAlerts(t, mu, alerts, 1)
	if got[0].Level != "medium" {
		t.Errorf("level = %s, want medium for probability 0.75", got[0].Level)
	}
}

func TestLowRiskPredictionIgnored(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	mu, alerts := collectAlerts(t, b)

	w := NewWorker(b, 0.7, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	publishPrediction(t, b, 0.3)
	// A second high-risk event proves the low one was skipped, not delayed.
	publishPrediction(t, b, 0.8)

	got := waitForAlerts(t, mu, alerts, 1)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	n := len(*alerts)
	mu.Unlock()
	if n != 1 {
		t.Errorf("alerts = %d, want 1", n)
	}
	if got[0].FraudProbability != 0.8 {
		t.Errorf("alert probability = %v, want 0.8", got[0].FraudProbability)
	}
}

func TestMalformedEventDropped(t *testing.T) {
	b := bus.NewChannelBus(10)
	defer b.Close()

	mu, alerts := collectAlerts(t, b)

	w := NewWorker(b, 0.7, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	b.Publish(context.Background(), domain.TopicPredictionRecorded, []byte("not json"))
	publishPrediction(t, b, 0.9)

	waitForAlerts(t, mu, alerts, 1)
}

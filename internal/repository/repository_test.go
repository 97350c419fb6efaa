package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "frauddetector-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:            "tx-001",
			UserID:        "user-001",
			MerchantID:    "merchant-001",
			Amount:        1000.00,
			Currency:      "USD",
			PaymentMethod: "credit_card",
			CardType:      "visa",
			Timestamp:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
			Features:      map[string]float64{"velocity": 3},
			Metadata:      map[string]any{"source": "api"},
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}

		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if retrieved.UserID != tx.UserID {
			t.Errorf("expected UserID %s, got %s", tx.UserID, retrieved.UserID)
		}
		if retrieved.Features["velocity"] != 3 {
			t.Errorf("expected features to round-trip, got %v", retrieved.Features)
		}
	})

	t.Run("SaveTransactionUpserts", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:            "tx-upsert",
			UserID:        "user-001",
			MerchantID:    "merchant-001",
			Amount:        10,
			Currency:      "USD",
			PaymentMethod: "credit_card",
			Timestamp:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("first save failed: %v", err)
		}
		tx.Amount = 20
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("second save failed: %v", err)
		}
		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.Amount != 20 {
			t.Errorf("expected upserted amount 20, got %v", retrieved.Amount)
		}
	})

	t.Run("GetTransactionNotFound", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CountRecentByUser", func(t *testing.T) {
		now := time.Now().UTC()
		for i, age := range []time.Duration{time.Minute, 30 * time.Minute, 2 * time.Hour} {
			tx := &domain.Transaction{
				ID:            "tx-count-" + string(rune('a'+i)),
				UserID:        "user-velocity",
				MerchantID:    "merchant-001",
				Amount:        5,
				Currency:      "USD",
				PaymentMethod: "credit_card",
				Timestamp:     now.Add(-age),
				CreatedAt:     now,
			}
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction failed: %v", err)
			}
		}

		count, err := repo.CountRecentByUser(ctx, "user-velocity", now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("CountRecentByUser failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 recent transactions, got %d", count)
		}

		if _, err := repo.CountRecentByUser(ctx, "", now); err == nil {
			t.Error("expected error for empty userID")
		}
	})

	t.Run("SaveAndGetPrediction", func(t *testing.T) {
		result := &domain.EnsembleResult{
			ID:               "pred-001",
			TransactionID:    "tx-001",
			FraudProbability: 0.72,
			Confidence:       0.85,
			RiskLevel:        domain.RiskMedium,
			Decision:         domain.DecisionApproveMonitoring,
			Strategy:         domain.StrategyWeightedAverage,
			ModelResults: map[string]domain.ModelResult{
				"gb": {ModelID: "gb", Prediction: 0.8, Confidence: 0.9, LatencyMs: 1.2},
			},
			Explanation: &domain.Explanation{
				KeyFactors: []string{"off-hours transaction: hour 3"},
			},
			ComputedAt:   time.Now().UTC(),
			ProcessingMs: 4.5,
		}

		if err := repo.SavePrediction(ctx, result); err != nil {
			t.Fatalf("SavePrediction failed: %v", err)
		}

		retrieved, err := repo.GetPrediction(ctx, result.ID)
		if err != nil {
			t.Fatalf("GetPrediction failed: %v", err)
		}

		if retrieved.FraudProbability != result.FraudProbability {
			t.Errorf("expected probability %v, got %v", result.FraudProbability, retrieved.FraudProbability)
		}
		if retrieved.Decision != domain.DecisionApproveMonitoring {
			t.Errorf("expected decision %v, got %v", result.Decision, retrieved.Decision)
		}
		if retrieved.ModelResults["gb"].Prediction != 0.8 {
			t.Errorf("model results did not round-trip: %v", retrieved.ModelResults)
		}
		if retrieved.Explanation == nil || len(retrieved.Explanation.KeyFactors) != 1 {
			t.Errorf("explanation did not round-trip: %v", retrieved.Explanation)
		}
	})

	t.Run("GetPredictionByTransaction", func(t *testing.T) {
		older := &domain.EnsembleResult{
			ID:            "pred-old",
			TransactionID: "tx-multi",
			RiskLevel:     domain.RiskLow,
			Decision:      domain.DecisionApprove,
			Strategy:      domain.StrategyWeightedAverage,
			ModelResults:  map[string]domain.ModelResult{},
			ComputedAt:    time.Now().UTC().Add(-time.Hour),
		}
		newer := &domain.EnsembleResult{
			ID:            "pred-new",
			TransactionID: "tx-multi",
			RiskLevel:     domain.RiskHigh,
			Decision:      domain.DecisionReview,
			Strategy:      domain.StrategyWeightedAverage,
			ModelResults:  map[string]domain.ModelResult{},
			ComputedAt:    time.Now().UTC(),
		}
		if err := repo.SavePrediction(ctx, older); err != nil {
			t.Fatal(err)
		}
		if err := repo.SavePrediction(ctx, newer); err != nil {
			t.Fatal(err)
		}

		latest, err := repo.GetPredictionByTransaction(ctx, "tx-multi")
		if err != nil {
			t.Fatalf("GetPredictionByTransaction failed: %v", err)
		}
		if latest.ID != "pred-new" {
			t.Errorf("expected latest prediction pred-new, got %s", latest.ID)
		}
	})

	t.Run("GetPredictionNotFound", func(t *testing.T) {
		if _, err := repo.GetPrediction(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	r := &SQLRepository{driver: "postgres"}
	got := r.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}

	r.driver = "sqlite"
	passthrough := "SELECT * FROM t WHERE a = ?"
	if got := r.rebind(passthrough); got != passthrough {
		t.Errorf("sqlite rebind should be a no-op, got %q", got)
	}
}

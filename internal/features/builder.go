// Package features builds the fixed-shape numeric vectors handed to models.
package features

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// DefaultVelocityWindow is the lookback for the per-user transaction count
// feature.
const DefaultVelocityWindow = time.Hour

// Builder assembles feature vectors from transactions. The repository is
// optional; without one the velocity feature stays zero.
type Builder struct {
	repo           domain.Repository
	velocityWindow time.Duration
	logger         *slog.Logger
}

// NewBuilder creates a feature builder.
func NewBuilder(repo domain.Repository, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		repo:           repo,
		velocityWindow: DefaultVelocityWindow,
		logger:         logger,
	}
}

// Build converts a transaction into a model-ready feature vector. Derived
// features are merged over the caller-supplied ones, then flattened in
// sorted name order, padded to the minimum length and clamped.
func (b *Builder) Build(ctx context.Context, tx *domain.Transaction) (*domain.FeatureVector, error) {
	named := make(map[string]float64, len(tx.Features)+8)
	for k, v := range tx.Features {
		named[k] = v
	}

	hour := tx.HourOfDay()
	named["amount"] = tx.Amount
	named["amount_log"] = math.Log1p(math.Max(tx.Amount, 0))
	named["hour_of_day"] = float64(hour)
	named["hour_sin"] = math.Sin(2 * math.Pi * float64(hour) / 24)
	named["hour_cos"] = math.Cos(2 * math.Pi * float64(hour) / 24)
	named["is_off_hours"] = boolFeature(hour < 6 || hour > 22)
	named["is_weekend"] = boolFeature(isWeekend(tx.Timestamp))
	named["payment_method_risk"] = paymentMethodRisk(tx.PaymentMethod)

	// Velocity is best-effort: a repository failure degrades the feature to
	// zero rather than failing the scoring request.
	if b.repo != nil && tx.UserID != "" {
		since := time.Now().Add(-b.velocityWindow)
		count, err := b.repo.CountRecentByUser(ctx, tx.UserID, since)
		if err != nil {
			b.logger.Warn("velocity lookup failed", "userId", tx.UserID, "error", err)
		} else {
			named["user_tx_velocity"] = float64(count)
		}
	}

	return &domain.FeatureVector{
		Values:        flatten(named),
		Named:         named,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		MerchantID:    tx.MerchantID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		PaymentMethod: tx.PaymentMethod,
		HourOfDay:     hour,
		Timestamp:     tx.Timestamp,
	}, nil
}

// flatten orders named features deterministically, pads to MinFeatureCount
// and clamps every value into the model input range.
func flatten(named map[string]float64) []float64 {
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := len(keys)
	if n < domain.MinFeatureCount {
		n = domain.MinFeatureCount
	}
	values := make([]float64, n)
	for i, k := range keys {
		values[i] = Clamp(named[k])
	}
	return values
}

// Clamp bounds a feature value to the model input range. NaN and infinities
// collapse to zero.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < domain.FeatureClampMin {
		return domain.FeatureClampMin
	}
	if v > domain.FeatureClampMax {
		return domain.FeatureClampMax
	}
	return v
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isWeekend(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// paymentMethodRisk maps payment methods to a coarse prior risk score.
func paymentMethodRisk(method string) float64 {
	switch method {
	case "crypto":
		return 0.9
	case "gift_card":
		return 0.8
	case "wire_transfer":
		return 0.5
	case "debit_card":
		return 0.3
	case "credit_card":
		return 0.2
	default:
		return 0.4
	}
}

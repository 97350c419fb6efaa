package domain

import "time"

// Feature vector shape constraints. Models receive a fixed-length vector
// with every value clamped to a bounded range so unbounded inputs cannot
// destabilize scorers.
const (
	MinFeatureCount = 64
	FeatureClampMin = -10.0
	FeatureClampMax = 10.0
)

// FeatureVector is the fixed-shape numeric input handed to every model,
// plus the metadata needed for caching and explanation. Immutable once
// built.
type FeatureVector struct {
	// Values is the ordered numeric vector, padded to MinFeatureCount and
	// clamped to [FeatureClampMin, FeatureClampMax].
	Values []float64

	// Named holds the named numeric features before flattening, preserved
	// for feature-importance reporting.
	Named map[string]float64

	// Metadata bag used by the decision explainer and cache fingerprint.
	TransactionID string
	UserID        string
	MerchantID    string
	Amount        float64
	Currency      string
	PaymentMethod string
	HourOfDay     int
	Timestamp     time.Time
}

// Fingerprint returns the cache key for the request this vector was built
// from. Delegates to the same field set as Transaction.Fingerprint.
func (fv *FeatureVector) Fingerprint() string {
	tx := Transaction{
		ID:            fv.TransactionID,
		Amount:        fv.Amount,
		UserID:        fv.UserID,
		MerchantID:    fv.MerchantID,
		PaymentMethod: fv.PaymentMethod,
	}
	return tx.Fingerprint()
}

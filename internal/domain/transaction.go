// Package domain defines the core interfaces and types for the fraud
// detection pipeline.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Transaction represents an incoming payment transaction to be scored.
type Transaction struct {
	// Core identifiers
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	MerchantID string `json:"merchantId"`

	// Financial details
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	// Payment context
	PaymentMethod string `json:"paymentMethod"`
	CardType      string `json:"cardType,omitempty"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// Named numeric features extracted by the upstream enrichment pipeline.
	Features map[string]float64 `json:"features,omitempty"`

	// Optional metadata (device id, ip address, geo, ...)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Fingerprint returns a deterministic cache key derived from the fields that
// affect scoring. Request-arrival time is deliberately excluded so identical
// logical requests collide.
func (t *Transaction) Fingerprint() string {
	parts := []string{
		t.ID,
		strconv.FormatFloat(t.Amount, 'f', -1, 64),
		t.UserID,
		t.MerchantID,
		t.PaymentMethod,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// HourOfDay returns the transaction hour in UTC, used by explanation
// heuristics.
func (t *Transaction) HourOfDay() int {
	if t.Timestamp.IsZero() {
		return 12
	}
	return t.Timestamp.UTC().Hour()
}

// PredictRequest is the API request payload for fraud scoring.
type PredictRequest struct {
	TransactionID string                 `json:"transactionId"`
	UserID        string                 `json:"userId"`
	MerchantID    string                 `json:"merchantId"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	PaymentMethod string                 `json:"paymentMethod"`
	Timestamp     string                 `json:"timestamp,omitempty"`
	Features      map[string]float64     `json:"features,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ToTransaction converts a request to a Transaction domain object.
func (r *PredictRequest) ToTransaction() *Transaction {
	now := time.Now().UTC()
	ts := now
	if r.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			ts = parsed.UTC()
		}
	}
	return &Transaction{
		ID:            r.TransactionID,
		UserID:        r.UserID,
		MerchantID:    r.MerchantID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		PaymentMethod: r.PaymentMethod,
		Timestamp:     ts,
		CreatedAt:     now,
		Features:      r.Features,
		Metadata:      r.Metadata,
	}
}

// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a transaction. Re-scoring the same transaction
// after cache expiry upserts rather than failing on the primary key.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	features, _ := json.Marshal(tx.Features)
	metadata, _ := json.Marshal(tx.Metadata)

	query := `
		INSERT INTO transactions (
			id, user_id, merchant_id, amount, currency,
			payment_method, card_type, timestamp, created_at,
			features, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			merchant_id = excluded.merchant_id,
			amount = excluded.amount,
			currency = excluded.currency,
			payment_method = excluded.payment_method,
			card_type = excluded.card_type,
			timestamp = excluded.timestamp,
			features = excluded.features,
			metadata = excluded.metadata
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.UserID, tx.MerchantID,
		tx.Amount, tx.Currency,
		tx.PaymentMethod, tx.CardType,
		tx.Timestamp, tx.CreatedAt,
		string(features), string(metadata),
	)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	query := `
		SELECT id, user_id, merchant_id, amount, currency,
		       payment_method, card_type, timestamp, created_at,
		       features, metadata
		FROM transactions
		WHERE id = ?
	`

	var tx domain.Transaction
	var cardType sql.NullString
	var features, metadata sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), txID).Scan(
		&tx.ID, &tx.UserID, &tx.MerchantID,
		&tx.Amount, &tx.Currency,
		&tx.PaymentMethod, &cardType,
		&tx.Timestamp, &tx.CreatedAt,
		&features, &metadata,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tx.CardType = cardType.String
	if features.Valid && features.String != "" {
		json.Unmarshal([]byte(features.String), &tx.Features)
	}
	if metadata.Valid && metadata.String != "" {
		json.Unmarshal([]byte(metadata.String), &tx.Metadata)
	}

	return &tx, nil
}

// CountRecentByUser returns the number of transactions a user made since
// the given time. Feeds the velocity feature.
func (r *SQLRepository) CountRecentByUser(ctx context.Context, userID string, since time.Time) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = ? AND timestamp >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// SavePrediction stores an ensemble result.
func (r *SQLRepository) SavePrediction(ctx context.Context, result *domain.EnsembleResult) error {
	if result.ID == "" {
		return fmt.Errorf("%w: prediction id is required", ErrInvalidInput)
	}

	modelResults, _ := json.Marshal(result.ModelResults)
	var explanation []byte
	if result.Explanation != nil {
		explanation, _ = json.Marshal(result.Explanation)
	}

	query := `
		INSERT INTO predictions (
			id, tx_id, fraud_probability, confidence,
			risk_level, decision, strategy,
			model_results, explanation, computed_at, processing_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		result.ID, result.TransactionID,
		result.FraudProbability, result.Confidence,
		string(result.RiskLevel), string(result.Decision), string(result.Strategy),
		string(modelResults), string(explanation),
		result.ComputedAt, result.ProcessingMs,
	)
	return err
}

// GetPrediction retrieves a prediction by its ID.
func (r *SQLRepository) GetPrediction(ctx context.Context, id string) (*domain.EnsembleResult, error) {
	query := `
		SELECT id, tx_id, fraud_probability, confidence,
		       risk_level, decision, strategy,
		       model_results, explanation, computed_at, processing_ms
		FROM predictions
		WHERE id = ?
	`
	return r.scanPrediction(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// GetPredictionByTransaction retrieves the latest prediction for a
// transaction.
func (r *SQLRepository) GetPredictionByTransaction(ctx context.Context, txID string) (*domain.EnsembleResult, error) {
	query := `
		SELECT id, tx_id, fraud_probability, confidence,
		       risk_level, decision, strategy,
		       model_results, explanation, computed_at, processing_ms
		FROM predictions
		WHERE tx_id = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`
	return r.scanPrediction(r.db.QueryRowContext(ctx, r.rebind(query), txID))
}

func (r *SQLRepository) scanPrediction(row *sql.Row) (*domain.EnsembleResult, error) {
	var result domain.EnsembleResult
	var riskLevel, decision, strategy string
	var modelResults string
	var explanation sql.NullString

	err := row.Scan(
		&result.ID, &result.TransactionID,
		&result.FraudProbability, &result.Confidence,
		&riskLevel, &decision, &strategy,
		&modelResults, &explanation,
		&result.ComputedAt, &result.ProcessingMs,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	result.RiskLevel = domain.RiskLevel(riskLevel)
	result.Decision = domain.Decision(decision)
	result.Strategy = domain.Strategy(strategy)
	json.Unmarshal([]byte(modelResults), &result.ModelResults)
	if explanation.Valid && explanation.String != "" {
		var exp domain.Explanation
		if json.Unmarshal([]byte(explanation.String), &exp) == nil {
			result.Explanation = &exp
		}
	}

	return &result, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

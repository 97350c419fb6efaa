package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)

	// CountRecentByUser returns the transaction count for a user since the
	// given time. Feeds the velocity feature of the vector builder.
	CountRecentByUser(ctx context.Context, userID string, since time.Time) (int64, error)

	// Prediction results
	SavePrediction(ctx context.Context, result *EnsembleResult) error
	GetPrediction(ctx context.Context, id string) (*EnsembleResult, error)
	GetPredictionByTransaction(ctx context.Context, txID string) (*EnsembleResult, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

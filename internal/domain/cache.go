package domain

import (
	"context"
	"time"
)

// PredictionCache memoizes recent ensemble results by request fingerprint.
// Best-effort: concurrent identical requests may both recompute; corrupted
// entries are never acceptable.
type PredictionCache interface {
	// Get retrieves a cached result. Returns nil, nil on miss or expiry.
	Get(ctx context.Context, fingerprint string) (*EnsembleResult, error)

	// Put stores a result, evicting the oldest-inserted entry if the cache
	// is at capacity.
	Put(ctx context.Context, fingerprint string, result *EnsembleResult) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for prediction cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// MaxEntries bounds the in-memory cache size.
	MaxEntries int

	// TTL after which an entry is treated as absent on read.
	TTL time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Package cache implements the prediction cache backends.
package cache

import (
	"fmt"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

// New creates a prediction cache from configuration.
func New(cfg domain.CacheConfig) (domain.PredictionCache, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil

	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

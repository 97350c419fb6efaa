package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
)

const redisKeyPrefix = "frauddetector:prediction:"

// RedisCache implements the prediction cache on Redis for multi-instance
// deployments. Eviction beyond TTL is delegated to Redis' own policies.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed prediction cache.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get retrieves a cached result, or nil, nil on miss.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*domain.EnsembleResult, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result domain.EnsembleResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &result, nil
}

// Put stores a result with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, result *domain.EnsembleResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+fingerprint, payload, c.ttl).Err()
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

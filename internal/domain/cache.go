package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Used for benchmark snapshots and catalog lookups so repeated calculations
// for the same region do not re-query the repository.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetBenchmark retrieves a cached market benchmark for a region/type key.
	GetBenchmark(ctx context.Context, key string) (*MarketBenchmark, error)

	// SetBenchmark caches a market benchmark.
	SetBenchmark(ctx context.Context, key string, benchmark *MarketBenchmark, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (standalone profile)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (distributed profile)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}

package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for key-value caching with TTL.
// Values are serialized strings so that in-memory and Redis implementations
// behave identically.
type CacheRepository interface {
	// Get returns the value for key, or ErrCacheMiss when absent or expired.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Queue defines the interface for the durable work queue carrying
// serialized Observation payloads.
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks up to timeout for the next message. It returns
	// ErrQueueEmpty when the wait times out with nothing to consume.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// ProductRepository defines the interface for canonical record persistence.
type ProductRepository interface {
	// Upsert inserts p or updates the existing row with the same
	// (name, source) natural key, atomically.
	Upsert(ctx context.Context, p *Product) (UpsertOutcome, error)
	List(ctx context.Context) ([]Product, error)
	Ping(ctx context.Context) error
}

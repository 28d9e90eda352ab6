package domain

import "errors"

var (
	// ErrInvalidObservation is returned when an observation is missing
	// required fields or carries out-of-range values.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrCacheMiss is returned when a key is not found in cache (or expired)
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache backend cannot be reached
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrQueueEmpty is returned when a blocking pop times out with no message
	ErrQueueEmpty = errors.New("queue empty")

	// ErrQueueUnavailable is returned when the queue backend cannot be reached
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrStoreUnavailable is returned when the persistence backend cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")
)

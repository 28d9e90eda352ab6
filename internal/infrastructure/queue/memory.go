package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/chaniweb/backend/internal/domain"
)

// MemoryQueue is a bounded channel-backed queue for tests and single-node
// deployments without Redis. It preserves push order like the Redis list.
type MemoryQueue struct {
	ch chan []byte
}

// NewMemoryQueue creates a queue holding at most capacity payloads.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan []byte, capacity)}
}

// Push appends a payload. A full queue is reported as unavailable rather
// than blocking the producer.
func (q *MemoryQueue) Push(ctx context.Context, payload []byte) error {
	select {
	case q.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: queue full", domain.ErrQueueUnavailable)
	}
}

// Pop blocks up to timeout for the next payload.
func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case payload := <-q.ch:
		return payload, nil
	case <-t.C:
		return nil, domain.ErrQueueEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of queued payloads (for tests/monitoring).
func (q *MemoryQueue) Len() int { return len(q.ch) }

// Package queue provides implementations of the durable work queue
// carrying serialized observation payloads.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chaniweb/backend/internal/domain"
)

// RedisQueue implements domain.Queue on a Redis list. Producers LPUSH,
// the consumer BRPOPs, so messages come out in push order. Dequeue is
// consumption: there is no ack, a crash mid-processing loses the message.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue wraps an existing Redis client around the named list.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Push appends a payload to the queue.
func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Pop blocks up to timeout for the next payload. A timeout with no message
// maps to domain.ErrQueueEmpty so the caller can just loop.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: unexpected BRPOP reply of length %d", domain.ErrQueueUnavailable, len(res))
	}
	return []byte(res[1]), nil
}

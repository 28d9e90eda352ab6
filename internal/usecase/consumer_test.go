package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaniweb/backend/internal/domain"
	"github.com/chaniweb/backend/internal/infrastructure/cache"
	"github.com/chaniweb/backend/internal/infrastructure/queue"
)

// flakyQueue fails its first Pop calls to exercise the backoff path.
type flakyQueue struct {
	mu       sync.Mutex
	inner    *queue.MemoryQueue
	failPops int
	popCalls int
}

func (q *flakyQueue) Push(ctx context.Context, payload []byte) error {
	return q.inner.Push(ctx, payload)
}

func (q *flakyQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	q.mu.Lock()
	q.popCalls++
	fail := q.popCalls <= q.failPops
	q.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return q.inner.Pop(ctx, timeout)
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{PopTimeout: 10 * time.Millisecond, Backoff: 10 * time.Millisecond}
}

func mustPayload(t *testing.T, obs *domain.Observation) []byte {
	t.Helper()
	raw, err := json.Marshal(obs)
	require.NoError(t, err)
	return raw
}

func TestConsumer_ProcessesValidObservation(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, nil, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Run(ctx)

	require.NoError(t, q.Push(ctx, mustPayload(t, &domain.Observation{
		Name: "Leche", Source: "Aki", Price: 1.20, Quantity: 1, Unit: "lt",
	})))

	require.Eventually(t, func() bool { return products.count() == 1 },
		2*time.Second, 10*time.Millisecond, "observation should be persisted")

	saved, ok := products.byKey("Leche", "Aki")
	require.True(t, ok)
	assert.Equal(t, 1.20, saved.StandardPrice)
}

func TestConsumer_MalformedMessageDoesNotBlockNext(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	dead := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, dead, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Push(ctx, []byte("{not json")))
	require.NoError(t, q.Push(ctx, mustPayload(t, &domain.Observation{
		Name: "Leche", Source: "Aki", Price: 1.20, Quantity: 1, Unit: "lt",
	})))

	go consumer.Run(ctx)

	require.Eventually(t, func() bool { return products.count() == 1 },
		2*time.Second, 10*time.Millisecond, "valid message after a malformed one should be processed")
	assert.Equal(t, 1, dead.Len(), "malformed payload should be dead-lettered")
}

func TestConsumer_InvalidObservationIsDeadLettered(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	dead := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, dead, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Decodes fine but misses required fields.
	require.NoError(t, q.Push(ctx, []byte(`{"name":"Leche","price":1.20}`)))

	go consumer.Run(ctx)

	require.Eventually(t, func() bool { return dead.Len() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Zero(t, products.count())
}

func TestConsumer_BacksOffOnQueueFailure(t *testing.T) {
	q := &flakyQueue{inner: queue.NewMemoryQueue(16), failPops: 3}
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, nil, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Push(ctx, mustPayload(t, &domain.Observation{
		Name: "Leche", Source: "Aki", Price: 1.20, Quantity: 1, Unit: "lt",
	})))

	go consumer.Run(ctx)

	// The consumer must survive the connectivity failures and then process.
	require.Eventually(t, func() bool { return products.count() == 1 },
		2*time.Second, 10*time.Millisecond, "consumer should retry after queue failures")
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, nil, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after context cancellation")
	}
}

func TestConsumer_GateSuppressesSecondWrite(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := NewMockCacheRepository()
	gate, _ := newTestGate(cacheRepo, GateConfig{TTL: time.Hour})
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, nil, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &domain.Observation{Name: "Leche", Source: "Aki", Price: 1.20, Quantity: 1, Unit: "lt"}
	require.NoError(t, q.Push(ctx, mustPayload(t, obs)))
	require.NoError(t, q.Push(ctx, mustPayload(t, obs)))

	go consumer.Run(ctx)

	require.Eventually(t, func() bool { return q.Len() == 0 && products.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	// Allow the in-flight second message to finish before asserting.
	time.Sleep(50 * time.Millisecond)

	// One row, written once: the duplicate never reached the store.
	products.mu.Lock()
	calls := products.upsertCalls
	products.mu.Unlock()
	assert.Equal(t, 1, calls)
}

// End-to-end flow through producer, queue, gate, and reconciler using the
// real in-memory cache for TTL behavior.
func TestPipeline_EndToEnd(t *testing.T) {
	q := queue.NewMemoryQueue(16)
	products := NewMockProductRepository()
	cacheRepo := cache.NewMemoryCache()
	producer := NewProducer(q, zerolog.Nop())
	gate := NewGate(cacheRepo, GateConfig{TTL: time.Hour}, zerolog.Nop())
	reconciler := NewReconciler(products, cacheRepo, zerolog.Nop())
	consumer := NewConsumer(q, nil, gate, reconciler, testConsumerConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Run(ctx)

	// First observation inserts.
	require.NoError(t, producer.Publish(ctx, &domain.Observation{
		Name: "Leche", Source: "Aki", Price: 1.20, Quantity: 1.0, Unit: "lt",
	}))
	require.Eventually(t, func() bool {
		p, ok := products.byKey("Leche", "Aki")
		return ok && p.StandardPrice == 1.20
	}, 2*time.Second, 10*time.Millisecond)

	// A price change updates the same row.
	require.NoError(t, producer.Publish(ctx, &domain.Observation{
		Name: "Leche", Source: "Aki", Price: 1.35, Quantity: 1.0, Unit: "lt",
	}))
	require.Eventually(t, func() bool {
		p, ok := products.byKey("Leche", "Aki")
		return ok && p.StandardPrice == 1.35
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, products.count(), "price change must update in place, not insert")

	// A gram-denominated product normalizes to per-kg.
	require.NoError(t, producer.Publish(ctx, &domain.Observation{
		Name: "Arroz", Source: "Aki", Price: 2.00, Quantity: 500, Unit: "g",
	}))
	require.Eventually(t, func() bool {
		p, ok := products.byKey("Arroz", "Aki")
		return ok && p.StandardPrice == 4.00
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, products.count())
}

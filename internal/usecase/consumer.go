package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/chaniweb/backend/internal/domain"
)

// ConsumerConfig holds configuration for the queue consumer loop.
type ConsumerConfig struct {
	// PopTimeout bounds each blocking pop so the loop can re-check the
	// shutdown signal.
	PopTimeout time.Duration

	// Backoff is the fixed sleep after a queue connectivity failure.
	Backoff time.Duration
}

// Consumer is the long-running worker that drains the observation queue:
// pop, decode, gate, reconcile. It never terminates on a per-message
// failure; only context cancellation stops it.
type Consumer struct {
	queue      domain.Queue
	deadLetter domain.Queue
	gate       *Gate
	reconciler *Reconciler
	popTimeout time.Duration
	backoff    time.Duration
	log        zerolog.Logger
}

// NewConsumer creates a consumer. deadLetter receives undecodable or
// structurally invalid payloads and may be nil to drop them instead.
func NewConsumer(
	queue domain.Queue,
	deadLetter domain.Queue,
	gate *Gate,
	reconciler *Reconciler,
	cfg ConsumerConfig,
	log zerolog.Logger,
) *Consumer {
	popTimeout := cfg.PopTimeout
	if popTimeout == 0 {
		popTimeout = 5 * time.Second
	}
	backoff := cfg.Backoff
	if backoff == 0 {
		backoff = 5 * time.Second
	}
	return &Consumer{
		queue:      queue,
		deadLetter: deadLetter,
		gate:       gate,
		reconciler: reconciler,
		popTimeout: popTimeout,
		backoff:    backoff,
		log:        log.With().Str("component", "consumer").Logger(),
	}
}

// Run processes messages until ctx is canceled. Queue connectivity failures
// back off and retry forever; individual message failures are logged and
// skipped so one bad observation never halts the pipeline.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info().Dur("pop_timeout", c.popTimeout).Msg("queue consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("queue consumer stopped")
			return
		default:
		}

		payload, err := c.queue.Pop(ctx, c.popTimeout)
		if errors.Is(err, domain.ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("queue consumer stopped")
				return
			}
			c.log.Error().Err(err).Dur("backoff", c.backoff).Msg("queue pop failed, backing off")
			c.sleep(ctx)
			continue
		}

		c.process(ctx, payload)
	}
}

// process handles a single dequeued payload. Every failure path returns
// normally: the loop must survive anything one message can throw at it.
func (c *Consumer) process(ctx context.Context, payload []byte) {
	var obs domain.Observation
	if err := json.Unmarshal(payload, &obs); err != nil {
		c.log.Error().Err(err).Msg("malformed payload, dead-lettering")
		c.toDeadLetter(ctx, payload)
		return
	}
	if err := obs.Validate(); err != nil {
		c.log.Error().Err(err).Str("name", obs.Name).Str("source", obs.Source).
			Msg("invalid observation, dead-lettering")
		c.toDeadLetter(ctx, payload)
		return
	}

	admitted, err := c.gate.Admit(ctx, &obs)
	if err != nil {
		c.log.Error().Err(err).Str("name", obs.Name).Str("source", obs.Source).
			Msg("gate check failed, dropping for this cycle")
		return
	}
	if !admitted {
		c.log.Debug().Str("name", obs.Name).Str("source", obs.Source).
			Msg("skipped: unchanged within window")
		return
	}

	outcome, err := c.reconciler.Reconcile(ctx, &obs)
	if err != nil {
		c.log.Error().Err(err).Str("name", obs.Name).Str("source", obs.Source).
			Msg("reconcile failed")
		return
	}

	c.log.Info().Str("name", obs.Name).Str("source", obs.Source).
		Str("outcome", string(outcome)).Float64("price", obs.Price).
		Msg("observation persisted")
}

// toDeadLetter parks a poison payload. Retrying it would loop forever, so a
// dead-letter failure only logs and the payload is dropped.
func (c *Consumer) toDeadLetter(ctx context.Context, payload []byte) {
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.Push(ctx, payload); err != nil {
		c.log.Error().Err(err).Msg("dead-letter push failed, payload dropped")
	}
}

// sleep waits for the backoff period or until ctx is canceled.
func (c *Consumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

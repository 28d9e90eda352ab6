package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chaniweb/backend/internal/domain"
)

// Producer is the ingest boundary: it validates an observation and pushes
// it onto the work queue. Callers return immediately; persistence latency
// is the consumer's problem.
type Producer struct {
	queue domain.Queue
	log   zerolog.Logger
}

// NewProducer creates a producer publishing to queue.
func NewProducer(queue domain.Queue, log zerolog.Logger) *Producer {
	return &Producer{
		queue: queue,
		log:   log.With().Str("component", "producer").Logger(),
	}
}

// Publish validates obs and enqueues it for the consumer.
func (p *Producer) Publish(ctx context.Context, obs *domain.Observation) error {
	if obs == nil {
		return domain.ErrInvalidObservation
	}
	if err := obs.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	if err := p.queue.Push(ctx, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	p.log.Debug().Str("name", obs.Name).Str("source", obs.Source).Msg("observation enqueued")
	return nil
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/chaniweb/backend/internal/domain"
)

// gateEntry is the cached decision state for one product key.
type gateEntry struct {
	Price     float64 `json:"price"`
	LastSaved int64   `json:"last_saved"` // unix seconds
}

// GateConfig holds configuration for the duplicate/rate gate.
type GateConfig struct {
	// TTL is the duplicate-suppression window. An identical price seen
	// again within this window is not written to the store.
	TTL time.Duration

	// FailOpen controls behavior when the cache backend is unreachable:
	// true admits the observation with a warning (throughput over dedup),
	// false surfaces the error to the caller (strict dedup, default).
	FailOpen bool
}

// Gate decides whether an observation should proceed to persistence,
// suppressing repeat writes for unchanged prices within a TTL window.
// It is a best-effort control, not exactly-once: the unique constraint on
// the store is the correctness backstop for races that slip through.
type Gate struct {
	cache    domain.CacheRepository
	ttl      time.Duration
	failOpen bool
	now      func() time.Time
	log      zerolog.Logger
}

// NewGate creates a gate backed by the given cache.
func NewGate(cache domain.CacheRepository, cfg GateConfig, log zerolog.Logger) *Gate {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Gate{
		cache:    cache,
		ttl:      ttl,
		failOpen: cfg.FailOpen,
		now:      time.Now,
		log:      log.With().Str("component", "gate").Logger(),
	}
}

// Admit reports whether the observation should be persisted. Admitting has
// the side effect of writing/refreshing the cache entry for the key, so the
// next identical price within the TTL is suppressed.
//
// Observations with no usable identity or price are rejected outright and
// never touch the cache.
func (g *Gate) Admit(ctx context.Context, obs *domain.Observation) (bool, error) {
	if obs == nil || obs.Name == "" || obs.Source == "" || obs.Price <= 0 {
		return false, nil
	}

	key := obs.Key()
	nowUnix := g.now().Unix()

	cached, err := g.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrCacheMiss) {
		return g.failed(fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err))
	}

	if err == nil {
		var entry gateEntry
		if uerr := json.Unmarshal([]byte(cached), &entry); uerr == nil {
			fresh := nowUnix-entry.LastSaved < int64(g.ttl.Seconds())
			if entry.Price == obs.Price && fresh {
				// Suppressed duplicate; entry left untouched.
				return false, nil
			}
		}
		// Corrupt entry, price change, or elapsed window: fall through
		// and overwrite.
	}

	if err := g.refresh(ctx, key, obs.Price, nowUnix); err != nil {
		return g.failed(err)
	}
	return true, nil
}

func (g *Gate) refresh(ctx context.Context, key string, price float64, nowUnix int64) error {
	raw, err := json.Marshal(gateEntry{Price: price, LastSaved: nowUnix})
	if err != nil {
		return err
	}
	if err := g.cache.Set(ctx, key, string(raw), g.ttl); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// failed applies the configured failure policy for a cache outage.
func (g *Gate) failed(err error) (bool, error) {
	if g.failOpen {
		g.log.Warn().Err(err).Msg("cache unavailable, admitting without dedup")
		return true, nil
	}
	return false, err
}

package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chaniweb/backend/internal/domain"
)

// ListingCacheKey is the fixed key under which the read path caches the
// whole product listing. The reconciler deletes it after every committed
// write so readers never see a stale listing longer than its own TTL.
const ListingCacheKey = "products:listing"

// Reconciler upserts gate-approved observations into the canonical store
// and invalidates the aggregate read cache on success.
type Reconciler struct {
	products domain.ProductRepository
	cache    domain.CacheRepository
	log      zerolog.Logger
}

// NewReconciler creates a reconciler writing to products and invalidating
// the read cache in cache.
func NewReconciler(products domain.ProductRepository, cache domain.CacheRepository, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		products: products,
		cache:    cache,
		log:      log.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile upserts the observation by its (name, source) natural key:
// insert on first sight, in-place update of price/quantity/unit and the
// recomputed standard price otherwise. The store performs the upsert
// atomically, so a concurrent insert for the same key resolves at the
// unique constraint rather than producing a duplicate row.
//
// A read-cache invalidation failure is logged and swallowed: the stale
// listing is bounded by the read cache's TTL.
func (r *Reconciler) Reconcile(ctx context.Context, obs *domain.Observation) (domain.UpsertOutcome, error) {
	p := &domain.Product{
		ExternalID:    strings.TrimSpace(obs.ExternalID),
		Name:          strings.TrimSpace(obs.Name),
		Source:        strings.TrimSpace(obs.Source),
		Price:         obs.Price,
		Quantity:      obs.Quantity,
		Unit:          strings.ToLower(strings.TrimSpace(obs.Unit)),
		ImageURL:      strings.TrimSpace(obs.ImageURL),
		StandardPrice: StandardPrice(obs.Price, obs.Quantity, obs.Unit),
		UpdatedAt:     time.Now(),
	}

	outcome, err := r.products.Upsert(ctx, p)
	if err != nil {
		return "", err
	}

	if err := r.cache.Delete(ctx, ListingCacheKey); err != nil {
		r.log.Warn().Err(err).Str("key", ListingCacheKey).Msg("read cache invalidation failed")
	}

	return outcome, nil
}

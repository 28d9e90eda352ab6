package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/chaniweb/backend/internal/domain"
)

// ListingConfig holds configuration for the read path.
type ListingConfig struct {
	// CacheTTL bounds how stale the cached listing may get if an
	// invalidation is missed.
	CacheTTL time.Duration
}

// ListingService serves the current product listing, cache-first.
// Flow: check cache -> query store -> cache -> return.
type ListingService struct {
	products domain.ProductRepository
	cache    domain.CacheRepository
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewListingService creates a listing service with dependencies.
func NewListingService(
	products domain.ProductRepository,
	cache domain.CacheRepository,
	cfg ListingConfig,
	log zerolog.Logger,
) *ListingService {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	return &ListingService{
		products: products,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With().Str("component", "listing").Logger(),
	}
}

// List returns all canonical records with their standard prices. Results
// come from the aggregate read cache when present; a miss falls through to
// the store and repopulates the cache.
func (s *ListingService) List(ctx context.Context) ([]domain.Product, error) {
	if cached, err := s.cache.Get(ctx, ListingCacheKey); err == nil {
		var products []domain.Product
		if uerr := json.Unmarshal([]byte(cached), &products); uerr == nil {
			return products, nil
		}
		// Corrupt cache entry: treat as a miss and rebuild below.
	}

	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, ListingCacheKey, string(raw), s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("listing cache population failed")
		}
	}

	return products, nil
}

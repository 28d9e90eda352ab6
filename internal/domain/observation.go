package domain

import (
	"fmt"
	"strings"
)

// Observation is one incoming price reading for a product from a source,
// as pushed onto the work queue by the scraping pipeline. It is transient:
// approved observations are reconciled into a Product, never stored as-is.
type Observation struct {
	ExternalID string  `json:"external_id,omitempty"`
	Name       string  `json:"name"`
	Source     string  `json:"source"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// Validate checks structural field presence. It does not validate business
// semantics beyond what the pipeline requires to identify and price a product.
func (o *Observation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidObservation)
	}
	if strings.TrimSpace(o.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidObservation)
	}
	if o.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidObservation)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidObservation)
	}
	if strings.TrimSpace(o.Unit) == "" {
		return fmt.Errorf("%w: missing unit", ErrInvalidObservation)
	}
	return nil
}

// Key returns the natural identity of the observation: the (name, source)
// pair, normalized. The gate and the store's unique index both key on this,
// so a product is identified the same way across the whole pipeline.
func (o *Observation) Key() string {
	name := strings.ToLower(strings.TrimSpace(o.Name))
	source := strings.ToLower(strings.TrimSpace(o.Source))
	return fmt.Sprintf("product:%s|%s", name, source)
}

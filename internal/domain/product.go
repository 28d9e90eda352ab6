package domain

import "time"

// Product is the canonical persisted record for a product+retailer pair.
// Unique on (name, source); price and standard_price are updated in place
// on every approved observation for the same pair.
type Product struct {
	ID            int64     `json:"id"`
	ExternalID    string    `json:"external_id,omitempty"`
	Name          string    `json:"name"`
	Source        string    `json:"source"` // e.g. "Supermaxi", "Aki"
	Price         float64   `json:"price"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"` // kg, gr, g, lt, ml
	ImageURL      string    `json:"image_url,omitempty"`
	StandardPrice float64   `json:"standard_price"` // per kg / per liter, derived
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpsertOutcome reports whether a reconciled observation created a new
// record or updated an existing one.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
)

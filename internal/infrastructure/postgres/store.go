// Package postgres implements canonical record persistence on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaniweb/backend/internal/domain"
)

// Store implements domain.ProductRepository on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool to the given DSN and verifies reachability.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool (tests, shared pools).
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the products table and its natural-key unique index
// if they do not exist. The unique index on (name, source) is the
// correctness backstop for concurrent consumers: duplicate-insert races
// resolve here, not at the gate.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id             BIGSERIAL PRIMARY KEY,
			external_id    TEXT,
			name           TEXT NOT NULL,
			source         TEXT NOT NULL,
			price          DOUBLE PRECISION NOT NULL,
			quantity       DOUBLE PRECISION NOT NULL,
			unit           TEXT NOT NULL,
			image_url      TEXT,
			standard_price DOUBLE PRECISION NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (name, source)
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts p or updates the row with the same (name, source) key in a
// single transaction. The conflict clause makes concurrent first-inserts
// for the same key converge on one row: the loser's insert becomes an
// update instead of a constraint failure.
//
// Price, quantity, unit, and standard_price always refresh together since
// the standard price derives from all three. external_id and image_url only
// refresh when the observation supplied a value.
func (s *Store) Upsert(ctx context.Context, p *domain.Product) (domain.UpsertOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var inserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO products AS pr
			(external_id, name, source, price, quantity, unit, image_url, standard_price, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (name, source) DO UPDATE SET
			price          = EXCLUDED.price,
			quantity       = EXCLUDED.quantity,
			unit           = EXCLUDED.unit,
			standard_price = EXCLUDED.standard_price,
			external_id    = COALESCE(NULLIF(EXCLUDED.external_id, ''), pr.external_id),
			image_url      = COALESCE(NULLIF(EXCLUDED.image_url, ''), pr.image_url),
			updated_at     = EXCLUDED.updated_at
		RETURNING id, (xmax = 0)`,
		p.ExternalID, p.Name, p.Source, p.Price, p.Quantity, p.Unit,
		p.ImageURL, p.StandardPrice, p.UpdatedAt,
	).Scan(&p.ID, &inserted)
	if err != nil {
		return "", fmt.Errorf("upsert product %q/%q: %w", p.Name, p.Source, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}

	if inserted {
		return domain.OutcomeInserted, nil
	}
	return domain.OutcomeUpdated, nil
}

// List returns all canonical records in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(external_id, ''), name, source, price, quantity,
		       unit, COALESCE(image_url, ''), standard_price, updated_at
		FROM products
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Source, &p.Price,
			&p.Quantity, &p.Unit, &p.ImageURL, &p.StandardPrice, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return products, nil
}

// Ping reports backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

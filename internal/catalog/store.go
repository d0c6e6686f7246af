// Package catalog resolves products and modifiers against the menu
// tables. Lookups always hit the database so orders price against the
// catalog as it is at call time, never a stale copy.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"burger-pos/internal/database"
	"burger-pos/internal/models"
)

// Store reads products and modifiers. It never writes.
type Store struct {
	db *database.DB
}

// NewStore creates a catalog store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// GetProduct fetches a product by id. A missing product maps to
// ErrProductUnavailable: from the order engine's point of view a product
// that does not exist and one that is flagged unavailable fail the same
// way.
func (s *Store) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRow(ctx, database.GetProductSQL, id).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.IsAvailable,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, models.ErrProductUnavailable)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	return &p, nil
}

// GetModifier fetches a modifier by id.
func (s *Store) GetModifier(ctx context.Context, id int) (*models.Modifier, error) {
	var m models.Modifier
	err := s.db.QueryRow(ctx, database.GetModifierSQL, id).Scan(
		&m.ID,
		&m.Name,
		&m.Price,
		&m.Type,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("modifier %d: %w", id, models.ErrModifierNotFound)
		}
		return nil, fmt.Errorf("failed to fetch modifier %d: %w", id, err)
	}
	return &m, nil
}

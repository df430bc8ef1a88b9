package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tkhr/ecopoints/internal/models"
)

// SeedItems inserts the default catalog entries that are not already present.
// Existing items keep their price; seeding never overwrites them.
func (s *SQLiteStore) SeedItems(ctx context.Context, defaults []models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range defaults {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO items (id, name, price_points) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING",
			uuid.New().String(), item.Name, item.PricePoints,
		)
		if err != nil {
			return fmt.Errorf("failed to seed item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetItemByName retrieves a catalog item by its unique name.
func (s *SQLiteStore) GetItemByName(ctx context.Context, name string) (*models.Item, error) {
	item := &models.Item{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price_points FROM items WHERE name = ?",
		name,
	).Scan(&item.ID, &item.Name, &item.PricePoints)

	if err == sql.ErrNoRows {
		return nil, nil // Item not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// ListItems returns the full catalog in insertion order.
func (s *SQLiteStore) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price_points FROM items ORDER BY rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item := &models.Item{}
		if err := rows.Scan(&item.ID, &item.Name, &item.PricePoints); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

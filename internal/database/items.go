package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"
)

const itemColumns = `id, owner_id, name, size, color, category, price_per_day, available, version, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, size, color, category, price_per_day, available, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	now := time.Now().UTC()
	result, err := db.conn(ctx).ExecContext(ctx, query,
		item.OwnerID,
		item.Name,
		item.Size,
		item.Color,
		item.Category,
		item.PricePerDay,
		item.Available,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// UpsertItem inserts a seeded item with a fixed id, or refreshes its catalog
// fields. Availability of an existing row is left alone.
func (db *DB) UpsertItem(ctx context.Context, item *models.Item) error {
	if item.ID == 0 {
		return db.CreateItem(ctx, item)
	}
	query := `INSERT INTO items (id, owner_id, name, size, color, category, price_per_day, available, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                owner_id = excluded.owner_id,
                name = excluded.name,
                size = excluded.size,
                color = excluded.color,
                category = excluded.category,
                price_per_day = excluded.price_per_day,
                updated_at = excluded.updated_at`
	now := time.Now().UTC()
	_, err := db.conn(ctx).ExecContext(ctx, query,
		item.ID,
		item.OwnerID,
		item.Name,
		item.Size,
		item.Color,
		item.Category,
		item.PricePerDay,
		item.Available,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %d: %w", item.ID, err)
	}
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	rows, err := db.conn(ctx).QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReserveItem is a compare-and-swap on the availability flag: only the caller
// that sees available=1 flips it.
func (db *DB) ReserveItem(ctx context.Context, id int64) error {
	return db.swapAvailability(ctx, id, true, false)
}

func (db *DB) ReleaseItem(ctx context.Context, id int64) error {
	return db.swapAvailability(ctx, id, false, true)
}

func (db *DB) swapAvailability(ctx context.Context, id int64, from, to bool) error {
	q := db.conn(ctx)
	res, err := q.ExecContext(ctx,
		`UPDATE items SET available = ?, version = version + 1, updated_at = ? WHERE id = ? AND available = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update item availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}
	if to {
		// releasing an already-available item
		if !exists {
			return fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: item %d is already available", domain.ErrInvalidState, id)
	}
	if !exists {
		return fmt.Errorf("%w: item %d does not exist", domain.ErrUnavailable, id)
	}
	return fmt.Errorf("%w: item %d is booked", domain.ErrUnavailable, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Name,
		&item.Size,
		&item.Color,
		&item.Category,
		&item.PricePerDay,
		&item.Available,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

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

const bookingSelect = `SELECT b.id, b.renter_id, b.item_id, i.owner_id, i.name, b.start_date, b.end_date, b.status,
       r.id, b.created_at, b.updated_at, b.version
  FROM bookings b
  JOIN items i ON i.id = b.item_id
  LEFT JOIN returns r ON r.booking_id = b.id`

// CreateBooking inserts an active booking. The partial unique index on
// bookings(item_id) rejects a second active booking for the same item.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (renter_id, item_id, start_date, end_date, status, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
	now := time.Now().UTC()
	result, err := db.conn(ctx).ExecContext(ctx, query,
		booking.RenterID,
		booking.ItemID,
		booking.StartDate,
		booking.EndDate,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		if uniqueViolationOn(err, "bookings.item_id") {
			return fmt.Errorf("%w: item %d already has an active booking", domain.ErrUnavailable, booking.ItemID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.conn(ctx).QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?`
	result, err := db.conn(ctx).ExecContext(ctx, query, status, time.Now().UTC(), id, version)
	if err != nil {
		if uniqueViolationOn(err, "bookings.item_id") {
			return fmt.Errorf("%w: item already has an active booking", domain.ErrUnavailable)
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) ListBookingsByRenter(ctx context.Context, renterID int64) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+` WHERE b.renter_id = ? ORDER BY b.created_at DESC, b.id DESC`, renterID)
}

func (db *DB) ListBookingsByOwner(ctx context.Context, ownerID int64) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+` WHERE i.owner_id = ? ORDER BY b.created_at DESC, b.id DESC`, ownerID)
}

// ListOverdueBookings returns bookings still out with the renter whose end
// date is before endedBefore.
func (db *DB) ListOverdueBookings(ctx context.Context, endedBefore time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		bookingSelect+` WHERE b.status = ? AND b.end_date < ? ORDER BY b.end_date ASC`,
		models.BookingStatusBooked, endedBefore.UTC())
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+` ORDER BY b.id`)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b        models.Booking
		returnID sql.NullInt64
	)
	err := row.Scan(
		&b.ID,
		&b.RenterID,
		&b.ItemID,
		&b.OwnerID,
		&b.ItemName,
		&b.StartDate,
		&b.EndDate,
		&b.Status,
		&returnID,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	if returnID.Valid {
		id := returnID.Int64
		b.ReturnID = &id
	}
	return &b, nil
}

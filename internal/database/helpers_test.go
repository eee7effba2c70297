package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wardrobe/internal/models"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "wardrobe.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedItem(t *testing.T, db *DB, ownerID int64, name string) *models.Item {
	t.Helper()
	item := &models.Item{OwnerID: ownerID, Name: name, Size: "M", Available: true}
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item
}

func seedBooking(t *testing.T, db *DB, item *models.Item, renterID int64) *models.Booking {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		RenterID:  renterID,
		ItemID:    item.ID,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 3),
		Status:    models.BookingStatusBooked,
	}
	require.NoError(t, db.WithTx(ctx, func(ctx context.Context) error {
		if err := db.ReserveItem(ctx, item.ID); err != nil {
			return err
		}
		return db.CreateBooking(ctx, booking)
	}))
	return booking
}

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReservationsSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	item := seedItem(t, db, 1, "Evening gown")

	const renters = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		errs      []error
	)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < renters; i++ {
		wg.Add(1)
		go func(renterID int64) {
			defer wg.Done()
			err := db.WithTx(context.Background(), func(ctx context.Context) error {
				if err := db.ReserveItem(ctx, item.ID); err != nil {
					return err
				}
				return db.CreateBooking(ctx, &models.Booking{
					RenterID:  renterID,
					ItemID:    item.ID,
					StartDate: start,
					EndDate:   start.AddDate(0, 0, 2),
					Status:    models.BookingStatusBooked,
				})
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			errs = append(errs, err)
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, errs, renters-1)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	}

	bookings, err := db.ListBookings(context.Background())
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	got, err := db.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)
}

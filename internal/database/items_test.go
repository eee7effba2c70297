package database

import (
	"context"
	"testing"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := seedItem(t, db, 7, "Silk dress")
	assert.NotZero(t, item.ID)
	assert.Equal(t, int64(1), item.Version)

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silk dress", got.Name)
	assert.True(t, got.Available)

	seedItem(t, db, 7, "Wool coat")
	seedItem(t, db, 8, "Tuxedo")
	owned, err := db.ListItemsByOwner(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	_, err = db.GetItem(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertItemKeepsAvailability(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := &models.Item{ID: 42, OwnerID: 1, Name: "Blazer", Available: true}
	require.NoError(t, db.UpsertItem(ctx, item))
	require.NoError(t, db.ReserveItem(ctx, 42))

	item.Name = "Linen blazer"
	item.Available = true
	require.NoError(t, db.UpsertItem(ctx, item))

	got, err := db.GetItem(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Linen blazer", got.Name)
	assert.False(t, got.Available)
}

func TestReserveAndReleaseItem(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, 1, "Gown")

	require.NoError(t, db.ReserveItem(ctx, item.ID))
	err := db.ReserveItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, db.ReleaseItem(ctx, item.ID))
	err = db.ReleaseItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.ErrorIs(t, db.ReserveItem(ctx, 999), domain.ErrUnavailable)
	assert.ErrorIs(t, db.ReleaseItem(ctx, 999), domain.ErrNotFound)
}

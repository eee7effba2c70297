package service

import (
	"context"
	"testing"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := domain.Owner{ID: 1}

	_, err := env.items.CreateItem(ctx, owner, &models.Item{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	item, err := env.items.CreateItem(ctx, owner, &models.Item{Name: "Linen shirt", OwnerID: 99, Available: false, PricePerDay: 150})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, item.OwnerID)
	assert.True(t, item.Available)

	mine, err := env.items.ListForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestSeedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seed := []models.Item{
		{ID: 100, OwnerID: 1, Name: "Ball gown", Available: true},
		{ID: 101, OwnerID: 1, Name: "Top hat", Available: true},
	}
	require.NoError(t, env.items.SeedItems(ctx, seed))
	require.NoError(t, env.items.SeedItems(ctx, seed))

	item, err := env.items.GetItem(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "Top hat", item.Name)

	err = env.items.SeedItems(ctx, []models.Item{{ID: 102, Name: "orphan"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

package repository

import (
	"context"
	"testing"
	"time"

	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRequestStateRepository(t *testing.T) {
	repo := NewMemoryRequestStateRepository()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "renter:1", 2, time.Second)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, _ := repo.CheckRateLimit(ctx, "renter:1", 2, time.Second)
		assert.False(t, allowed)

		other, _ := repo.CheckRateLimit(ctx, "renter:2", 2, time.Second)
		assert.True(t, other)

		now = now.Add(2 * time.Second)
		allowed, _ = repo.CheckRateLimit(ctx, "renter:1", 2, time.Second)
		assert.True(t, allowed)
	})

	t.Run("Idempotency", func(t *testing.T) {
		got, err := repo.GetIdempotent(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, got)

		resp := &models.IdempotentResponse{Key: "k1", StatusCode: 201, Body: []byte(`{"id":1}`)}
		require.NoError(t, repo.SaveIdempotent(ctx, resp, time.Minute))

		got, err = repo.GetIdempotent(ctx, "k1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 201, got.StatusCode)

		now = now.Add(2 * time.Minute)
		got, err = repo.GetIdempotent(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

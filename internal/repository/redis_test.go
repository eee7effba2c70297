package repository

import (
	"context"
	"testing"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRequestStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisRequestStateRepository(client)
	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	t.Run("RateLimitWindow", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, "owner:7", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, "owner:7", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.True(t, s.TTL(rateLimitPrefix+"owner:7") > 0)

		s.FastForward(2 * time.Minute)
		allowed, err = repo.CheckRateLimit(ctx, "owner:7", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("IdempotentRoundTrip", func(t *testing.T) {
		got, err := repo.GetIdempotent(ctx, "renter:1:abc")
		require.NoError(t, err)
		assert.Nil(t, got)

		resp := &models.IdempotentResponse{
			Key:        "renter:1:abc",
			StatusCode: 201,
			Body:       []byte(`{"id":42}`),
			StoredAt:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, repo.SaveIdempotent(ctx, resp, time.Hour))

		got, err = repo.GetIdempotent(ctx, "renter:1:abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 201, got.StatusCode)
		assert.JSONEq(t, `{"id":42}`, string(got.Body))

		s.FastForward(2 * time.Hour)
		got, err = repo.GetIdempotent(ctx, "renter:1:abc")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

}

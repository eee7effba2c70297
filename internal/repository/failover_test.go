package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"wardrobe/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) GetIdempotent(ctx context.Context, key string) (*models.IdempotentResponse, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IdempotentResponse), args.Error(1)
}

func (m *mockRepo) SaveIdempotent(ctx context.Context, resp *models.IdempotentResponse, ttl time.Duration) error {
	return m.Called(ctx, resp, ttl).Error(0)
}

func TestFailoverRequestStateRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverRequestStateRepository(primary, fallback, &logger)
	ctx := context.Background()

	markDown := func(since time.Duration) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-since)
	}

	t.Run("PrimarySuccess", func(t *testing.T) {
		resp := &models.IdempotentResponse{Key: "a"}
		primary.On("GetIdempotent", ctx, "a").Return(resp, nil).Once()

		got, err := repo.GetIdempotent(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, resp, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		markDown(0)
		resp := &models.IdempotentResponse{Key: "b"}
		fallback.On("SaveIdempotent", ctx, resp, time.Hour).Return(nil).Once()

		assert.NoError(t, repo.SaveIdempotent(ctx, resp, time.Hour))
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "SaveIdempotent", ctx, resp, time.Hour)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		markDown(2 * time.Minute)
		primary.On("GetIdempotent", ctx, "c").Return(nil, nil).Once()

		got, err := repo.GetIdempotent(ctx, "c")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		markDown(2 * time.Minute)
		primary.On("GetIdempotent", ctx, "d").Return(nil, errors.New("still down")).Once()
		fallback.On("GetIdempotent", ctx, "d").Return(nil, nil).Once()

		_, err := repo.GetIdempotent(ctx, "d")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRequestStateRepository serves from primary until it fails, then
// from fallback, probing primary again once per recovery interval.
type FailoverRequestStateRepository struct {
	primary  domain.RequestStateRepository
	fallback domain.RequestStateRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverRequestStateRepository(primary, fallback domain.RequestStateRepository, logger *zerolog.Logger) *FailoverRequestStateRepository {
	return &FailoverRequestStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "request_state"),
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverRequestStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverRequestStateRepository) observe(err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("primary request state store recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("primary request state store failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverRequestStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

func (r *FailoverRequestStateRepository) GetIdempotent(ctx context.Context, key string) (*models.IdempotentResponse, error) {
	if r.usePrimary() {
		resp, err := r.primary.GetIdempotent(ctx, key)
		r.observe(err)
		if err == nil {
			return resp, nil
		}
	}
	return r.fallback.GetIdempotent(ctx, key)
}

func (r *FailoverRequestStateRepository) SaveIdempotent(ctx context.Context, resp *models.IdempotentResponse, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SaveIdempotent(ctx, resp, ttl)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SaveIdempotent(ctx, resp, ttl)
}

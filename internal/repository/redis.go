package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix   = "rate_limit:"
	idempotencyPrefix = "idempotency:"
)

// RedisRequestStateRepository keeps rate-limit windows and idempotent
// responses in Redis so they are shared across API instances.
type RedisRequestStateRepository struct {
	client *redis.Client
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisRequestStateRepository(client *redis.Client) *RedisRequestStateRepository {
	return &RedisRequestStateRepository{client: client}
}

// CheckRateLimit counts a hit for key in a fixed window and reports whether
// the caller is still within limit.
func (r *RedisRequestStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client is nil")
	}
	redisKey := rateLimitPrefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// GetIdempotent returns the stored response for key, or nil when absent.
func (r *RedisRequestStateRepository) GetIdempotent(ctx context.Context, key string) (*models.IdempotentResponse, error) {
	if r.client == nil {
		return nil, errors.New("redis client is nil")
	}
	val, err := r.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotent response: %w", err)
	}

	var resp models.IdempotentResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotent response: %w", err)
	}
	return &resp, nil
}

func (r *RedisRequestStateRepository) SaveIdempotent(ctx context.Context, resp *models.IdempotentResponse, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotent response: %w", err)
	}
	if err := r.client.Set(ctx, idempotencyPrefix+resp.Key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

package repository

import (
	"context"
	"sync"
	"time"

	"wardrobe/internal/models"
)

// MemoryRequestStateRepository is the single-process fallback used while
// Redis is unreachable.
type MemoryRequestStateRepository struct {
	mu          sync.Mutex
	rateLimits  map[string]*rateLimitEntry
	idempotency map[string]idempotentEntry
	now         func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

type idempotentEntry struct {
	resp      models.IdempotentResponse
	expiresAt time.Time
}

func NewMemoryRequestStateRepository() *MemoryRequestStateRepository {
	return &MemoryRequestStateRepository{
		rateLimits:  make(map[string]*rateLimitEntry),
		idempotency: make(map[string]idempotentEntry),
		now:         time.Now,
	}
}

func (r *MemoryRequestStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func (r *MemoryRequestStateRepository) GetIdempotent(_ context.Context, key string) (*models.IdempotentResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.idempotency[key]
	if !ok {
		return nil, nil
	}
	if r.now().After(entry.expiresAt) {
		delete(r.idempotency, key)
		return nil, nil
	}
	resp := entry.resp
	return &resp, nil
}

func (r *MemoryRequestStateRepository) SaveIdempotent(_ context.Context, resp *models.IdempotentResponse, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.idempotency[resp.Key] = idempotentEntry{resp: *resp, expiresAt: r.now().Add(ttl)}
	return nil
}

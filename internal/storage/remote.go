package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/logging"
	"wardrobe/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const breakerName = "photo_store"

// ErrStoreUnavailable is returned while the breaker rejects calls.
var ErrStoreUnavailable = errors.New("photo store unavailable")

type remoteUploadResponse struct {
	URL string `json:"url"`
}

// RemoteStore uploads photos to an HTTP object store as multipart
// "file" parts. Calls go through a circuit breaker.
type RemoteStore struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	url     string
	prefix  string
	maxSize int64
	newID   func() string
	logger  *zerolog.Logger
}

func NewRemoteStore(url, prefix string, maxSize int64, timeout time.Duration, logger *zerolog.Logger) *RemoteStore {
	log := logging.Component(logger, "photo_store")
	s := &RemoteStore{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0),
		url:     url,
		prefix:  prefix,
		maxSize: maxSize,
		newID:   uuid.NewString,
		logger:  log,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, stateValue(to))
			log.Warn().Str("circuit", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	metrics.SetBreakerState(breakerName, 0)
	return s
}

// State reports the breaker state name.
func (s *RemoteStore) State() string {
	return s.breaker.State().String()
}

func (s *RemoteStore) Save(ctx context.Context, upload domain.PhotoUpload) (string, error) {
	if err := ValidateUpload(upload, s.maxSize); err != nil {
		return "", err
	}

	limit := s.maxSize + 1
	if s.maxSize <= 0 {
		limit = 1<<63 - 1
	}
	data, err := io.ReadAll(io.LimitReader(upload.Body, limit))
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, upload.FileName, s.maxSize)
	}

	name := objectName(s.newID(), upload.FileName)
	result, err := s.breaker.Execute(func() (interface{}, error) {
		var out remoteUploadResponse
		resp, err := s.client.R().
			SetContext(ctx).
			SetFileReader("file", name, bytes.NewReader(data)).
			SetFormData(map[string]string{"content_type": upload.ContentType}).
			SetResult(&out).
			Post(s.url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("remote store returned %d", resp.StatusCode())
		}
		return out, nil
	})
	if err != nil {
		metrics.IncPhotoUpload("remote", false)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	metrics.IncPhotoUpload("remote", true)
	if out := result.(remoteUploadResponse); out.URL != "" {
		return out.URL, nil
	}
	return joinURL(s.prefix, name), nil
}

func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wardrobe/internal/domain"
	"wardrobe/internal/logging"
	"wardrobe/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStore writes photos under a directory served at prefix.
type LocalStore struct {
	dir     string
	prefix  string
	maxSize int64
	newID   func() string
	logger  *zerolog.Logger
}

func NewLocalStore(dir, prefix string, maxSize int64, logger *zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		prefix:  prefix,
		maxSize: maxSize,
		newID:   uuid.NewString,
		logger:  logging.Component(logger, "photo_store"),
	}, nil
}

// Dir is the directory holding stored photos.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, upload domain.PhotoUpload) (string, error) {
	if err := ValidateUpload(upload, s.maxSize); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(s.newID(), upload.FileName)
	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		metrics.IncPhotoUpload("local", false)
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}

	written, err := io.Copy(file, io.LimitReader(upload.Body, s.limit()))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, upload.FileName, s.maxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		metrics.IncPhotoUpload("local", false)
		return "", err
	}

	metrics.IncPhotoUpload("local", true)
	s.logger.Debug().Str("file", name).Int64("bytes", written).Msg("photo stored")
	return joinURL(s.prefix, name), nil
}

// limit reads one byte past maxSize so oversize bodies are detected.
func (s *LocalStore) limit() int64 {
	if s.maxSize <= 0 {
		return 1<<63 - 1
	}
	return s.maxSize + 1
}

package storage

import (
	"fmt"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/domain"

	"github.com/rs/zerolog"
)

// New builds the photo store selected by cfg.Backend.
func New(cfg config.StorageConfig, logger *zerolog.Logger) (domain.PhotoStore, error) {
	maxSize := int64(cfg.MaxFileSizeMB) << 20
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.LocalPath, cfg.PublicPrefix, maxSize, logger)
	case "remote":
		return NewRemoteStore(cfg.RemoteURL, cfg.PublicPrefix, maxSize, time.Duration(cfg.TimeoutSeconds)*time.Second, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

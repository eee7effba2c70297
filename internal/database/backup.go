package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wardrobe/internal/config"

	"github.com/rs/zerolog"
)

// BackupService snapshots the live database with VACUUM INTO. It is driven by
// the scheduler rather than its own ticker.
type BackupService struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &BackupService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Run takes one snapshot and prunes expired ones.
func (s *BackupService) Run(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	path, err := s.PerformBackup(ctx)
	if err != nil {
		return err
	}
	removed := s.CleanupOldBackups()
	s.logger.Info().Str("path", path).Int("removed", removed).Msg("backup completed")
	return nil
}

func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405.000")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("wardrobe_%s.db", timestamp))

	// VACUUM INTO takes a literal, not a bound parameter
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}
	return backupPath, nil
}

// CleanupOldBackups removes snapshots older than the retention window and
// returns how many were deleted.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read backup directory for cleanup")
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".db" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed
}

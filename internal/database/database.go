package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// sqlite pragmas: enforce FKs, let readers run beside the writer, wait on a
// locked database instead of failing, and take the write lock at BEGIN so
// read-then-write transactions serialize.
const dsnOptions = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path+"?"+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db := newWithConn(sqlDB, logger)
	db.path = path
	db.logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

func newWithConn(sqlDB *sql.DB, logger *zerolog.Logger) *DB {
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &DB{DB: sqlDB, logger: logger}
}

// Path returns the sqlite file backing the store.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            owner_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            size TEXT NOT NULL DEFAULT '',
            color TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            price_per_day INTEGER NOT NULL DEFAULT 0,
            available BOOLEAN NOT NULL DEFAULT 1,
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            renter_id INTEGER NOT NULL,
            item_id INTEGER NOT NULL REFERENCES items(id),
            start_date DATETIME NOT NULL,
            end_date DATETIME NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('booked', 'returning', 'returned', 'cancelled')),
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS returns (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL UNIQUE REFERENCES bookings(id),
            item_id INTEGER NOT NULL REFERENCES items(id),
            renter_id INTEGER NOT NULL,
            owner_id INTEGER NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('pending', 'under_review', 'approved', 'disputed', 'resolved')),
            renter_assessment TEXT NOT NULL,
            owner_inspection TEXT,
            resolution TEXT,
            return_initiated_at DATETIME NOT NULL,
            return_completed_at DATETIME,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS return_photos (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            return_id INTEGER NOT NULL REFERENCES returns(id),
            kind TEXT NOT NULL CHECK (kind IN ('return', 'damage')),
            url TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            uploaded_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            entity_id INTEGER NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		// at most one booked/returning booking per item
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_item ON bookings(item_id) WHERE status IN ('booked', 'returning')`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_renter_id ON bookings(renter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_end ON bookings(status, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_owner_id ON returns(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_renter_id ON returns(renter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_returns_status ON returns(status)`,
		`CREATE INDEX IF NOT EXISTS idx_return_photos_return_id ON return_photos(return_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

package database

import (
	"errors"
	"fmt"
	"strings"

	"wardrobe/internal/domain"

	"github.com/mattn/go-sqlite3"
)

// ErrConcurrentModification is returned when a versioned update finds the row
// already changed by someone else.
var ErrConcurrentModification = fmt.Errorf("%w: record was modified concurrently", domain.ErrInvalidState)

// uniqueViolationOn reports whether err is a sqlite UNIQUE failure on column,
// e.g. "returns.booking_id".
func uniqueViolationOn(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return strings.Contains(sqliteErr.Error(), column)
}

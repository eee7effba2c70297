package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"
)

const returnColumns = `id, booking_id, item_id, renter_id, owner_id, status, renter_assessment, owner_inspection,
       resolution, return_initiated_at, return_completed_at, created_at, updated_at, version`

// CreateReturn stores the return and its initial photos. returns.booking_id
// is unique, so a second return for the same booking fails with ErrDuplicate.
func (db *DB) CreateReturn(ctx context.Context, ret *models.Return) error {
	assessment, err := json.Marshal(ret.RenterAssessment)
	if err != nil {
		return fmt.Errorf("failed to encode renter assessment: %w", err)
	}

	now := time.Now().UTC()
	if ret.ReturnInitiatedAt.IsZero() {
		ret.ReturnInitiatedAt = now
	}
	query := `INSERT INTO returns (booking_id, item_id, renter_id, owner_id, status, renter_assessment,
                                   return_initiated_at, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	result, err := db.conn(ctx).ExecContext(ctx, query,
		ret.BookingID,
		ret.ItemID,
		ret.RenterID,
		ret.OwnerID,
		ret.Status,
		string(assessment),
		ret.ReturnInitiatedAt.UTC(),
		now,
		now,
	)
	if err != nil {
		if uniqueViolationOn(err, "returns.booking_id") {
			return fmt.Errorf("%w: return for booking %d", domain.ErrDuplicate, ret.BookingID)
		}
		return fmt.Errorf("failed to create return: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	ret.ID = id
	ret.CreatedAt = now
	ret.UpdatedAt = now
	ret.Version = 1

	return db.insertPhotos(ctx, id, models.PhotoKindReturn, ret.Photos)
}

func (db *DB) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+returnColumns+` FROM returns WHERE id = ?`, id)
	ret, err := scanReturn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: return %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	if err := db.loadPhotos(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (db *DB) GetReturnByBooking(ctx context.Context, bookingID int64) (*models.Return, error) {
	row := db.conn(ctx).QueryRowContext(ctx, `SELECT `+returnColumns+` FROM returns WHERE booking_id = ?`, bookingID)
	ret, err := scanReturn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: return for booking %d", domain.ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return by booking: %w", err)
	}
	if err := db.loadPhotos(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (db *DB) ListReturnsByRenter(ctx context.Context, renterID int64) ([]*models.Return, error) {
	return db.queryReturns(ctx, `SELECT `+returnColumns+` FROM returns WHERE renter_id = ? ORDER BY created_at DESC, id DESC`, renterID)
}

func (db *DB) ListReturnsByOwner(ctx context.Context, ownerID int64) ([]*models.Return, error) {
	return db.queryReturns(ctx, `SELECT `+returnColumns+` FROM returns WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
}

func (db *DB) ListReturnsByStatus(ctx context.Context, status string) ([]*models.Return, error) {
	return db.queryReturns(ctx, `SELECT `+returnColumns+` FROM returns WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
}

func (db *DB) ListReturns(ctx context.Context) ([]*models.Return, error) {
	return db.queryReturns(ctx, `SELECT `+returnColumns+` FROM returns ORDER BY id`)
}

// AddReturnPhotos appends photos of the given kind to a return.
func (db *DB) AddReturnPhotos(ctx context.Context, returnID int64, kind string, photos []models.Photo) error {
	return db.insertPhotos(ctx, returnID, kind, photos)
}

// UpdateReturnWithVersion writes the mutable part of a return. Damage photos
// live in return_photos and are not written here.
func (db *DB) UpdateReturnWithVersion(ctx context.Context, ret *models.Return) error {
	var inspection, resolution sql.NullString
	if ret.OwnerInspection != nil {
		stored := *ret.OwnerInspection
		stored.DamageReport.DamagePhotos = nil
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to encode owner inspection: %w", err)
		}
		inspection = sql.NullString{String: string(data), Valid: true}
	}
	if ret.Resolution != nil {
		data, err := json.Marshal(ret.Resolution)
		if err != nil {
			return fmt.Errorf("failed to encode resolution: %w", err)
		}
		resolution = sql.NullString{String: string(data), Valid: true}
	}

	var completedAt any
	if ret.ReturnCompletedAt != nil {
		completedAt = ret.ReturnCompletedAt.UTC()
	}

	now := time.Now().UTC()
	query := `UPDATE returns
                 SET status = ?, owner_inspection = ?, resolution = ?, return_completed_at = ?,
                     updated_at = ?, version = version + 1
               WHERE id = ? AND version = ?`
	result, err := db.conn(ctx).ExecContext(ctx, query,
		ret.Status,
		inspection,
		resolution,
		completedAt,
		now,
		ret.ID,
		ret.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update return: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	ret.Version++
	ret.UpdatedAt = now
	return nil
}

func (db *DB) insertPhotos(ctx context.Context, returnID int64, kind string, photos []models.Photo) error {
	query := `INSERT INTO return_photos (return_id, kind, url, description, uploaded_at) VALUES (?, ?, ?, ?, ?)`
	for i := range photos {
		if photos[i].UploadedAt.IsZero() {
			photos[i].UploadedAt = time.Now().UTC()
		}
		_, err := db.conn(ctx).ExecContext(ctx, query,
			returnID,
			kind,
			photos[i].URL,
			photos[i].Description,
			photos[i].UploadedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to add return photo: %w", err)
		}
	}
	return nil
}

func (db *DB) loadPhotos(ctx context.Context, ret *models.Return) error {
	rows, err := db.conn(ctx).QueryContext(ctx,
		`SELECT kind, url, description, uploaded_at FROM return_photos WHERE return_id = ? ORDER BY id`, ret.ID)
	if err != nil {
		return fmt.Errorf("failed to load return photos: %w", err)
	}
	defer rows.Close()

	ret.Photos = []models.Photo{}
	for rows.Next() {
		var (
			kind  string
			photo models.Photo
		)
		if err := rows.Scan(&kind, &photo.URL, &photo.Description, &photo.UploadedAt); err != nil {
			return fmt.Errorf("failed to scan return photo: %w", err)
		}
		switch kind {
		case models.PhotoKindDamage:
			if ret.OwnerInspection != nil {
				ret.OwnerInspection.DamageReport.DamagePhotos = append(ret.OwnerInspection.DamageReport.DamagePhotos, photo)
			}
		default:
			ret.Photos = append(ret.Photos, photo)
		}
	}
	return rows.Err()
}

func (db *DB) queryReturns(ctx context.Context, query string, args ...any) ([]*models.Return, error) {
	rows, err := db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}

	var returns []*models.Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, ret)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate returns: %w", err)
	}

	// photos are loaded after the cursor is closed; a transaction has a single connection
	for _, ret := range returns {
		if err := db.loadPhotos(ctx, ret); err != nil {
			return nil, err
		}
	}
	return returns, nil
}

func scanReturn(row rowScanner) (*models.Return, error) {
	var (
		r           models.Return
		assessment  string
		inspection  sql.NullString
		resolution  sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID,
		&r.BookingID,
		&r.ItemID,
		&r.RenterID,
		&r.OwnerID,
		&r.Status,
		&assessment,
		&inspection,
		&resolution,
		&r.ReturnInitiatedAt,
		&completedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(assessment), &r.RenterAssessment); err != nil {
		return nil, fmt.Errorf("failed to decode renter assessment: %w", err)
	}
	if inspection.Valid {
		r.OwnerInspection = &models.OwnerInspection{}
		if err := json.Unmarshal([]byte(inspection.String), r.OwnerInspection); err != nil {
			return nil, fmt.Errorf("failed to decode owner inspection: %w", err)
		}
	}
	if resolution.Valid {
		r.Resolution = &models.Resolution{}
		if err := json.Unmarshal([]byte(resolution.String), r.Resolution); err != nil {
			return nil, fmt.Errorf("failed to decode resolution: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.ReturnCompletedAt = &t
	}
	return &r, nil
}

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := newWithConn(sqlDB, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET available").
		WithArgs(false, sqlmock.AnyArg(), int64(1), true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = db.WithTx(context.Background(), func(ctx context.Context) error {
		if err := db.ReserveItem(ctx, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNestedJoinsOuter(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := newWithConn(sqlDB, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE items SET available").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.WithTx(context.Background(), func(ctx context.Context) error {
		return db.WithTx(ctx, func(ctx context.Context) error {
			return db.ReleaseItem(ctx, 1)
		})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

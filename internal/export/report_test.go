package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubBookings struct {
	list []*models.Booking
	err  error
}

func (s stubBookings) ListAll(context.Context) ([]*models.Booking, error) { return s.list, s.err }

type stubReturns struct {
	list []*models.Return
	err  error
}

func (s stubReturns) ListAll(context.Context) ([]*models.Return, error) { return s.list, s.err }

var reportNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func fixtures() (stubBookings, stubReturns) {
	returnID := int64(3)
	completed := reportNow.Add(-time.Hour)
	bookings := []*models.Booking{
		{ID: 1, ItemID: 10, ItemName: "silk dress", RenterID: 20, OwnerID: 30, StartDate: reportNow.AddDate(0, 0, -9), EndDate: reportNow.AddDate(0, 0, -5), Status: models.BookingStatusBooked},
		{ID: 2, ItemID: 11, ItemName: "wool coat", RenterID: 21, OwnerID: 30, StartDate: reportNow.AddDate(0, 0, -4), EndDate: reportNow.AddDate(0, 0, -1), Status: models.BookingStatusReturned, ReturnID: &returnID},
	}
	returns := []*models.Return{
		{
			ID: 3, BookingID: 2, ItemID: 11, RenterID: 21, OwnerID: 30,
			Status:           models.ReturnStatusResolved,
			Photos:           []models.Photo{{URL: "/uploads/returns/a.png"}},
			RenterAssessment: models.RenterAssessment{Condition: models.ConditionGood},
			OwnerInspection: &models.OwnerInspection{
				Condition:    models.ConditionDamaged,
				DamageReport: models.DamageReport{HasDamage: true, DamageDetails: "broken zip", EstimatedRepairCost: 300},
			},
			Resolution:        &models.Resolution{Resolution: models.ResolutionPartialRefund, RefundAmount: 700},
			ReturnInitiatedAt: reportNow.Add(-48 * time.Hour),
			ReturnCompletedAt: &completed,
		},
	}
	return stubBookings{list: bookings}, stubReturns{list: returns}
}

func TestBuild(t *testing.T) {
	bookings, returns := fixtures()
	r := NewReporter(bookings, returns, t.TempDir(), clock.NewManual(reportNow), nil)

	f, err := r.Build(context.Background())
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{BookingsSheet, ReturnsSheet}, f.GetSheetList())

	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "silk dress", rows[1][1])
	assert.Equal(t, "yes", rows[1][9], "booked past its end date is flagged")
	assert.Equal(t, "3", rows[2][8])

	rows, err = f.GetRows(ReturnsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ReturnStatusResolved, rows[1][5])
	assert.Equal(t, "broken zip", rows[1][9])
	assert.Equal(t, models.ResolutionPartialRefund, rows[1][11])
	assert.Equal(t, "700", rows[1][12])
}

func TestWrite(t *testing.T) {
	bookings, returns := fixtures()
	r := NewReporter(bookings, returns, t.TempDir(), clock.NewManual(reportNow), nil)

	var buf bytes.Buffer
	require.NoError(t, r.Write(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), ReturnsSheet)
}

func TestSaveFile(t *testing.T) {
	bookings, returns := fixtures()
	dir := t.TempDir()
	r := NewReporter(bookings, returns, dir, clock.NewManual(reportNow), nil)

	path, err := r.SaveFile(context.Background())
	require.NoError(t, err)
	assert.Contains(t, path, "desk_report_2026-05-10.xlsx")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestBuildPropagatesListErrors(t *testing.T) {
	boom := errors.New("db closed")
	r := NewReporter(stubBookings{err: boom}, stubReturns{}, t.TempDir(), nil, nil)
	_, err := r.Build(context.Background())
	assert.ErrorIs(t, err, boom)

	r = NewReporter(stubBookings{}, stubReturns{err: boom}, t.TempDir(), nil, nil)
	_, err = r.Build(context.Background())
	assert.ErrorIs(t, err, boom)
}

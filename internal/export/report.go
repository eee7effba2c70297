package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	BookingsSheet = "Bookings"
	ReturnsSheet  = "Returns"
)

type BookingLister interface {
	ListAll(ctx context.Context) ([]*models.Booking, error)
}

type ReturnLister interface {
	ListAll(ctx context.Context) ([]*models.Return, error)
}

// Reporter renders the desk report: every booking and every return with
// its inspection and resolution outcome.
type Reporter struct {
	bookings BookingLister
	returns  ReturnLister
	dir      string
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewReporter(bookings BookingLister, returns ReturnLister, dir string, clk clock.Clock, logger *zerolog.Logger) *Reporter {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Reporter{
		bookings: bookings,
		returns:  returns,
		dir:      dir,
		clock:    clk,
		logger:   logging.Component(logger, "report"),
	}
}

// Build assembles the workbook. The caller closes it.
func (r *Reporter) Build(ctx context.Context) (*excelize.File, error) {
	bookings, err := r.bookings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting bookings: %w", err)
	}
	returns, err := r.returns.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting returns: %w", err)
	}

	f := excelize.NewFile()
	if err := r.writeBookings(f, bookings); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := r.writeReturns(f, returns); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(ReturnsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// Write streams the report as xlsx.
func (r *Reporter) Write(ctx context.Context, w io.Writer) error {
	f, err := r.Build(ctx)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveFile writes desk_report_<date>.xlsx into the export directory.
func (r *Reporter) SaveFile(ctx context.Context) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := r.Build(ctx)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(r.dir, fmt.Sprintf("desk_report_%s.xlsx", r.clock.Now().Format("2006-01-02")))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	r.logger.Info().Str("file_path", filePath).Msg("desk report created")
	return filePath, nil
}

func (r *Reporter) writeBookings(f *excelize.File, bookings []*models.Booking) error {
	headers := []interface{}{"ID", "Item", "Item ID", "Renter", "Owner", "Start", "End", "Status", "Return ID", "Overdue"}
	if err := writeHeader(f, BookingsSheet, headers); err != nil {
		return err
	}

	today := startOfDay(r.clock.Now())
	for i, b := range bookings {
		var returnID interface{}
		if b.ReturnID != nil {
			returnID = *b.ReturnID
		}
		overdue := ""
		if b.Status == models.BookingStatusBooked && b.EndDate.Before(today) {
			overdue = "yes"
		}
		row := []interface{}{
			b.ID, b.ItemName, b.ItemID, b.RenterID, b.OwnerID,
			b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"),
			b.Status, returnID, overdue,
		}
		if err := writeRow(f, BookingsSheet, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(BookingsSheet, "A", "J", 14)
	_ = f.SetColWidth(BookingsSheet, "B", "B", 28)
	return nil
}

func (r *Reporter) writeReturns(f *excelize.File, returns []*models.Return) error {
	headers := []interface{}{"ID", "Booking ID", "Item ID", "Renter", "Owner", "Status", "Photos", "Renter Condition", "Inspected Condition", "Damage", "Repair Estimate", "Resolution", "Refund", "Initiated", "Completed"}
	if err := writeHeader(f, ReturnsSheet, headers); err != nil {
		return err
	}

	for i, ret := range returns {
		var inspected, damage string
		var estimate interface{}
		if ret.OwnerInspection != nil {
			inspected = ret.OwnerInspection.Condition
			if dr := ret.OwnerInspection.DamageReport; dr.HasDamage {
				damage = dr.DamageDetails
				estimate = dr.EstimatedRepairCost
			}
		}
		var resolution string
		var refund interface{}
		if ret.Resolution != nil {
			resolution = ret.Resolution.Resolution
			refund = ret.Resolution.RefundAmount
		}
		completed := ""
		if ret.ReturnCompletedAt != nil {
			completed = ret.ReturnCompletedAt.Format("2006-01-02 15:04")
		}
		rowNum := i + 2
		row := []interface{}{
			ret.ID, ret.BookingID, ret.ItemID, ret.RenterID, ret.OwnerID, ret.Status,
			len(ret.Photos), ret.RenterAssessment.Condition, inspected, damage, estimate,
			resolution, refund, ret.ReturnInitiatedAt.Format("2006-01-02 15:04"), completed,
		}
		if err := writeRow(f, ReturnsSheet, rowNum, row); err != nil {
			return err
		}

		if style, err := statusStyle(f, ret.Status); err == nil {
			cell, _ := excelize.CoordinatesToCellName(6, rowNum)
			_ = f.SetCellStyle(ReturnsSheet, cell, cell, style)
		}
	}
	_ = f.SetColWidth(ReturnsSheet, "A", "O", 16)
	_ = f.SetColWidth(ReturnsSheet, "J", "J", 30)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// statusStyle: red while disputed, yellow while waiting on the owner,
// green once settled.
func statusStyle(f *excelize.File, status string) (int, error) {
	color := "#FFFFFF"
	switch status {
	case models.ReturnStatusDisputed:
		color = "#FFC7CE"
	case models.ReturnStatusPending, models.ReturnStatusUnderReview:
		color = "#FFEB9C"
	case models.ReturnStatusApproved, models.ReturnStatusResolved:
		color = "#C6EFCE"
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"wardrobe/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	BookingsTab = "Bookings"
	ReturnsTab  = "Returns"

	bookingsLastCol = "J"
	returnsLastCol  = "N"

	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

var (
	bookingHeaders = []interface{}{"ID", "Item ID", "Item", "Renter ID", "Owner ID", "Start", "End", "Status", "Return ID", "Updated At"}
	returnHeaders  = []interface{}{"ID", "Booking ID", "Item ID", "Renter ID", "Owner ID", "Status", "Renter Condition", "Inspected Condition", "Damage", "Resolution", "Refund", "Initiated At", "Completed At", "Updated At"}
)

var errRowNotFound = errors.New("ledger row not found")

// LedgerService mirrors bookings and returns into one spreadsheet, one tab
// per record kind, one row per record keyed by the ID in column A.
type LedgerService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]map[int64]int
	cacheMu       sync.RWMutex
}

// NewLedgerService authenticates with a service account key file.
func NewLedgerService(ctx context.Context, credentialsFile, spreadsheetID string) (*LedgerService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return NewLedgerServiceWithOptions(ctx, spreadsheetID, option.WithHTTPClient(config.Client(ctx)))
}

func NewLedgerServiceWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*LedgerService, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return &LedgerService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      map[string]map[int64]int{BookingsTab: {}, ReturnsTab: {}},
	}, nil
}

// TestConnection reads the bookings header cell.
func (s *LedgerService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, BookingsTab+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeaders writes the header row of both tabs.
func (s *LedgerService) EnsureHeaders(ctx context.Context) error {
	data := []*sheets.ValueRange{
		{Range: fmt.Sprintf("%s!A1:%s1", BookingsTab, bookingsLastCol), Values: [][]interface{}{bookingHeaders}},
		{Range: fmt.Sprintf("%s!A1:%s1", ReturnsTab, returnsLastCol), Values: [][]interface{}{returnHeaders}},
	}
	_, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	return err
}

// WarmUpCache reads the ID column of both tabs into the row index cache.
func (s *LedgerService) WarmUpCache(ctx context.Context) error {
	for _, tab := range []string{BookingsTab, ReturnsTab} {
		resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, tab+"!A:A").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("warm up %s: %w", tab, err)
		}
		rows := make(map[int64]int)
		for i, row := range resp.Values {
			if len(row) == 0 {
				continue
			}
			if id := cellID(row[0]); id > 0 {
				rows[id] = i + 1
			}
		}
		s.cacheMu.Lock()
		s.rowCache[tab] = rows
		s.cacheMu.Unlock()
	}
	return nil
}

// UpsertBooking rewrites the booking row or appends one.
func (s *LedgerService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return errors.New("booking is nil")
	}
	return s.upsertRow(ctx, BookingsTab, bookingsLastCol, booking.ID, bookingRowValues(booking))
}

// UpsertReturn rewrites the return row or appends one.
func (s *LedgerService) UpsertReturn(ctx context.Context, ret *models.Return) error {
	if ret == nil {
		return errors.New("return is nil")
	}
	return s.upsertRow(ctx, ReturnsTab, returnsLastCol, ret.ID, returnRowValues(ret))
}

func (s *LedgerService) upsertRow(ctx context.Context, tab, lastCol string, id int64, row []interface{}) error {
	rowIdx, err := s.FindRow(ctx, tab, id)
	if errors.Is(err, errRowNotFound) {
		return s.appendRow(ctx, tab, id, row)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", tab, rowIdx, lastCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *LedgerService) appendRow(ctx context.Context, tab string, id int64, row []interface{}) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if rowIdx := rowFromRange(resp.Updates.UpdatedRange); rowIdx > 0 {
			s.setCachedRow(tab, id, rowIdx)
		}
	}
	return nil
}

// FindRow returns the 1-based row holding id in column A of tab.
func (s *LedgerService) FindRow(ctx context.Context, tab string, id int64) (int, error) {
	if id == 0 {
		return 0, errors.New("row id is required")
	}
	if row, ok := s.getCachedRow(tab, id); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, tab+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellID(row[0]) == id {
			s.setCachedRow(tab, id, i+1)
			return i + 1, nil
		}
	}
	return 0, errRowNotFound
}

func (s *LedgerService) getCachedRow(tab string, id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[tab][id]
	return row, ok
}

func (s *LedgerService) setCachedRow(tab string, id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.rowCache[tab] == nil {
		s.rowCache[tab] = make(map[int64]int)
	}
	s.rowCache[tab][id] = row
}

// ClearCache drops every cached row index.
func (s *LedgerService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = map[string]map[int64]int{BookingsTab: {}, ReturnsTab: {}}
}

func cellID(v interface{}) int64 {
	switch c := v.(type) {
	case float64:
		return int64(c)
	case string:
		id, _ := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		return id
	}
	return 0
}

// rowFromRange extracts the first row number of an A1 range such as
// "Returns!A12:N12".
func rowFromRange(r string) int {
	if i := strings.LastIndex(r, "!"); i >= 0 {
		r = r[i+1:]
	}
	if i := strings.Index(r, ":"); i >= 0 {
		r = r[:i]
	}
	r = strings.TrimLeft(r, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(r)
	if err != nil {
		return 0
	}
	return n
}

func bookingRowValues(b *models.Booking) []interface{} {
	var returnID interface{} = ""
	if b.ReturnID != nil {
		returnID = *b.ReturnID
	}
	return []interface{}{
		b.ID,
		b.ItemID,
		b.ItemName,
		b.RenterID,
		b.OwnerID,
		b.StartDate.Format(dateLayout),
		b.EndDate.Format(dateLayout),
		b.Status,
		returnID,
		formatTime(b.UpdatedAt),
	}
}

func returnRowValues(r *models.Return) []interface{} {
	inspected, damage := "", ""
	if r.OwnerInspection != nil {
		inspected = r.OwnerInspection.Condition
		if r.OwnerInspection.DamageReport.HasDamage {
			damage = r.OwnerInspection.DamageReport.DamageDetails
			if damage == "" {
				damage = "yes"
			}
		}
	}
	resolution, refund := "", interface{}("")
	if r.Resolution != nil {
		resolution = r.Resolution.Resolution
		refund = r.Resolution.RefundAmount
	}
	completed := ""
	if r.ReturnCompletedAt != nil {
		completed = formatTime(*r.ReturnCompletedAt)
	}
	return []interface{}{
		r.ID,
		r.BookingID,
		r.ItemID,
		r.RenterID,
		r.OwnerID,
		r.Status,
		r.RenterAssessment.Condition,
		inspected,
		damage,
		resolution,
		refund,
		formatTime(r.ReturnInitiatedAt),
		completed,
		formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

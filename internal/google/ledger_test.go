package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wardrobe/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *LedgerService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	s, err := NewLedgerServiceWithOptions(context.Background(), "ledger_tid",
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return mux, s
}

func TestLedgerService_RequiresSpreadsheet(t *testing.T) {
	_, err := NewLedgerServiceWithOptions(context.Background(), "", option.WithoutAuthentication())
	if err == nil {
		t.Fatal("expected error for empty spreadsheet id")
	}
}

func TestLedgerService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestLedgerService_EnsureHeaders(t *testing.T) {
	mux, s := setupMockServer(t)
	var req sheets.BatchUpdateValuesRequest
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateValuesResponse{})
	})
	if err := s.EnsureHeaders(context.Background()); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}
	if len(req.Data) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(req.Data))
	}
	if req.Data[1].Range != "Returns!A1:N1" {
		t.Errorf("unexpected returns header range %q", req.Data[1].Range)
	}
}

func TestLedgerService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"123"}, {"456"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Returns!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {}, {"9"}}})
	})
	if err := s.WarmUpCache(context.Background()); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(BookingsTab, 123); !ok || row != 2 {
		t.Errorf("expected row 2 for booking 123, got %d", row)
	}
	if row, ok := s.getCachedRow(ReturnsTab, 9); !ok || row != 3 {
		t.Errorf("expected row 3 for return 9, got %d", row)
	}
}

func TestLedgerService_UpsertBooking_Append(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:J10"},
		})
	})

	booking := &models.Booking{ID: 789, Status: models.BookingStatusBooked, StartDate: time.Now(), EndDate: time.Now(), UpdatedAt: time.Now()}
	if err := s.UpsertBooking(context.Background(), booking); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow(BookingsTab, 789); row != 10 {
		t.Errorf("expected cached row 10, got %d", row)
	}
}

func TestLedgerService_UpsertBooking_Update(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow(BookingsTab, 123, 2)
	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Bookings!A2:J2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	returnID := int64(55)
	booking := &models.Booking{ID: 123, Status: models.BookingStatusReturning, ReturnID: &returnID, StartDate: time.Now(), EndDate: time.Now(), UpdatedAt: time.Now()}
	if err := s.UpsertBooking(context.Background(), booking); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if len(got.Values) != 1 || len(got.Values[0]) != len(bookingHeaders) {
		t.Fatalf("unexpected row shape: %+v", got.Values)
	}
	if got.Values[0][7] != models.BookingStatusReturning {
		t.Errorf("expected status column, got %v", got.Values[0][7])
	}
}

func TestLedgerService_UpsertReturn_Update(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Returns!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {float64(4)}}})
	})
	var got sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Returns!A2:N2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	ret := &models.Return{
		ID:               4,
		Status:           models.ReturnStatusResolved,
		RenterAssessment: models.RenterAssessment{Condition: models.ConditionGood},
		OwnerInspection: &models.OwnerInspection{
			Condition:    models.ConditionDamaged,
			DamageReport: models.DamageReport{HasDamage: true, DamageDetails: "torn hem"},
		},
		Resolution:        &models.Resolution{Resolution: models.ResolutionPartialRefund, RefundAmount: 700},
		ReturnInitiatedAt: time.Now(),
		UpdatedAt:         time.Now(),
	}
	if err := s.UpsertReturn(context.Background(), ret); err != nil {
		t.Fatalf("UpsertReturn failed: %v", err)
	}
	row := got.Values[0]
	if row[8] != "torn hem" || row[9] != models.ResolutionPartialRefund || row[10] != float64(700) {
		t.Errorf("unexpected return row: %v", row)
	}
}

func TestLedgerService_UpsertNil(t *testing.T) {
	_, s := setupMockServer(t)
	if err := s.UpsertBooking(context.Background(), nil); err == nil {
		t.Error("expected error for nil booking")
	}
	if err := s.UpsertReturn(context.Background(), nil); err == nil {
		t.Error("expected error for nil return")
	}
}

func TestRowFromRange(t *testing.T) {
	cases := map[string]int{
		"Bookings!A10:J10": 10,
		"Returns!A2":       2,
		"Returns!A:A":      0,
		"":                 0,
	}
	for in, want := range cases {
		if got := rowFromRange(in); got != want {
			t.Errorf("rowFromRange(%q) = %d, want %d", in, got, want)
		}
	}
}

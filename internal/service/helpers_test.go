package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/database"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) EnqueueBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockLedger) EnqueueReturn(ctx context.Context, r *models.Return) error {
	return m.Called(ctx, r).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

// recorder collects event types published on a real bus.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) handle(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type testEnv struct {
	db         *database.DB
	clock      *clock.Manual
	ledger     *mockLedger
	events     *recorder
	items      *ItemService
	bookings   *BookingService
	returns    *ReturnService
	inspection *InspectionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "wardrobe.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.NewManual(testNow)
	ledger := new(mockLedger)
	ledger.On("EnqueueBooking", mock.Anything, mock.Anything).Return(nil).Maybe()
	ledger.On("EnqueueReturn", mock.Anything, mock.Anything).Return(nil).Maybe()

	bus := events.NewEventBus()
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	return &testEnv{
		db:         db,
		clock:      clk,
		ledger:     ledger,
		events:     rec,
		items:      NewItemService(db, nil),
		bookings:   NewBookingService(db, bus, ledger, nil, WithClock(clk), WithOverdueGrace(time.Hour)),
		returns:    NewReturnService(db, bus, ledger, nil, WithClock(clk)),
		inspection: NewInspectionService(db, bus, ledger, nil, WithClock(clk), WithDeposit(1000)),
	}
}

func (e *testEnv) item(t *testing.T, owner domain.Owner, name string) *models.Item {
	t.Helper()
	item, err := e.items.CreateItem(context.Background(), owner, &models.Item{Name: name, Size: "S"})
	require.NoError(t, err)
	return item
}

func (e *testEnv) book(t *testing.T, renter domain.Renter, itemID int64) *models.Booking {
	t.Helper()
	b, err := e.bookings.CreateBooking(context.Background(), renter, domain.CreateBookingInput{
		ItemID:    itemID,
		StartDate: testNow,
		EndDate:   testNow.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	return b
}

func (e *testEnv) initiate(t *testing.T, renter domain.Renter, bookingID int64) *models.Return {
	t.Helper()
	ret, err := e.returns.InitiateReturn(context.Background(), renter, domain.InitiateReturnInput{
		BookingID: bookingID,
		Condition: models.ConditionGood,
		Photos:    []domain.PhotoInput{{URL: "/uploads/returns/front.jpg", Description: "front.jpg"}},
	})
	require.NoError(t, err)
	return ret
}

func (e *testEnv) available(t *testing.T, itemID int64) bool {
	t.Helper()
	item, err := e.items.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	return item.Available
}

func (e *testEnv) bookingStatus(t *testing.T, id int64) string {
	t.Helper()
	b, err := e.db.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

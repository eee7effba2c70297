package domain

import (
	"context"
	"io"
	"time"

	"wardrobe/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TxRunner runs fn inside one storage transaction. Nested calls join the
// transaction already carried by ctx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	UpsertItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	// ReserveItem flips available true->false; ErrUnavailable when it was not true.
	ReserveItem(ctx context.Context, id int64) error
	ReleaseItem(ctx context.Context, id int64) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error
	ListBookingsByRenter(ctx context.Context, renterID int64) ([]*models.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID int64) ([]*models.Booking, error)
	ListOverdueBookings(ctx context.Context, endedBefore time.Time) ([]*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
}

type ReturnRepository interface {
	CreateReturn(ctx context.Context, ret *models.Return) error
	GetReturn(ctx context.Context, id int64) (*models.Return, error)
	GetReturnByBooking(ctx context.Context, bookingID int64) (*models.Return, error)
	ListReturnsByRenter(ctx context.Context, renterID int64) ([]*models.Return, error)
	ListReturnsByOwner(ctx context.Context, ownerID int64) ([]*models.Return, error)
	ListReturnsByStatus(ctx context.Context, status string) ([]*models.Return, error)
	ListReturns(ctx context.Context) ([]*models.Return, error)
	AddReturnPhotos(ctx context.Context, returnID int64, kind string, photos []models.Photo) error
	// UpdateReturnWithVersion persists status, inspection, resolution and
	// completion time when ret.Version still matches the stored row.
	UpdateReturnWithVersion(ctx context.Context, ret *models.Return) error
}

type Repository interface {
	TxRunner
	ItemRepository
	BookingRepository
	ReturnRepository
}

// RequestStateRepository keeps short-lived per-request state: rate-limit
// counters and replayable idempotent responses.
type RequestStateRepository interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	GetIdempotent(ctx context.Context, key string) (*models.IdempotentResponse, error)
	SaveIdempotent(ctx context.Context, resp *models.IdempotentResponse, ttl time.Duration) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueBooking(ctx context.Context, booking *models.Booking) error
	EnqueueReturn(ctx context.Context, ret *models.Return) error
}

type LedgerWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpsertReturn(ctx context.Context, ret *models.Return) error
}

// PhotoUpload is raw uploaded content handed to photo storage.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoStore persists uploaded bytes and returns a stable reference.
type PhotoStore interface {
	Save(ctx context.Context, upload PhotoUpload) (string, error)
}

// Notifier delivers plain-text messages to the rental desk.
type Notifier interface {
	NotifyDesk(ctx context.Context, text string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type ItemService interface {
	CreateItem(ctx context.Context, owner Owner, item *models.Item) (*models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListForOwner(ctx context.Context, owner Owner) ([]*models.Item, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, renter Renter, in CreateBookingInput) (*models.Booking, error)
	CancelBooking(ctx context.Context, renter Renter, bookingID int64) (*models.Booking, error)
	ListForRenter(ctx context.Context, renter Renter) ([]*models.Booking, error)
	ListForOwner(ctx context.Context, owner Owner) ([]*models.Booking, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Booking, error)
	ListAll(ctx context.Context) ([]*models.Booking, error)
}

type ReturnService interface {
	InitiateReturn(ctx context.Context, renter Renter, in InitiateReturnInput) (*models.Return, error)
	AddPhotos(ctx context.Context, p Principal, returnID int64, photos []PhotoInput) (*models.Return, error)
	GetByBooking(ctx context.Context, p Principal, bookingID int64) (*models.Return, error)
	GetByID(ctx context.Context, p Principal, returnID int64) (*models.Return, error)
	ListForOwner(ctx context.Context, owner Owner) ([]*models.Return, error)
	ListForRenter(ctx context.Context, renter Renter) ([]*models.Return, error)
	ListAll(ctx context.Context) ([]*models.Return, error)
}

type InspectionService interface {
	BeginInspection(ctx context.Context, owner Owner, returnID int64) (*models.Return, error)
	ReviewReturn(ctx context.Context, owner Owner, in ReviewReturnInput) (*models.Return, error)
	ResolveDispute(ctx context.Context, arbitrator Arbitrator, in ResolveDisputeInput) (*models.Return, error)
	ListDisputed(ctx context.Context, arbitrator Arbitrator) ([]*models.Return, error)
}

package service

import (
	"context"
	"fmt"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

// BookingService is the booking manager. Booking rows and the item
// availability flag change together inside one transaction.
type BookingService struct {
	repo         domain.Repository
	effects      effects
	clock        clock.Clock
	overdueGrace time.Duration
	logger       *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	ledger domain.SyncWorker,
	logger *zerolog.Logger,
	opts ...Option,
) *BookingService {
	cfg := newSettings(opts)
	logger = logging.Component(logger, "booking_service")
	return &BookingService{
		repo:         repo,
		effects:      effects{eventBus: eventBus, ledger: ledger, logger: logger},
		clock:        cfg.clock,
		overdueGrace: cfg.overdueGrace,
		logger:       logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, renter domain.Renter, in domain.CreateBookingInput) (*models.Booking, error) {
	if in.ItemID <= 0 || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: item_id, start_date and end_date are required", domain.ErrValidation)
	}
	start, end := startOfDay(in.StartDate), startOfDay(in.EndDate)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date is before start_date", domain.ErrValidation)
	}

	var created *models.Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.ReserveItem(ctx, in.ItemID); err != nil {
			return err
		}
		booking := &models.Booking{
			RenterID:  renter.ID,
			ItemID:    in.ItemID,
			StartDate: start,
			EndDate:   end,
			Status:    models.BookingStatusBooked,
		}
		if err := s.repo.CreateBooking(ctx, booking); err != nil {
			return err
		}
		var err error
		created, err = s.repo.GetBooking(ctx, booking.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", created.ID).Int64("item_id", created.ItemID).Int64("renter_id", renter.ID).Msg("booking created")
	s.effects.bookingChanged(ctx, events.EventBookingCreated, created, renter)
	return created, nil
}

// CancelBooking is allowed to the booking's renter while it is still booked.
func (s *BookingService) CancelBooking(ctx context.Context, renter domain.Renter, bookingID int64) (*models.Booking, error) {
	var cancelled *models.Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		booking, err := s.repo.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.RenterID != renter.ID {
			return fmt.Errorf("%w: booking %d belongs to another renter", domain.ErrForbidden, bookingID)
		}
		if booking.Status != models.BookingStatusBooked {
			return fmt.Errorf("%w: booking %d is %s", domain.ErrInvalidState, bookingID, booking.Status)
		}
		if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingStatusCancelled); err != nil {
			return err
		}
		if err := s.repo.ReleaseItem(ctx, booking.ItemID); err != nil {
			return err
		}
		cancelled, err = s.repo.GetBooking(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("renter_id", renter.ID).Msg("booking cancelled")
	s.effects.bookingChanged(ctx, events.EventBookingCancelled, cancelled, renter)
	return cancelled, nil
}

func (s *BookingService) ListForRenter(ctx context.Context, renter domain.Renter) ([]*models.Booking, error) {
	return s.repo.ListBookingsByRenter(ctx, renter.ID)
}

func (s *BookingService) ListForOwner(ctx context.Context, owner domain.Owner) ([]*models.Booking, error) {
	return s.repo.ListBookingsByOwner(ctx, owner.ID)
}

// ListOverdue returns bookings never returned although their last rental day
// plus the grace period is behind asOf. The end date is inclusive.
func (s *BookingService) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Booking, error) {
	return s.repo.ListOverdueBookings(ctx, asOf.Add(-s.overdueGrace).AddDate(0, 0, -1))
}

func (s *BookingService) ListAll(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx)
}

// Now exposes the service clock to schedulers.
func (s *BookingService) Now() time.Time {
	return s.clock.Now()
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

// ReturnService is the renter-facing return workflow.
type ReturnService struct {
	repo    domain.Repository
	effects effects
	clock   clock.Clock
	logger  *zerolog.Logger
}

func NewReturnService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	ledger domain.SyncWorker,
	logger *zerolog.Logger,
	opts ...Option,
) *ReturnService {
	cfg := newSettings(opts)
	logger = logging.Component(logger, "return_service")
	return &ReturnService{
		repo:    repo,
		effects: effects{eventBus: eventBus, ledger: ledger, logger: logger},
		clock:   cfg.clock,
		logger:  logger,
	}
}

// InitiateReturn opens the single return of a booked rental and moves the
// booking to returning. A retry for the same booking fails with ErrDuplicate.
func (s *ReturnService) InitiateReturn(ctx context.Context, renter domain.Renter, in domain.InitiateReturnInput) (*models.Return, error) {
	if in.BookingID <= 0 {
		return nil, fmt.Errorf("%w: booking_id is required", domain.ErrValidation)
	}
	condition := strings.TrimSpace(in.Condition)
	if condition == "" {
		condition = models.ConditionGood
	}
	if !models.ValidCondition(condition) {
		return nil, fmt.Errorf("%w: unknown condition %q", domain.ErrValidation, condition)
	}
	if len(in.Photos) == 0 {
		return nil, fmt.Errorf("%w: at least one photo is required", domain.ErrValidation)
	}

	now := s.clock.Now()
	photos, err := toPhotos(in.Photos, now)
	if err != nil {
		return nil, err
	}

	var (
		created *models.Return
		booking *models.Booking
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBooking(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if b.RenterID != renter.ID {
			return fmt.Errorf("%w: booking %d belongs to another renter", domain.ErrForbidden, b.ID)
		}
		if b.ReturnID != nil {
			return fmt.Errorf("%w: return for booking %d", domain.ErrDuplicate, b.ID)
		}
		if b.Status != models.BookingStatusBooked {
			return fmt.Errorf("%w: booking %d is %s", domain.ErrInvalidState, b.ID, b.Status)
		}

		ret := &models.Return{
			BookingID: b.ID,
			ItemID:    b.ItemID,
			RenterID:  b.RenterID,
			OwnerID:   b.OwnerID,
			Photos:    photos,
			RenterAssessment: models.RenterAssessment{
				Condition:   condition,
				Comments:    strings.TrimSpace(in.Comments),
				SubmittedAt: now,
			},
			Status:            models.ReturnStatusPending,
			ReturnInitiatedAt: now,
		}
		if err := s.repo.CreateReturn(ctx, ret); err != nil {
			return err
		}
		if err := s.repo.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.BookingStatusReturning); err != nil {
			return err
		}

		if created, err = s.repo.GetReturn(ctx, ret.ID); err != nil {
			return err
		}
		booking, err = s.repo.GetBooking(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("return_id", created.ID).Int64("booking_id", created.BookingID).Msg("return initiated")
	s.effects.returnChanged(ctx, events.EventReturnInitiated, created, renter)
	s.effects.bookingChanged(ctx, "", booking, renter)
	return created, nil
}

// AddPhotos appends evidence while the return is still open. Only the renter
// or owner of record may add photos.
func (s *ReturnService) AddPhotos(ctx context.Context, p domain.Principal, returnID int64, in []domain.PhotoInput) (*models.Return, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: at least one photo is required", domain.ErrValidation)
	}
	photos, err := toPhotos(in, s.clock.Now())
	if err != nil {
		return nil, err
	}

	var updated *models.Return
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		ret, err := s.repo.GetReturn(ctx, returnID)
		if err != nil {
			return err
		}
		if !isParty(p, ret) {
			return fmt.Errorf("%w: not a party to return %d", domain.ErrForbidden, returnID)
		}
		switch ret.Status {
		case models.ReturnStatusPending, models.ReturnStatusUnderReview, models.ReturnStatusDisputed:
		default:
			return fmt.Errorf("%w: return %d is %s", domain.ErrInvalidState, returnID, ret.Status)
		}
		if err := s.repo.AddReturnPhotos(ctx, returnID, models.PhotoKindReturn, photos); err != nil {
			return err
		}
		updated, err = s.repo.GetReturn(ctx, returnID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.effects.returnChanged(ctx, events.EventReturnPhotosAdded, updated, p)
	return updated, nil
}

func (s *ReturnService) GetByBooking(ctx context.Context, p domain.Principal, bookingID int64) (*models.Return, error) {
	ret, err := s.repo.GetReturnByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isParty(p, ret) {
		return nil, fmt.Errorf("%w: not a party to return %d", domain.ErrForbidden, ret.ID)
	}
	return ret, nil
}

func (s *ReturnService) GetByID(ctx context.Context, p domain.Principal, returnID int64) (*models.Return, error) {
	ret, err := s.repo.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !isParty(p, ret) {
		return nil, fmt.Errorf("%w: not a party to return %d", domain.ErrForbidden, ret.ID)
	}
	return ret, nil
}

func (s *ReturnService) ListForOwner(ctx context.Context, owner domain.Owner) ([]*models.Return, error) {
	return s.repo.ListReturnsByOwner(ctx, owner.ID)
}

func (s *ReturnService) ListForRenter(ctx context.Context, renter domain.Renter) ([]*models.Return, error) {
	return s.repo.ListReturnsByRenter(ctx, renter.ID)
}

func (s *ReturnService) ListAll(ctx context.Context) ([]*models.Return, error) {
	return s.repo.ListReturns(ctx)
}

// isParty reports whether p is the renter or the owner recorded on ret.
func isParty(p domain.Principal, ret *models.Return) bool {
	switch v := p.(type) {
	case domain.Renter:
		return v.ID == ret.RenterID
	case domain.Owner:
		return v.ID == ret.OwnerID
	default:
		return false
	}
}

func toPhotos(in []domain.PhotoInput, uploadedAt time.Time) ([]models.Photo, error) {
	photos := make([]models.Photo, 0, len(in))
	for i, p := range in {
		url := strings.TrimSpace(p.URL)
		if url == "" {
			return nil, fmt.Errorf("%w: photo %d has no url", domain.ErrValidation, i)
		}
		photos = append(photos, models.Photo{
			URL:         url,
			Description: strings.TrimSpace(p.Description),
			UploadedAt:  uploadedAt,
		})
	}
	return photos, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"wardrobe/internal/clock"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

// InspectionService is the owner inspection and dispute resolution engine.
// Approving or resolving a return finalizes the booking and releases the
// item in the same transaction.
type InspectionService struct {
	repo    domain.Repository
	effects effects
	clock   clock.Clock
	deposit int64
	logger  *zerolog.Logger
}

func NewInspectionService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	ledger domain.SyncWorker,
	logger *zerolog.Logger,
	opts ...Option,
) *InspectionService {
	cfg := newSettings(opts)
	logger = logging.Component(logger, "inspection_service")
	return &InspectionService{
		repo:    repo,
		effects: effects{eventBus: eventBus, ledger: ledger, logger: logger},
		clock:   cfg.clock,
		deposit: cfg.deposit,
		logger:  logger,
	}
}

// Deposit is the security deposit refunds are computed from.
func (s *InspectionService) Deposit() int64 {
	return s.deposit
}

// BeginInspection marks a pending return as under review by its owner.
func (s *InspectionService) BeginInspection(ctx context.Context, owner domain.Owner, returnID int64) (*models.Return, error) {
	var updated *models.Return
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		ret, err := s.ownedReturn(ctx, owner, returnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnStatusPending {
			return fmt.Errorf("%w: return %d is %s", domain.ErrInvalidState, returnID, ret.Status)
		}
		ret.Status = models.ReturnStatusUnderReview
		if err := s.repo.UpdateReturnWithVersion(ctx, ret); err != nil {
			return err
		}
		updated, err = s.repo.GetReturn(ctx, returnID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.effects.returnChanged(ctx, events.EventReturnUnderReview, updated, owner)
	return updated, nil
}

// ReviewReturn records the owner's inspection. Without damage the return is
// approved and the rental closes; with damage it goes to arbitration and the
// booking and item stay as they are.
func (s *InspectionService) ReviewReturn(ctx context.Context, owner domain.Owner, in domain.ReviewReturnInput) (*models.Return, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	damagePhotos, err := toPhotos(in.DamagePhotos, now)
	if err != nil {
		return nil, err
	}

	var (
		reviewed *models.Return
		booking  *models.Booking
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		ret, err := s.ownedReturn(ctx, owner, in.ReturnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnStatusPending && ret.Status != models.ReturnStatusUnderReview {
			return fmt.Errorf("%w: return %d is %s", domain.ErrInvalidState, in.ReturnID, ret.Status)
		}

		condition := strings.TrimSpace(in.Condition)
		if condition == "" {
			condition = ret.RenterAssessment.Condition
		}
		ret.OwnerInspection = &models.OwnerInspection{
			InspectedBy: owner.ID,
			InspectedAt: now,
			Condition:   condition,
			Comments:    strings.TrimSpace(in.Comments),
			DamageReport: models.DamageReport{
				HasDamage:           in.HasDamage,
				DamageDetails:       strings.TrimSpace(in.DamageDetails),
				EstimatedRepairCost: in.EstimatedRepairCost,
			},
		}
		if in.Resolution != "" || in.OwnerAddress != "" || in.ReturnMethod != "" {
			amount, category := ClassifyRefund(s.deposit, in.DeductAmount)
			ret.Resolution = &models.Resolution{
				Resolution:   category,
				RefundAmount: amount,
				Notes:        strings.TrimSpace(in.AdditionalNotes),
				OwnerAddress: strings.TrimSpace(in.OwnerAddress),
				ReturnMethod: strings.TrimSpace(in.ReturnMethod),
			}
		}

		if in.HasDamage {
			ret.Status = models.ReturnStatusDisputed
		} else {
			ret.Status = models.ReturnStatusApproved
			ret.ReturnCompletedAt = &now
			if booking, err = s.finalize(ctx, ret); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateReturnWithVersion(ctx, ret); err != nil {
			return err
		}
		if err := s.repo.AddReturnPhotos(ctx, ret.ID, models.PhotoKindDamage, damagePhotos); err != nil {
			return err
		}
		reviewed, err = s.repo.GetReturn(ctx, ret.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	eventType := events.EventReturnApproved
	if reviewed.Status == models.ReturnStatusDisputed {
		eventType = events.EventReturnDisputed
	}
	s.logger.Info().
		Int64("return_id", reviewed.ID).
		Str("status", reviewed.Status).
		Bool("has_damage", in.HasDamage).
		Msg("return reviewed")
	s.effects.returnChanged(ctx, eventType, reviewed, owner)
	if booking != nil {
		s.effects.bookingChanged(ctx, "", booking, owner)
	}
	return reviewed, nil
}

// ResolveDispute settles a disputed return. It is the only way a disputed
// rental reaches returned and frees its item.
func (s *InspectionService) ResolveDispute(ctx context.Context, arbitrator domain.Arbitrator, in domain.ResolveDisputeInput) (*models.Return, error) {
	resolution := strings.TrimSpace(in.Resolution)
	if resolution == "" {
		resolution = models.ResolutionRenterPays
	}
	if !models.ValidResolution(resolution) {
		return nil, fmt.Errorf("%w: unknown resolution %q", domain.ErrValidation, resolution)
	}
	var refund int64
	if in.RefundAmount != nil {
		refund = *in.RefundAmount
	}
	if refund < 0 || refund > s.deposit {
		return nil, fmt.Errorf("%w: refund_amount must be between 0 and %d", domain.ErrValidation, s.deposit)
	}

	now := s.clock.Now()
	var (
		resolved *models.Return
		booking  *models.Booking
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		ret, err := s.repo.GetReturn(ctx, in.ReturnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnStatusDisputed {
			return fmt.Errorf("%w: return %d is %s, not disputed", domain.ErrInvalidState, ret.ID, ret.Status)
		}

		record := &models.Resolution{
			ResolvedBy:   arbitrator.ID,
			ResolvedAt:   &now,
			Resolution:   resolution,
			RefundAmount: refund,
			Notes:        strings.TrimSpace(in.Notes),
		}
		if ret.Resolution != nil {
			record.OwnerAddress = ret.Resolution.OwnerAddress
			record.ReturnMethod = ret.Resolution.ReturnMethod
		}
		ret.Resolution = record
		ret.Status = models.ReturnStatusResolved
		ret.ReturnCompletedAt = &now

		if booking, err = s.finalize(ctx, ret); err != nil {
			return err
		}
		if err := s.repo.UpdateReturnWithVersion(ctx, ret); err != nil {
			return err
		}
		resolved, err = s.repo.GetReturn(ctx, ret.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("return_id", resolved.ID).
		Int64("arbitrator_id", arbitrator.ID).
		Str("resolution", resolution).
		Int64("refund_amount", refund).
		Msg("dispute resolved")
	s.effects.returnChanged(ctx, events.EventDisputeResolved, resolved, arbitrator)
	s.effects.bookingChanged(ctx, "", booking, arbitrator)
	return resolved, nil
}

// ListDisputed is the arbitration queue, oldest first.
func (s *InspectionService) ListDisputed(ctx context.Context, _ domain.Arbitrator) ([]*models.Return, error) {
	return s.repo.ListReturnsByStatus(ctx, models.ReturnStatusDisputed)
}

func (s *InspectionService) ownedReturn(ctx context.Context, owner domain.Owner, returnID int64) (*models.Return, error) {
	ret, err := s.repo.GetReturn(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.OwnerID != owner.ID {
		return nil, fmt.Errorf("%w: return %d belongs to another owner", domain.ErrForbidden, returnID)
	}
	return ret, nil
}

// finalize closes the booking behind ret and makes its item bookable again.
func (s *InspectionService) finalize(ctx context.Context, ret *models.Return) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, ret.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusReturning {
		return nil, fmt.Errorf("%w: booking %d is %s", domain.ErrInvalidState, booking.ID, booking.Status)
	}
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.BookingStatusReturned); err != nil {
		return nil, err
	}
	if err := s.repo.ReleaseItem(ctx, ret.ItemID); err != nil {
		return nil, err
	}
	return s.repo.GetBooking(ctx, booking.ID)
}

func validateReview(in domain.ReviewReturnInput) error {
	if in.ReturnID <= 0 {
		return fmt.Errorf("%w: return_id is required", domain.ErrValidation)
	}
	if c := strings.TrimSpace(in.Condition); c != "" && !models.ValidCondition(c) {
		return fmt.Errorf("%w: unknown condition %q", domain.ErrValidation, c)
	}
	if in.DeductAmount < 0 {
		return fmt.Errorf("%w: deduct_amount must not be negative", domain.ErrValidation)
	}
	if in.EstimatedRepairCost < 0 {
		return fmt.Errorf("%w: estimated_repair_cost must not be negative", domain.ErrValidation)
	}
	return nil
}

package service

import (
	"context"

	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

// effects runs the post-commit side effects of a lifecycle change: the event
// and the ledger sync task. Failures are logged and never reach the caller.
type effects struct {
	eventBus domain.EventPublisher
	ledger   domain.SyncWorker
	logger   *zerolog.Logger
}

func (e effects) bookingChanged(ctx context.Context, eventType string, booking *models.Booking, by domain.Principal) {
	if e.eventBus != nil && eventType != "" {
		payload := events.NewBookingPayload(booking, string(by.Role()), by.UserID())
		if err := e.eventBus.PublishJSON(eventType, payload); err != nil {
			e.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
		}
	}
	if e.ledger != nil {
		if err := e.ledger.EnqueueBooking(ctx, booking); err != nil {
			e.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("ledger enqueue error")
		}
	}
}

func (e effects) returnChanged(ctx context.Context, eventType string, ret *models.Return, by domain.Principal) {
	if e.eventBus != nil && eventType != "" {
		payload := events.NewReturnPayload(ret, string(by.Role()), by.UserID())
		if err := e.eventBus.PublishJSON(eventType, payload); err != nil {
			e.logger.Error().Err(err).Str("event_type", eventType).Int64("return_id", ret.ID).Msg("publish event error")
		}
	}
	if e.ledger != nil {
		if err := e.ledger.EnqueueReturn(ctx, ret); err != nil {
			e.logger.Error().Err(err).Int64("return_id", ret.ID).Msg("ledger enqueue error")
		}
	}
}

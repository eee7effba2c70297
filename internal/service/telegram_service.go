package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramService talks to the rental desk chats. It implements
// domain.Notifier and reacts to dispute and overdue events.
type TelegramService struct {
	bot     domain.TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramService(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramService {
	return &TelegramService{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logging.Component(logger, "telegram"),
	}
}

func (s *TelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return s.bot.Send(msg)
}

func (s *TelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return s.bot.Send(msg)
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}

// NotifyDesk sends text to every desk chat. All chats are tried; the
// failures are joined.
func (s *TelegramService) NotifyDesk(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range s.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.SendMessage(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe routes the events the desk acts on to NotifyDesk.
func (s *TelegramService) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventReturnDisputed, s.HandleEvent)
	bus.Subscribe(events.EventDisputeResolved, s.HandleEvent)
}

func (s *TelegramService) HandleEvent(event *events.Event) error {
	var p events.ReturnEventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	var text string
	switch event.Type {
	case events.EventReturnDisputed:
		text = fmt.Sprintf("Return #%d (booking #%d) disputed by owner %d. Resolve with /resolve %d <resolution> <refund>",
			p.ReturnID, p.BookingID, p.OwnerID, p.ReturnID)
	case events.EventDisputeResolved:
		text = fmt.Sprintf("Return #%d resolved: %s, refund %d", p.ReturnID, p.Resolution, p.RefundAmount)
	default:
		return nil
	}

	if err := s.NotifyDesk(context.Background(), text); err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Int64("return_id", p.ReturnID).Msg("desk notification failed")
		return err
	}
	return nil
}

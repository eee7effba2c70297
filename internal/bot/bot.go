package bot

import (
	"context"
	"fmt"
	"io"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/config"
	"wardrobe/internal/domain"
	"wardrobe/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// ReportWriter renders the desk spreadsheet.
type ReportWriter interface {
	Write(ctx context.Context, w io.Writer) error
}

// Bot is the arbitration desk in Telegram. Only chats mapped to an
// arbitrator account are served.
type Bot struct {
	tg          domain.TelegramSender
	config      *config.Config
	state       domain.RequestStateRepository
	bookings    domain.BookingService
	inspections domain.InspectionService
	reports     ReportWriter
	clock       clock.Clock
	arbitrators map[int64]domain.Arbitrator
	metrics     *Metrics
	logger      *zerolog.Logger
}

func NewBot(
	tg domain.TelegramSender,
	cfg *config.Config,
	state domain.RequestStateRepository,
	bookings domain.BookingService,
	inspections domain.InspectionService,
	reports ReportWriter,
	clk clock.Clock,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if err := config.ValidateArbitrators(cfg.Desk.Arbitrators); err != nil {
		return nil, fmt.Errorf("desk config: %w", err)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}

	arbitrators := make(map[int64]domain.Arbitrator, len(cfg.Desk.Arbitrators))
	for _, a := range cfg.Desk.Arbitrators {
		arbitrators[a.TelegramID] = domain.Arbitrator{ID: a.UserID}
	}

	return &Bot{
		tg:          tg,
		config:      cfg,
		state:       state,
		bookings:    bookings,
		inspections: inspections,
		reports:     reports,
		clock:       clk,
		arbitrators: arbitrators,
		metrics:     metrics,
		logger:      logging.Component(logger, "bot"),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.tg == nil {
		return
	}
	b.tg.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var (
			userID int64
			chatID int64
		)
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID = update.Message.From.ID, update.Message.Chat.ID
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			if update.CallbackQuery.Message != nil {
				chatID = update.CallbackQuery.Message.Chat.ID
			}
		}
		if userID == 0 {
			return
		}

		arbitrator, ok := b.arbitrator(userID)
		if !ok {
			l.Warn().Int64("user_id", userID).Msg("update from non-arbitrator ignored")
			if update.Message != nil {
				b.sendMessage(chatID, "This bot serves the rental desk only.")
			}
			return
		}

		if !b.allow(updateCtx, userID) {
			if update.Message != nil {
				b.sendMessage(chatID, "Too many requests. Please wait a little.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, arbitrator, update.CallbackQuery)
			return
		}
		b.handleMessage(updateCtx, arbitrator, update.Message)
	})
}

func (b *Bot) arbitrator(telegramID int64) (domain.Arbitrator, bool) {
	a, ok := b.arbitrators[telegramID]
	return a, ok
}

// allow applies the per-user message quota. A failing store lets the update
// through.
func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.state == nil {
		return true
	}
	key := fmt.Sprintf("bot:%d", userID)
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.state.CheckRateLimit(ctx, key, b.config.Bot.RateLimitMessages, window)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	}
	return allowed
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.tg.Send(c); err != nil {
		b.logger.Error().Err(err).Msg("telegram send failed")
	}
}

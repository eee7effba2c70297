package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const helpText = `Rental desk commands:
/disputes - disputed returns waiting for a decision
/dispute <return_id> - details of one disputed return
/resolve <return_id> <resolution> <refund> [notes] - settle a dispute
/overdue - rentals past their end date
/report - desk spreadsheet

Resolutions: full_refund, partial_refund, renter_pays.`

func (b *Bot) handleMessage(ctx context.Context, arbitrator domain.Arbitrator, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		b.sendMessage(chatID, helpText)
		return
	}

	command := msg.Command()
	b.countCommand(command)
	zerolog.Ctx(ctx).Debug().
		Str("command", command).
		Int64("arbitrator_id", arbitrator.ID).
		Msg("desk command")

	switch command {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "disputes":
		b.renderDisputes(ctx, arbitrator, PaginationParams{ChatID: chatID})
	case "dispute":
		b.handleDisputeCommand(ctx, arbitrator, chatID, msg.CommandArguments())
	case "resolve":
		b.handleResolveCommand(ctx, arbitrator, chatID, msg.CommandArguments())
	case "overdue":
		b.handleOverdue(ctx, chatID)
	case "report":
		b.handleReport(ctx, chatID)
	default:
		b.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleDisputeCommand(ctx context.Context, arbitrator domain.Arbitrator, chatID int64, args string) {
	returnID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || returnID <= 0 {
		b.sendMessage(chatID, "Usage: /dispute <return_id>")
		return
	}
	b.showDispute(ctx, arbitrator, chatID, returnID)
}

// showDispute prints one return from the arbitration queue with one-tap
// outcomes. Partial refunds need an amount and go through /resolve.
func (b *Bot) showDispute(ctx context.Context, arbitrator domain.Arbitrator, chatID, returnID int64) {
	ret, err := b.findDisputed(ctx, arbitrator, returnID)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatReturnDetail(ret)+
		fmt.Sprintf("\nPartial refund: /resolve %d partial_refund <amount> [notes]", ret.ID))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Full refund", resolveCallback(ret.ID, models.ResolutionFullRefund)),
			tgbotapi.NewInlineKeyboardButtonData("💸 Renter pays", resolveCallback(ret.ID, models.ResolutionRenterPays)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back to disputes", disputesPagePrefix+"0"),
		),
	)
	b.send(msg)
}

func (b *Bot) findDisputed(ctx context.Context, arbitrator domain.Arbitrator, returnID int64) (*models.Return, error) {
	disputed, err := b.inspections.ListDisputed(ctx, arbitrator)
	if err != nil {
		return nil, err
	}
	for _, ret := range disputed {
		if ret.ID == returnID {
			return ret, nil
		}
	}
	return nil, fmt.Errorf("%w: return %d is not disputed", domain.ErrNotFound, returnID)
}

func (b *Bot) handleResolveCommand(ctx context.Context, arbitrator domain.Arbitrator, chatID int64, args string) {
	in, err := parseResolveArgs(args)
	if err != nil {
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.resolve(ctx, arbitrator, chatID, in)
}

func (b *Bot) resolve(ctx context.Context, arbitrator domain.Arbitrator, chatID int64, in domain.ResolveDisputeInput) {
	ret, err := b.inspections.ResolveDispute(ctx, arbitrator, in)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("return_id", in.ReturnID).Msg("resolve dispute failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if b.metrics != nil {
		b.metrics.DisputesResolved.WithLabelValues(ret.Resolution.Resolution).Inc()
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ Return #%d resolved: %s, refund %d.",
		ret.ID, ret.Resolution.Resolution, ret.Resolution.RefundAmount))
}

func (b *Bot) handleOverdue(ctx context.Context, chatID int64) {
	now := b.clock.Now()
	bookings, err := b.bookings.ListOverdue(ctx, now)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list overdue bookings failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	b.sendMessage(chatID, formatOverdue(bookings, now))
}

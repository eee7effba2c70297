package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	disputesPagePrefix = "disputes_page:"
	disputePrefix      = "dispute:"
	resolvePrefix      = "resolve:"
)

func resolveCallback(returnID int64, resolution string) string {
	return fmt.Sprintf("%s%d:%s", resolvePrefix, returnID, resolution)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, arbitrator domain.Arbitrator, callback *tgbotapi.CallbackQuery) {
	// answer at once so the client stops showing the spinner
	if _, err := b.tg.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("callback answer failed")
	}
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	switch {
	case strings.HasPrefix(data, disputesPagePrefix):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, disputesPagePrefix))
		b.renderDisputes(ctx, arbitrator, PaginationParams{
			ChatID:    chatID,
			MessageID: callback.Message.MessageID,
			Page:      page,
		})

	case strings.HasPrefix(data, disputePrefix):
		returnID, err := strconv.ParseInt(strings.TrimPrefix(data, disputePrefix), 10, 64)
		if err != nil {
			return
		}
		b.showDispute(ctx, arbitrator, chatID, returnID)

	case strings.HasPrefix(data, resolvePrefix):
		in, ok := b.parseResolveCallback(strings.TrimPrefix(data, resolvePrefix))
		if !ok {
			b.logger.Warn().Str("data", data).Msg("malformed resolve callback")
			return
		}
		b.resolve(ctx, arbitrator, chatID, in)
	}
}

// parseResolveCallback reads "<return_id>:<resolution>". Buttons only carry
// the two outcomes whose refund follows from the deposit.
func (b *Bot) parseResolveCallback(data string) (domain.ResolveDisputeInput, bool) {
	idPart, resolution, found := strings.Cut(data, ":")
	if !found {
		return domain.ResolveDisputeInput{}, false
	}
	returnID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return domain.ResolveDisputeInput{}, false
	}

	var refund int64
	switch resolution {
	case models.ResolutionFullRefund:
		refund = b.config.Rental.DepositTotal
	case models.ResolutionRenterPays:
		refund = 0
	default:
		return domain.ResolveDisputeInput{}, false
	}
	return domain.ResolveDisputeInput{
		ReturnID:     returnID,
		Resolution:   resolution,
		RefundAmount: &refund,
		Notes:        "settled from the desk bot",
	}, true
}

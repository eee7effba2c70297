package bot

import (
	"context"
	"fmt"
	"strings"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PaginationParams struct {
	ChatID    int64
	MessageID int // 0 sends a new message
	Page      int
}

// renderPaginatedList draws one page of a list with navigation buttons and
// either edits MessageID or sends a new message.
func (b *Bot) renderPaginatedList(
	params PaginationParams,
	title, pagePrefix string,
	totalCount int,
	renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton),
) {
	itemsPerPage := b.config.Bot.PaginationSize
	if itemsPerPage <= 0 {
		itemsPerPage = models.DefaultPaginationSize
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page < 0 {
		params.Page = 0
	}
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}
	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s\n\n", title))
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Page %d of %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", fmt.Sprintf("%s%d", pagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("%s%d", pagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}

	if params.MessageID != 0 {
		edit := tgbotapi.NewEditMessageText(params.ChatID, params.MessageID, message.String())
		if len(keyboard) > 0 {
			markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
			edit.ReplyMarkup = &markup
		}
		b.send(edit)
		return
	}

	msg := tgbotapi.NewMessage(params.ChatID, message.String())
	if len(keyboard) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}
	b.send(msg)
}

// renderDisputes lists the arbitration queue, oldest first.
func (b *Bot) renderDisputes(ctx context.Context, arbitrator domain.Arbitrator, params PaginationParams) {
	disputed, err := b.inspections.ListDisputed(ctx, arbitrator)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error listing disputed returns")
		b.sendMessage(params.ChatID, b.getErrorMessage(err))
		return
	}
	if len(disputed) == 0 {
		b.sendMessage(params.ChatID, "No disputed returns. 🎉")
		return
	}

	title := fmt.Sprintf("Disputed returns: %d", len(disputed))
	b.renderPaginatedList(params, title, disputesPagePrefix, len(disputed), func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for _, ret := range disputed[startIdx:endIdx] {
			content.WriteString(formatReturnLine(ret))
			content.WriteString("\n")

			btn := tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("#%d: booking #%d", ret.ID, ret.BookingID),
				fmt.Sprintf("%s%d", disputePrefix, ret.ID),
			)
			keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{btn})
		}
		return content.String(), keyboard
	})
}

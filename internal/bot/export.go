package bot

import (
	"bytes"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// handleReport renders the desk spreadsheet in memory and sends it as a
// document.
func (b *Bot) handleReport(ctx context.Context, chatID int64) {
	if b.reports == nil {
		b.sendMessage(chatID, "Reports are not configured.")
		return
	}

	var buf bytes.Buffer
	if err := b.reports.Write(ctx, &buf); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("desk report failed")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	name := fmt.Sprintf("desk_report_%s.xlsx", b.clock.Now().Format("20060102"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
	doc.Caption = "📊 Desk report"
	b.send(doc)
}

package bot

import (
	"wardrobe/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var _ domain.TelegramSender = (*BotWrapper)(nil)

// BotWrapper exposes the authorized bot user through GetSelf so the desk
// bot and the notifier can share one client type with their fakes.
type BotWrapper struct {
	*tgbotapi.BotAPI
}

func NewBotWrapper(api *tgbotapi.BotAPI) *BotWrapper {
	return &BotWrapper{BotAPI: api}
}

func (w *BotWrapper) GetSelf() tgbotapi.User {
	return w.Self
}

package bot

import "wardrobe/internal/domain"

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if b.metrics != nil {
		b.metrics.ErrorsTotal.Inc()
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "⚠️ " + err.Error()
	case domain.KindNotFound:
		return "⚠️ Return not found."
	case domain.KindForbidden:
		return "⚠️ Your account may not do that."
	case domain.KindInvalidState:
		return "⚠️ The return is no longer disputed. Refresh with /disputes."
	case domain.KindUnavailable, domain.KindDuplicate:
		return "⚠️ The record changed meanwhile. Please try again."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}

package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMessenger adapts the Telegram client to the notification pool's
// Messenger interface. The client is safe for concurrent use.
type telegramMessenger struct {
	api *tgbotapi.BotAPI
}

func (t telegramMessenger) EditMessageText(chatID int64, messageID int, text string) error {
	_, err := t.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (t telegramMessenger) DeleteMessage(chatID int64, messageID int) error {
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// sendText posts a plain message and returns its id, or 0 on failure.
func (b *Bot) sendText(chatID int64, text string) int {
	m, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0
	}
	return m.MessageID
}

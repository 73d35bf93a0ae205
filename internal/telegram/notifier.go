package telegram

import (
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

// chatNotifier показывает уведомления сессии сообщением в чат
type chatNotifier struct {
	bot    *Bot
	chatID int64
}

func (n chatNotifier) Notify(level service.Level, text string) {
	icon := "ℹ️"
	switch level {
	case service.LevelWarn:
		icon = "⚠️"
	case service.LevelError:
		icon = "❌"
	}
	n.bot.sendMessage(n.chatID, icon+" "+text)
}

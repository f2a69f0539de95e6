package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

// Notifier delivers class reminders over Telegram. It satisfies
// scheduler.Sender. The send timeout is enforced by the HTTP client the
// bot was constructed with, so a hung send cannot stall a whole tick.
type Notifier struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
}

// NewNotifier creates a Notifier on top of an initialized bot API.
func NewNotifier(bot *tgbotapi.BotAPI, log *zap.Logger) *Notifier {
	return &Notifier{bot: bot, log: log}
}

// SendClassReminder sends one reminder message. The returned bool is the
// delivery outcome: a transport error or API rejection (typically a user
// who blocked the bot) counts as not delivered.
func (n *Notifier) SendClassReminder(chatID int64, ev domain.ClassEvent, leadMinutes int) (bool, error) {
	msg := tgbotapi.NewMessage(chatID, classReminderText(ev, leadMinutes))
	if _, err := n.bot.Send(msg); err != nil {
		return false, err
	}
	n.log.Debug("class reminder delivered",
		zap.Int64("chat_id", chatID),
		zap.String("discipline", ev.Discipline),
	)
	return true, nil
}

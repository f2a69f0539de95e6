package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

// UI texts in Russian (the schedule feed and the audience are Russian).
const (
	startText = "👋 Привет! Я напоминаю о парах твоей группы.\n\n" +
		"Выбери группу через /group, включи напоминания в /settings — " +
		"и я напишу за несколько минут до начала пары."
	statusTitle = "🧾 Твои настройки:"
	statusFmt   = "• Группа: %s\n• Напоминания: %s\n• За сколько минут: %d\n"
	askGroupTxt = "Напиши группу в формате: <id> <название>\nНапример: 3591 НММбд-01-26"
)

// classReminderText builds the reminder message. Empty teacher/room fields
// are omitted, the feed does not always fill them.
func classReminderText(ev domain.ClassEvent, leadMinutes int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Через %d мин. начнётся пара!\n\n", leadMinutes)
	fmt.Fprintf(&b, "📚 %s", ev.Discipline)
	if ev.Kind != "" {
		fmt.Fprintf(&b, " (%s)", ev.Kind)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "🕐 %s\n", ev.Time)
	if ev.Teacher != "" {
		fmt.Fprintf(&b, "👨‍🏫 %s\n", ev.Teacher)
	}
	if ev.Room != "" {
		fmt.Fprintf(&b, "🚪 %s\n", ev.Room)
	}
	return strings.TrimRight(b.String(), "\n")
}

// mainMenuKeyboard builds a reply keyboard with a toggle button depending
// on whether reminders are currently on.
func mainMenuKeyboard(enabled bool) tgbotapi.ReplyKeyboardMarkup {
	toggle := "/pause"
	if !enabled {
		toggle = "/resume"
	}
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/status"),
			tgbotapi.NewKeyboardButton("/settings"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(toggle),
		),
	)
}

func settingsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ За сколько минут", "set_lead"),
			tgbotapi.NewInlineKeyboardButtonData("🎓 Группа", "set_group"),
		),
	)
}

func leadPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("5", "lead:5"),
			tgbotapi.NewInlineKeyboardButtonData("10", "lead:10"),
			tgbotapi.NewInlineKeyboardButtonData("15", "lead:15"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("20", "lead:20"),
			tgbotapi.NewInlineKeyboardButtonData("30", "lead:30"),
		),
	)
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

const defaultLeadMinutes = 10

// ensureUser makes sure a user row exists; if not, creates it with defaults.
// Reminders start disabled, the user opts in explicitly.
func (r *Router) ensureUser(ctx context.Context, chatID int64, from *tgbotapi.User) (*domain.User, error) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err == nil {
		return u, nil
	}
	now := time.Now().UTC()
	u = &domain.User{
		TelegramID:           chatID,
		UID:                  uuid.NewString(),
		NotificationsEnabled: false,
		LeadMinutes:          defaultLeadMinutes,
		CreatedAt:            now,
		UpdatedAt:            now,
		LastActivity:         &now,
	}
	if from != nil {
		u.Username = from.UserName
		u.FirstName = from.FirstName
		u.LastName = from.LastName
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u, err := r.ensureUser(ctx, chatID, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Не удалось создать профиль. Попробуй ещё раз позже.")
		return
	}
	out := tgbotapi.NewMessage(chatID, startText)
	out.ReplyMarkup = mainMenuKeyboard(u.NotificationsEnabled)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	u, err := r.ensureUser(ctx, chatID, nil)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Не удалось прочитать настройки.")
		return
	}

	group := "не выбрана"
	if u.GroupID != "" {
		group = u.GroupName
		if group == "" {
			group = u.GroupID
		}
	}
	enabledText := "⏸ выключены"
	if u.NotificationsEnabled {
		enabledText = "✅ включены"
	}

	body := fmt.Sprintf("%s\n\n"+statusFmt, statusTitle, group, enabledText, u.LeadMinutes)
	out := tgbotapi.NewMessage(chatID, body)
	out.ReplyMarkup = mainMenuKeyboard(u.NotificationsEnabled)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	if _, err := r.ensureUser(ctx, chatID, nil); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Не удалось открыть настройки.")
		return
	}
	out := tgbotapi.NewMessage(chatID, "Что настроить?")
	out.ReplyMarkup = settingsInlineKeyboard()
	_, _ = r.bot.Send(out)
}

func (r *Router) handleToggle(ctx context.Context, chatID int64, enabled bool) {
	u, err := r.ensureUser(ctx, chatID, nil)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		return
	}
	if enabled && u.GroupID == "" {
		r.sendText(chatID, "Сначала выбери группу: /group")
		return
	}
	if err := r.repo.SetNotifications(ctx, chatID, enabled); err != nil {
		r.log.Error("SetNotifications failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Не получилось сохранить. Попробуй ещё раз.")
		return
	}
	text := "⏸ Напоминания выключены."
	if enabled {
		text = fmt.Sprintf("✅ Напоминания включены: за %d мин. до пары.", u.LeadMinutes)
	}
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = mainMenuKeyboard(enabled)
	_, _ = r.bot.Send(out)
}

// --- Lead time flow ---

func (r *Router) askLeadPresets(ctx context.Context, chatID int64, cbID string) {
	_ = r.answerCallback(cbID, "")
	out := tgbotapi.NewMessage(chatID, "За сколько минут напоминать?")
	out.ReplyMarkup = leadPresetsKeyboard()
	_, _ = r.bot.Send(out)
}

func (r *Router) handleLeadCallback(ctx context.Context, chatID int64, data, cbID string) {
	raw := strings.TrimPrefix(data, "lead:")
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		_ = r.answerCallback(cbID, "Некорректное значение")
		return
	}
	if _, err := r.ensureUser(ctx, chatID, nil); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		return
	}
	if err := r.repo.SetLeadMinutes(ctx, chatID, minutes); err != nil {
		r.log.Error("SetLeadMinutes failed", zap.Error(err), zap.Int64("chatID", chatID))
		_ = r.answerCallback(cbID, "Не получилось сохранить")
		return
	}
	_ = r.answerCallback(cbID, "Сохранено")
	r.sendText(chatID, fmt.Sprintf("⏰ Буду напоминать за %d мин. до пары.", minutes))
}

// --- Group flow ---

func (r *Router) askGroup(ctx context.Context, chatID int64) {
	if _, err := r.ensureUser(ctx, chatID, nil); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		return
	}
	r.setPending(chatID, pendingGroup)
	r.sendText(chatID, askGroupTxt)
}

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	if r.getPending(chatID) != pendingGroup {
		return
	}
	defer r.clearPending(chatID)

	groupID, groupName, _ := strings.Cut(text, " ")
	if groupID == "" {
		r.sendText(chatID, "Не понял. "+askGroupTxt)
		return
	}
	if err := r.repo.SetGroup(ctx, chatID, groupID, strings.TrimSpace(groupName)); err != nil {
		r.log.Error("SetGroup failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sendText(chatID, "Не получилось сохранить группу.")
		return
	}
	r.sendText(chatID, "🎓 Группа сохранена. Включи напоминания: /resume")
}

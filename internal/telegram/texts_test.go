package telegram

import (
	"strings"
	"testing"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

func TestClassReminderText_Full(t *testing.T) {
	ev := domain.ClassEvent{
		Day:        "Понедельник",
		Time:       "10:30-12:00",
		Discipline: "Математический анализ",
		Kind:       "Лекция",
		Teacher:    "Иванов И.И.",
		Room:       "ауд. 215",
	}
	got := classReminderText(ev, 10)

	for _, want := range []string{"Через 10 мин.", "Математический анализ", "(Лекция)", "10:30-12:00", "Иванов И.И.", "ауд. 215"} {
		if !strings.Contains(got, want) {
			t.Fatalf("reminder text missing %q:\n%s", want, got)
		}
	}
}

func TestClassReminderText_OmitsEmptyFields(t *testing.T) {
	ev := domain.ClassEvent{
		Day:        "Вторник",
		Time:       "08:30-10:00",
		Discipline: "Физика",
	}
	got := classReminderText(ev, 5)

	if strings.Contains(got, "👨‍🏫") || strings.Contains(got, "🚪") || strings.Contains(got, "()") {
		t.Fatalf("empty fields must be omitted:\n%s", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("trailing newline must be trimmed:\n%q", got)
	}
}

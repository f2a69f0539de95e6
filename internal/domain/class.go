package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyTimeRange   = errors.New("empty time range")
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// ClassEvent is one timetable entry (a single class) inside a cached
// schedule. JSON tags follow the upstream schedule feed.
type ClassEvent struct {
	Day        string `json:"day"`  // localized day label, e.g. "Понедельник"
	Time       string `json:"time"` // "HH:MM-HH:MM"
	Discipline string `json:"discipline"`
	Kind       string `json:"lessonType"`
	Teacher    string `json:"teacher"`
	Room       string `json:"auditory"`
}

// Snapshot is a cached copy of a group's timetable for one week parity.
type Snapshot struct {
	GroupID    string
	WeekParity int
	Events     []ClassEvent
	CachedAt   time.Time
	ExpiresAt  time.Time
}

// dayLabels maps Go weekdays to the day labels used by the schedule feed.
var dayLabels = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

// DayLabel returns the schedule-feed label for a weekday.
func DayLabel(d time.Weekday) string { return dayLabels[d] }

// ClassStart resolves an event's start on the given calendar day.
// timeRange is "HH:MM-HH:MM" (en dash tolerated); only the start part is
// used. The returned string is the canonical "HH:MM" start, part of the
// dispatch key.
func ClassStart(day time.Time, timeRange string, loc *time.Location) (time.Time, string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(timeRange, "–", "-"))
	if s == "" {
		return time.Time{}, "", ErrEmptyTimeRange
	}
	start, _, found := strings.Cut(s, "-")
	if !found {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, timeRange)
	}
	mins, err := parseHHMM(start)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, timeRange)
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, loc)
	return t, FormatMinutes(mins), nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, found := strings.Cut(s, ":")
	if !found {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

package domain

import "time"

// User represents a student profile with notification preferences.
type User struct {
	TelegramID int64
	UID        string // internal uuid, assigned on first /start
	Username   string
	FirstName  string
	LastName   string

	// Group picked in the web app or via the bot; empty until selected.
	GroupID   string
	GroupName string

	// Reminder preferences. LeadMinutes is how many minutes before a
	// class the reminder fires (5..30).
	NotificationsEnabled bool
	LeadMinutes          int

	// Daily-scoped task counter, zeroed at local midnight.
	TasksDoneToday int

	CreatedAt    time.Time  // UTC
	UpdatedAt    time.Time  // UTC
	LastActivity *time.Time // UTC, nullable
}

// Eligible reports whether the scheduler should evaluate this user at all:
// reminders are on and a group is assigned.
func (u *User) Eligible() bool {
	return u.NotificationsEnabled && u.GroupID != ""
}

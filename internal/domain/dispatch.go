package domain

import (
	"fmt"
	"time"
)

// DispatchKey identifies one notification opportunity: a specific class
// occurrence for a specific user on a specific date. The store enforces
// uniqueness on this key, which is what makes repeated and concurrent
// evaluation safe.
type DispatchKey struct {
	TelegramID int64
	Discipline string
	ClassStart string // canonical "HH:MM"
	Date       string // "YYYY-MM-DD" in the reference timezone
}

func (k DispatchKey) String() string {
	return fmt.Sprintf("%d_%s_%s_%s", k.TelegramID, k.Discipline, k.ClassStart, k.Date)
}

// DispatchRecord is the idempotency ledger entry created the moment a
// class is judged due, before any send is attempted. Delivered stays nil
// while the attempt is in flight and transitions to a boolean at most once.
type DispatchRecord struct {
	Key         DispatchKey
	LeadMinutes int
	CreatedAt   time.Time // UTC
	Delivered   *bool     // nil = in flight
	ExpiresAt   time.Time // UTC, sweeper horizon
}

// NotifyWindow holds the tolerance bounds for the evaluator, derived from
// the evaluation tick interval. The lower bound absorbs small negative
// clock skew; the upper bound covers one delayed tick without letting the
// same class stay due across two normal consecutive ticks.
type NotifyWindow struct {
	lower float64
	upper float64
}

// WindowFor derives the notify window for a tick interval:
// [-0.5, tickMinutes+0.5) minutes.
func WindowFor(tick time.Duration) NotifyWindow {
	return NotifyWindow{lower: -0.5, upper: tick.Minutes() + 0.5}
}

// DeltaMinutes returns the signed distance in minutes between now and the
// moment the reminder should fire (class start minus lead time).
func DeltaMinutes(now, classStart time.Time, leadMinutes int) float64 {
	notifyAt := classStart.Add(-time.Duration(leadMinutes) * time.Minute)
	return now.Sub(notifyAt).Minutes()
}

// Contains reports whether a delta falls inside the window, i.e. the class
// is due right now.
func (w NotifyWindow) Contains(deltaMinutes float64) bool {
	return deltaMinutes >= w.lower && deltaMinutes < w.upper
}

package store

import (
	"context"
	"time"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

// ClaimResult classifies the outcome of a dispatch claim. Losing the race
// for a key is an expected steady-state outcome, not an error.
type ClaimResult int

const (
	ClaimFailed    ClaimResult = iota // store error, no record created
	Claimed                           // caller owns the send attempt
	AlreadyClaimed                    // another attempt owns this key
)

// Repo defines storage operations for user profiles, cached schedules and
// the notification dispatch ledger.
type Repo interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, telegramID int64) (*domain.User, error)
	SetNotifications(ctx context.Context, telegramID int64, enabled bool) error
	SetLeadMinutes(ctx context.Context, telegramID int64, minutes int) error
	SetGroup(ctx context.Context, telegramID int64, groupID, groupName string) error

	// ListEligible returns every user with reminders enabled and a group
	// assigned.
	ListEligible(ctx context.Context) ([]domain.User, error)

	// GetSnapshot returns the cached timetable for (groupID, parity) that
	// is still valid at asOf, or (nil, nil) when none exists. A missing
	// snapshot is not an error.
	GetSnapshot(ctx context.Context, groupID string, parity int, asOf time.Time) (*domain.Snapshot, error)
	PutSnapshot(ctx context.Context, snap *domain.Snapshot) error

	// TryClaim atomically inserts a dispatch record for rec.Key. The
	// table's uniqueness constraint is the only synchronization primitive:
	// exactly one caller across all scheduler instances gets Claimed.
	TryClaim(ctx context.Context, rec *domain.DispatchRecord) (ClaimResult, error)

	// SetOutcome records the send result onto an in-flight claim. It is a
	// no-op if the outcome was already written.
	SetOutcome(ctx context.Context, key domain.DispatchKey, delivered bool) error
	GetDispatch(ctx context.Context, key domain.DispatchKey) (*domain.DispatchRecord, error)

	// DeleteExpired removes dispatch records whose retention horizon
	// passed before the given instant and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// ResetDailyCounters zeroes all daily-scoped task counters.
	ResetDailyCounters(ctx context.Context) (int64, error)

	Close() error
}

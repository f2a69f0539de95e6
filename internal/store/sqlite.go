package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness-constraint
// failure (UNIQUE index or primary key).
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- users ---

// UpsertUser inserts or updates a user profile. On conflict the profile
// fields are refreshed; the uid and created_at of the first insert win.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	now := time.Now().UTC().Unix()
	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			telegram_id, uid, username, first_name, last_name,
			group_id, group_name, notifications_enabled, notification_time,
			tasks_done_today, created_at, updated_at, last_activity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username              = excluded.username,
			first_name            = excluded.first_name,
			last_name             = excluded.last_name,
			group_id              = excluded.group_id,
			group_name            = excluded.group_name,
			notifications_enabled = excluded.notifications_enabled,
			notification_time     = excluded.notification_time,
			updated_at            = excluded.updated_at,
			last_activity         = excluded.last_activity`,
		u.TelegramID, u.UID, u.Username, u.FirstName, u.LastName,
		u.GroupID, u.GroupName, boolToInt(u.NotificationsEnabled), u.LeadMinutes,
		u.TasksDoneToday, created, now, toNullInt64(u.LastActivity),
	)
	return err
}

const userColumns = `telegram_id, uid, username, first_name, last_name,
	group_id, group_name, notifications_enabled, notification_time,
	tasks_done_today, created_at, updated_at, last_activity`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u          domain.User
		enabledInt int
		createdAt  int64
		updatedAt  int64
		lastNS     sql.NullInt64
	)
	if err := row.Scan(
		&u.TelegramID, &u.UID, &u.Username, &u.FirstName, &u.LastName,
		&u.GroupID, &u.GroupName, &enabledInt, &u.LeadMinutes,
		&u.TasksDoneToday, &createdAt, &updatedAt, &lastNS,
	); err != nil {
		return nil, err
	}
	u.NotificationsEnabled = enabledInt != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	u.LastActivity = fromNullInt64(lastNS)
	return &u, nil
}

// GetUser returns a user profile by telegram id or sql.ErrNoRows.
func (r *SQLiteRepo) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

// SetNotifications toggles reminders for a user.
func (r *SQLiteRepo) SetNotifications(ctx context.Context, telegramID int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET notifications_enabled = ?, updated_at = ?
		WHERE telegram_id = ?`,
		boolToInt(enabled), time.Now().UTC().Unix(), telegramID,
	)
	return err
}

// SetLeadMinutes updates how many minutes before a class the reminder fires.
func (r *SQLiteRepo) SetLeadMinutes(ctx context.Context, telegramID int64, minutes int) error {
	if minutes < 5 || minutes > 30 {
		return fmt.Errorf("lead minutes out of range: %d", minutes)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET notification_time = ?, updated_at = ?
		WHERE telegram_id = ?`,
		minutes, time.Now().UTC().Unix(), telegramID,
	)
	return err
}

// SetGroup assigns a timetable group to a user.
func (r *SQLiteRepo) SetGroup(ctx context.Context, telegramID int64, groupID, groupName string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET group_id = ?, group_name = ?, updated_at = ?
		WHERE telegram_id = ?`,
		groupID, groupName, time.Now().UTC().Unix(), telegramID,
	)
	return err
}

// ListEligible returns every user with reminders enabled and a group assigned.
func (r *SQLiteRepo) ListEligible(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE notifications_enabled = 1 AND group_id <> ''
		ORDER BY telegram_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- schedule cache ---

// GetSnapshot returns the cached timetable for (groupID, parity) that is
// still valid at asOf, or (nil, nil) if absent or expired.
func (r *SQLiteRepo) GetSnapshot(ctx context.Context, groupID string, parity int, asOf time.Time) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT events, cached_at, expires_at
		FROM schedule_cache
		WHERE group_id = ? AND week_parity = ? AND expires_at > ?`,
		groupID, parity, asOf.UTC().Unix(),
	)

	var (
		eventsJSON string
		cachedAt   int64
		expiresAt  int64
	)
	if err := row.Scan(&eventsJSON, &cachedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	snap := &domain.Snapshot{
		GroupID:    groupID,
		WeekParity: parity,
		CachedAt:   time.Unix(cachedAt, 0).UTC(),
		ExpiresAt:  time.Unix(expiresAt, 0).UTC(),
	}
	if err := json.Unmarshal([]byte(eventsJSON), &snap.Events); err != nil {
		return nil, fmt.Errorf("decode snapshot events: %w", err)
	}
	return snap, nil
}

// PutSnapshot stores (or replaces) a cached timetable for one group/parity.
func (r *SQLiteRepo) PutSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	eventsJSON, err := json.Marshal(snap.Events)
	if err != nil {
		return fmt.Errorf("encode snapshot events: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedule_cache (group_id, week_parity, events, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(group_id, week_parity) DO UPDATE SET
			events     = excluded.events,
			cached_at  = excluded.cached_at,
			expires_at = excluded.expires_at`,
		snap.GroupID, snap.WeekParity, string(eventsJSON),
		snap.CachedAt.UTC().Unix(), snap.ExpiresAt.UTC().Unix(),
	)
	return err
}

// --- dispatch ledger ---

// TryClaim inserts the dispatch record for rec.Key with no outcome yet.
// A uniqueness-constraint failure means another attempt (this tick, a past
// tick, or a concurrent instance) already owns the key.
func (r *SQLiteRepo) TryClaim(ctx context.Context, rec *domain.DispatchRecord) (ClaimResult, error) {
	if rec == nil {
		return ClaimFailed, errors.New("nil dispatch record")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sent_notifications (
			telegram_id, discipline, class_start, date,
			lead_minutes, created_at, delivered, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		rec.Key.TelegramID, rec.Key.Discipline, rec.Key.ClassStart, rec.Key.Date,
		rec.LeadMinutes, rec.CreatedAt.UTC().Unix(), rec.ExpiresAt.UTC().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return AlreadyClaimed, nil
		}
		return ClaimFailed, err
	}
	return Claimed, nil
}

// SetOutcome writes the send result onto an in-flight claim. The
// `delivered IS NULL` guard makes the transition one-shot.
func (r *SQLiteRepo) SetOutcome(ctx context.Context, key domain.DispatchKey, delivered bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sent_notifications
		SET delivered = ?
		WHERE telegram_id = ? AND discipline = ? AND class_start = ? AND date = ?
		  AND delivered IS NULL`,
		boolToInt(delivered), key.TelegramID, key.Discipline, key.ClassStart, key.Date,
	)
	return err
}

// GetDispatch returns the ledger entry for a key or sql.ErrNoRows.
func (r *SQLiteRepo) GetDispatch(ctx context.Context, key domain.DispatchKey) (*domain.DispatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT lead_minutes, created_at, delivered, expires_at
		FROM sent_notifications
		WHERE telegram_id = ? AND discipline = ? AND class_start = ? AND date = ?`,
		key.TelegramID, key.Discipline, key.ClassStart, key.Date,
	)

	var (
		rec       = domain.DispatchRecord{Key: key}
		createdAt int64
		expiresAt int64
		deliv     sql.NullBool
	)
	if err := row.Scan(&rec.LeadMinutes, &createdAt, &deliv, &expiresAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	rec.Delivered = fromNullBool(deliv)
	return &rec, nil
}

// DeleteExpired removes dispatch records past their retention horizon.
func (r *SQLiteRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sent_notifications WHERE expires_at < ?`, before.UTC().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResetDailyCounters zeroes daily task counters for all users.
func (r *SQLiteRepo) ResetDailyCounters(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tasks_done_today = 0 WHERE tasks_done_today <> 0`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

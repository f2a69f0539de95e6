package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/store"
)

type sentCall struct {
	chatID int64
	ev     domain.ClassEvent
	lead   int
}

// fakeSender records reminder sends and can simulate transport failures.
type fakeSender struct {
	mu    sync.Mutex
	calls []sentCall
	err   error
}

func (f *fakeSender) SendClassReminder(chatID int64, ev domain.ClassEvent, leadMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentCall{chatID: chatID, ev: ev, lead: leadMinutes})
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func (f *fakeSender) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

type fixture struct {
	repo   *store.SQLiteRepo
	sender *fakeSender
	sched  *Scheduler
	loc    *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	sender := &fakeSender{}
	sched := New(repo, zap.NewNop(), sender, Config{
		Location:        loc,
		CheckInterval:   5 * time.Minute,
		CleanupInterval: 6 * time.Hour,
		Retention:       48 * time.Hour,
		Workers:         4,
	})
	return &fixture{repo: repo, sender: sender, sched: sched, loc: loc}
}

func (f *fixture) at(t *testing.T, now time.Time) {
	t.Helper()
	f.sched.now = func() time.Time { return now }
}

// seedUser creates an eligible user with the given lead time.
func (f *fixture) seedUser(t *testing.T, telegramID int64, lead int) {
	t.Helper()
	err := f.repo.UpsertUser(context.Background(), &domain.User{
		TelegramID:           telegramID,
		UID:                  uuid.NewString(),
		NotificationsEnabled: true,
		LeadMinutes:          lead,
		GroupID:              "g1",
		GroupName:            "НММбд-01-26",
	})
	require.NoError(t, err)
}

// seedSnapshot caches a timetable for group g1 valid around now.
func (f *fixture) seedSnapshot(t *testing.T, now time.Time, events ...domain.ClassEvent) {
	t.Helper()
	err := f.repo.PutSnapshot(context.Background(), &domain.Snapshot{
		GroupID:    "g1",
		WeekParity: domain.WeekParity(now),
		Events:     events,
		CachedAt:   now.UTC(),
		ExpiresAt:  now.Add(time.Hour).UTC(),
	})
	require.NoError(t, err)
}

func classAt(day time.Time, timeRange string) domain.ClassEvent {
	return domain.ClassEvent{
		Day:        domain.DayLabel(day.Weekday()),
		Time:       timeRange,
		Discipline: "Математический анализ",
		Kind:       "Лекция",
		Teacher:    "Иванов И.И.",
		Room:       "ауд. 215",
	}
}

func TestTick_SendsOnceThenAlreadyClaimed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Monday 2026-02-02, class at 10:30, lead 10m → reminder at 10:20.
	now := time.Date(2026, time.February, 2, 10, 19, 40, 0, f.loc)
	f.seedUser(t, 100, 10)
	f.seedSnapshot(t, now, classAt(now, "10:30-12:00"))

	f.at(t, now)
	f.sched.tick(ctx)

	calls := f.sender.sent()
	require.Len(t, calls, 1)
	require.EqualValues(t, 100, calls[0].chatID)
	require.Equal(t, 10, calls[0].lead)

	rec, err := f.repo.GetDispatch(ctx, domain.DispatchKey{
		TelegramID: 100, Discipline: "Математический анализ", ClassStart: "10:30", Date: "2026-02-02",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Delivered)
	require.True(t, *rec.Delivered)

	// The next tick falls inside the same window but must not send again.
	f.at(t, time.Date(2026, time.February, 2, 10, 21, 0, 0, f.loc))
	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 1)
}

func TestTick_ImmediateReevaluationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	f.seedSnapshot(t, now, classAt(now, "10:30-12:00"))
	f.at(t, now)

	f.sched.tick(ctx)
	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 1)
}

func TestTick_OutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 0, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	f.seedSnapshot(t, now, classAt(now, "10:30-12:00"))
	f.at(t, now)

	// 10:00 with lead 10 → delta -20m, far before the window opens.
	f.sched.tick(ctx)
	require.Empty(t, f.sender.sent())
}

func TestTick_NoSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	f.at(t, now)

	f.sched.tick(ctx)
	require.Empty(t, f.sender.sent())
}

func TestTick_SendFailureRecordedNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	f.seedSnapshot(t, now, classAt(now, "10:30-12:00"))
	f.sender.err = errors.New("telegram: timeout")

	f.at(t, now)
	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 1)

	rec, err := f.repo.GetDispatch(ctx, domain.DispatchKey{
		TelegramID: 100, Discipline: "Математический анализ", ClassStart: "10:30", Date: "2026-02-02",
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Delivered)
	require.False(t, *rec.Delivered)

	// The failed attempt still owns the key; no retry within the window.
	f.sender.err = nil
	f.at(t, now.Add(2*time.Minute))
	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 1)
}

func TestTick_MalformedTimeSkipsClassOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	bad := classAt(now, "пара перенесена")
	bad.Discipline = "Физика"
	f.seedSnapshot(t, now, bad, classAt(now, "10:30-12:00"))

	f.at(t, now)
	f.sched.tick(ctx)

	calls := f.sender.sent()
	require.Len(t, calls, 1)
	require.Equal(t, "Математический анализ", calls[0].ev.Discipline)
}

func TestTick_OtherDayIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	f.seedUser(t, 100, 10)
	ev := classAt(now, "10:30-12:00")
	ev.Day = domain.DayLabel(time.Tuesday)
	f.seedSnapshot(t, now, ev)

	f.at(t, now)
	f.sched.tick(ctx)
	require.Empty(t, f.sender.sent())
}

func TestTick_MultipleUsersBoundedWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, time.February, 2, 10, 20, 0, 0, f.loc)
	for id := int64(1); id <= 10; id++ {
		f.seedUser(t, id, 10)
	}
	f.seedSnapshot(t, now, classAt(now, "10:30-12:00"))

	f.at(t, now)
	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 10)

	f.sched.tick(ctx)
	require.Len(t, f.sender.sent(), 10)
}

func TestCleanup_SweepsExpiredOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 2, 12, 0, 0, 0, f.loc)

	_, err := f.repo.TryClaim(ctx, &domain.DispatchRecord{
		Key:         domain.DispatchKey{TelegramID: 1, Discipline: "Физика", ClassStart: "08:30", Date: "2026-01-30"},
		LeadMinutes: 10,
		CreatedAt:   now.Add(-72 * time.Hour).UTC(),
		ExpiresAt:   now.Add(-24 * time.Hour).UTC(),
	})
	require.NoError(t, err)
	_, err = f.repo.TryClaim(ctx, &domain.DispatchRecord{
		Key:         domain.DispatchKey{TelegramID: 1, Discipline: "Физика", ClassStart: "10:30", Date: "2026-02-02"},
		LeadMinutes: 10,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.Add(48 * time.Hour).UTC(),
	})
	require.NoError(t, err)

	f.at(t, now)
	f.sched.cleanup(ctx)

	_, err = f.repo.GetDispatch(ctx, domain.DispatchKey{TelegramID: 1, Discipline: "Физика", ClassStart: "08:30", Date: "2026-01-30"})
	require.Error(t, err)
	_, err = f.repo.GetDispatch(ctx, domain.DispatchKey{TelegramID: 1, Discipline: "Физика", ClassStart: "10:30", Date: "2026-02-02"})
	require.NoError(t, err)
}

package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/domain"
	"github.com/9a-web/webapp-rudn-server-working-9.7/internal/store"
)

// Sender is the minimal interface the scheduler needs to deliver a class
// reminder. telegram.Notifier implements it. The returned bool is the
// delivery outcome; a transport error counts as not delivered.
type Sender interface {
	SendClassReminder(chatID int64, ev domain.ClassEvent, leadMinutes int) (bool, error)
}

// Config holds scheduler timing knobs. All of them come from the app
// configuration; nothing here is hardcoded beyond the window tolerances,
// which are derived from CheckInterval.
type Config struct {
	Location        *time.Location // reference timezone for all class math
	CheckInterval   time.Duration  // evaluation tick
	CleanupInterval time.Duration  // retention sweep tick
	Retention       time.Duration  // dispatch record lifetime
	Workers         int            // bounded per-user parallelism within a tick
}

// Scheduler periodically evaluates upcoming classes and dispatches at most
// one reminder per (user, class occurrence). All dedup state lives in the
// store; running several scheduler processes concurrently is safe.
type Scheduler struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender
	cfg    Config
	window domain.NotifyWindow

	now func() time.Time // swapped out in tests
}

// New creates a Scheduler. It is constructed once at startup and started
// with Run; there is no process-wide instance.
func New(repo store.Repo, log *zap.Logger, sender Sender, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		repo:   repo,
		log:    log,
		sender: sender,
		cfg:    cfg,
		window: domain.WindowFor(cfg.CheckInterval),
		now:    time.Now,
	}
}

// Run drives the three periodic jobs until ctx is canceled: the evaluation
// tick, the cleanup tick, and the daily counter reset at local midnight.
func (s *Scheduler) Run(ctx context.Context) {
	evalTicker := time.NewTicker(s.cfg.CheckInterval)
	defer evalTicker.Stop()
	cleanupTicker := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	daily := cron.New(cron.WithLocation(s.cfg.Location))
	if _, err := daily.AddFunc("0 0 * * *", func() { s.resetDaily(ctx) }); err != nil {
		s.log.Error("register daily reset failed", zap.Error(err))
	} else {
		daily.Start()
		defer daily.Stop()
	}

	s.log.Info("scheduler started",
		zap.Duration("check_interval", s.cfg.CheckInterval),
		zap.Duration("cleanup_interval", s.cfg.CleanupInterval),
		zap.Duration("retention", s.cfg.Retention),
		zap.String("tz", s.cfg.Location.String()),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-evalTicker.C:
			s.tick(ctx)
		case <-cleanupTicker.C:
			s.cleanup(ctx)
		}
	}
}

// tick performs one evaluation cycle: resolve today's day label and week
// parity, list eligible users, and check each user's classes with bounded
// parallelism. Evaluation order is irrelevant; the claim key is global.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.cfg.Location)
	log := s.log.With(zap.String("run", uuid.NewString()))

	day := domain.DayLabel(now.Weekday())
	parity := domain.WeekParity(now)

	users, err := s.repo.ListEligible(ctx)
	if err != nil {
		log.Error("list eligible users failed", zap.Error(err))
		return
	}
	log.Debug("evaluation tick",
		zap.Time("now", now),
		zap.String("day", day),
		zap.Int("week_parity", parity),
		zap.Int("users", len(users)),
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, u := range users {
		if !u.Eligible() {
			continue
		}
		u := u
		g.Go(func() error {
			s.checkUser(ctx, log, &u, day, parity, now)
			return nil
		})
	}
	_ = g.Wait()
}

// checkUser evaluates all of one user's classes for today. A missing or
// expired snapshot is a silent skip, not an error.
func (s *Scheduler) checkUser(ctx context.Context, log *zap.Logger, u *domain.User, day string, parity int, now time.Time) {
	snap, err := s.repo.GetSnapshot(ctx, u.GroupID, parity, now)
	if err != nil {
		log.Error("snapshot lookup failed",
			zap.Error(err), zap.Int64("telegram_id", u.TelegramID), zap.String("group_id", u.GroupID))
		return
	}
	if snap == nil {
		log.Debug("no cached schedule",
			zap.Int64("telegram_id", u.TelegramID), zap.String("group_id", u.GroupID))
		return
	}

	for _, ev := range snap.Events {
		if ev.Day != day {
			continue
		}
		s.checkClass(ctx, log, u, ev, now)
	}
}

// checkClass decides whether one class is due and, if so, claims and sends
// the reminder. The claim insert happens BEFORE the send: a crash after the
// claim loses at most one message, it never duplicates one.
func (s *Scheduler) checkClass(ctx context.Context, log *zap.Logger, u *domain.User, ev domain.ClassEvent, now time.Time) {
	start, startHHMM, err := domain.ClassStart(now, ev.Time, s.cfg.Location)
	if err != nil {
		log.Warn("malformed class time",
			zap.Error(err), zap.String("time", ev.Time), zap.String("discipline", ev.Discipline))
		return
	}

	delta := domain.DeltaMinutes(now, start, u.LeadMinutes)
	if !s.window.Contains(delta) {
		return
	}

	rec := &domain.DispatchRecord{
		Key: domain.DispatchKey{
			TelegramID: u.TelegramID,
			Discipline: ev.Discipline,
			ClassStart: startHHMM,
			Date:       now.Format("2006-01-02"),
		},
		LeadMinutes: u.LeadMinutes,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.Add(s.cfg.Retention).UTC(),
	}

	// A shutdown signal must not cut the claim/send/outcome sequence in
	// half: an interrupted claim would leave a record that blocks the key
	// without anyone ever attempting the send.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	res, err := s.repo.TryClaim(dctx, rec)
	if err != nil {
		// No record was created, so the next tick retries naturally.
		log.Error("dispatch claim failed", zap.Error(err), zap.String("key", rec.Key.String()))
		return
	}
	if res == store.AlreadyClaimed {
		log.Debug("already claimed", zap.String("key", rec.Key.String()))
		return
	}

	log.Info("sending class reminder",
		zap.Int64("telegram_id", u.TelegramID),
		zap.String("discipline", ev.Discipline),
		zap.String("class_start", startHHMM),
		zap.Int("lead_minutes", u.LeadMinutes),
	)

	delivered, err := s.sender.SendClassReminder(u.TelegramID, ev, u.LeadMinutes)
	if err != nil {
		log.Warn("send failed", zap.Error(err), zap.String("key", rec.Key.String()))
		delivered = false
	}

	// Failure here leaves the outcome unresolved, which still blocks
	// re-sends for this key.
	if err := s.repo.SetOutcome(dctx, rec.Key, delivered); err != nil {
		log.Error("outcome write failed", zap.Error(err), zap.String("key", rec.Key.String()))
	}
}

// cleanup sweeps dispatch records past their retention horizon.
func (s *Scheduler) cleanup(ctx context.Context) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.log.Error("cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("cleaned up dispatch records", zap.Int64("deleted", n))
	} else {
		s.log.Debug("no expired dispatch records")
	}
}

// resetDaily zeroes daily-scoped task counters at local midnight.
func (s *Scheduler) resetDaily(ctx context.Context) {
	n, err := s.repo.ResetDailyCounters(ctx)
	if err != nil {
		s.log.Error("daily counter reset failed", zap.Error(err))
		return
	}
	s.log.Info("daily counters reset", zap.Int64("users", n))
}

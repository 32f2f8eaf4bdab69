// Package scheduler drives the periodic alert checks inside the daemon:
// a daily expiration pass, a rolling low-stock check, and a weekly dead
// stock review. One scheduler instance exists per daemon process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkops/warelog/internal/alerts"
	"github.com/inkops/warelog/internal/logging"
)

// CheckKind names a schedulable check for TriggerNow.
type CheckKind string

const (
	KindAll       CheckKind = "all"
	KindExpiring  CheckKind = "expiring"
	KindExpired   CheckKind = "expired"
	KindLowStock  CheckKind = "low_stock"
	KindDeadStock CheckKind = "dead_stock"
)

// ValidKind reports whether k names a known check.
func ValidKind(k CheckKind) bool {
	switch k {
	case KindAll, KindExpiring, KindExpired, KindLowStock, KindDeadStock:
		return true
	}
	return false
}

const (
	dailyHour     = 6
	weeklyDay     = time.Sunday
	weeklyHour    = 2
	defaultLowInt = 4 * time.Hour
)

// Options tunes the scheduler. Zero values use the defaults.
type Options struct {
	// Now supplies the clock; tests pin it. Defaults to time.Now.
	Now func() time.Time
	// LowStockInterval is the period of the rolling low-stock check.
	LowStockInterval time.Duration
}

// Scheduler runs the periodic checks. Create with New, drive with
// Start/Shutdown; TriggerNow runs a check out of band.
type Scheduler struct {
	gen     *alerts.Generator
	log     *logging.Logger
	now     func() time.Time
	lowInt  time.Duration
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	dailyMu  sync.Mutex
	lowMu    sync.Mutex
	weeklyMu sync.Mutex
}

// New creates a scheduler over the alert generator.
func New(gen *alerts.Generator, log *logging.Logger, opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lowInt := opts.LowStockInterval
	if lowInt <= 0 {
		lowInt = defaultLowInt
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{gen: gen, log: log, now: now, lowInt: lowInt}
}

// Start launches the job loops. Calling Start twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	jobCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.dailyLoop(jobCtx)
	go s.lowStockLoop(jobCtx)
	go s.weeklyLoop(jobCtx)

	s.log.Info("scheduler started",
		"daily", fmt.Sprintf("%02d:00", dailyHour),
		"low_stock_every", s.lowInt,
		"weekly", fmt.Sprintf("%s %02d:00", weeklyDay, weeklyHour))
	return nil
}

// Shutdown stops the loops and waits for in-flight jobs, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.started = false
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", ctx.Err())
	}
}

// Running reports whether the job loops are active.
func (s *Scheduler) Running() bool {
	return s.started
}

// TriggerNow runs one check kind (or all) immediately, bypassing the
// schedule but not the per-job locks.
func (s *Scheduler) TriggerNow(ctx context.Context, kind CheckKind) (*alerts.RunReport, error) {
	if !ValidKind(kind) {
		return nil, fmt.Errorf("unknown check kind %q", kind)
	}
	if kind == KindAll {
		return s.gen.RunAll(ctx)
	}

	report := &alerts.RunReport{StartedAt: time.Now().UTC()}
	var err error
	switch kind {
	case KindExpiring:
		report.ExpiringAlerts, err = s.gen.CheckExpiring(ctx)
	case KindExpired:
		report.ExpiredBatches, report.ExpiredAlerts, err = s.gen.CheckExpired(ctx)
	case KindLowStock:
		report.LowStockAlerts, err = s.gen.CheckLowStock(ctx)
	case KindDeadStock:
		report.DeadStockAlerts, err = s.gen.CheckDeadStock(ctx)
	}
	if err != nil {
		return nil, err
	}
	report.TotalNewAlerts = report.ExpiringAlerts + report.ExpiredAlerts + report.LowStockAlerts + report.DeadStockAlerts
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// dailyLoop sleeps until the next daily boundary, recomputed per tick so
// clock changes cannot drift the schedule.
func (s *Scheduler) dailyLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		now := s.now()
		if !sleepFor(ctx, nextDaily(now, dailyHour).Sub(now)) {
			return
		}
		s.runLocked(ctx, "daily expiration", &s.dailyMu, func(ctx context.Context) {
			if _, err := s.gen.CheckExpiring(ctx); err != nil {
				s.log.Error("daily expiring check failed", "error", err)
			}
			if _, _, err := s.gen.CheckExpired(ctx); err != nil {
				s.log.Error("daily expired sweep failed", "error", err)
			}
		})
	}
}

func (s *Scheduler) lowStockLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.lowInt)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLocked(ctx, "low stock", &s.lowMu, func(ctx context.Context) {
				if _, err := s.gen.CheckLowStock(ctx); err != nil {
					s.log.Error("low stock check failed", "error", err)
				}
			})
		}
	}
}

func (s *Scheduler) weeklyLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		now := s.now()
		if !sleepFor(ctx, nextWeekly(now, weeklyDay, weeklyHour).Sub(now)) {
			return
		}
		s.runLocked(ctx, "dead stock", &s.weeklyMu, func(ctx context.Context) {
			if _, err := s.gen.CheckDeadStock(ctx); err != nil {
				s.log.Error("dead stock check failed", "error", err)
			}
		})
	}
}

// runLocked runs job under mu, skipping the tick when the previous run
// is still going.
func (s *Scheduler) runLocked(ctx context.Context, name string, mu *sync.Mutex, job func(context.Context)) {
	if !mu.TryLock() {
		s.log.Warn("job still running, skipping tick", "job", name)
		return
	}
	defer mu.Unlock()
	s.log.Debug("job starting", "job", name)
	job(ctx)
}

// sleepFor blocks for d or until context cancellation. Reports whether
// the full duration elapsed.
func sleepFor(ctx context.Context, d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextDaily returns the next occurrence of hour:00 local strictly after
// now.
func nextDaily(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekly returns the next occurrence of weekday at hour:00 local
// strictly after now.
func nextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/alerts"
	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

func newTestScheduler(t *testing.T) (*Scheduler, *sqlite.SQLiteStorage, types.Date) {
	t.Helper()
	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Fatalf("Failed to close test database: %v", cerr)
		}
	})
	today := types.MustParseDate("2026-06-01")
	gen := alerts.NewWithClock(store, logging.Discard(), alerts.Config{}, func() types.Date { return today })
	sched := New(gen, logging.Discard(), Options{})
	return sched, store, today
}

func TestNextDaily(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before boundary",
			time.Date(2026, 6, 1, 4, 30, 0, 0, loc),
			time.Date(2026, 6, 1, 6, 0, 0, 0, loc),
		},
		{
			"after boundary rolls over",
			time.Date(2026, 6, 1, 7, 0, 0, 0, loc),
			time.Date(2026, 6, 2, 6, 0, 0, 0, loc),
		},
		{
			"exactly at boundary rolls over",
			time.Date(2026, 6, 1, 6, 0, 0, 0, loc),
			time.Date(2026, 6, 2, 6, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextDaily(tt.now, dailyHour); !got.Equal(tt.want) {
				t.Errorf("nextDaily = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextWeekly(t *testing.T) {
	loc := time.UTC
	// 2026-06-01 is a Monday.
	monday := time.Date(2026, 6, 1, 12, 0, 0, 0, loc)
	got := nextWeekly(monday, time.Sunday, weeklyHour)
	want := time.Date(2026, 6, 7, 2, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextWeekly from Monday = %v, want %v", got, want)
	}

	// Sunday after the boundary waits a full week.
	sundayLate := time.Date(2026, 6, 7, 3, 0, 0, 0, loc)
	got = nextWeekly(sundayLate, time.Sunday, weeklyHour)
	want = time.Date(2026, 6, 14, 2, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextWeekly from late Sunday = %v, want %v", got, want)
	}

	// Sunday before the boundary fires the same day.
	sundayEarly := time.Date(2026, 6, 7, 1, 0, 0, 0, loc)
	got = nextWeekly(sundayEarly, time.Sunday, weeklyHour)
	want = time.Date(2026, 6, 7, 2, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("nextWeekly from early Sunday = %v, want %v", got, want)
	}
}

func TestTriggerNow(t *testing.T) {
	sched, store, today := newTestScheduler(t)
	ctx := context.Background()

	item := &types.Item{SKU: "INK-1", Name: "Black ink", IsActive: true}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	q := decimal.RequireFromString("10")
	batch := &types.Batch{
		ItemID:            item.ID,
		BatchNumber:       "GR-1",
		QuantityReceived:  q,
		QuantityAvailable: q,
		ExpirationDate:    today.AddDays(10),
		ReceiptDate:       today.AddDays(-30),
		Status:            types.BatchActive,
	}
	if err := store.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	report, err := sched.TriggerNow(ctx, KindExpiring)
	if err != nil {
		t.Fatalf("TriggerNow failed: %v", err)
	}
	if report.ExpiringAlerts != 1 {
		t.Errorf("ExpiringAlerts = %d, want 1", report.ExpiringAlerts)
	}

	// "all" reruns everything; dedupe keeps the count at zero.
	report, err = sched.TriggerNow(ctx, KindAll)
	if err != nil {
		t.Fatalf("TriggerNow(all) failed: %v", err)
	}
	if report.TotalNewAlerts != 0 {
		t.Errorf("TotalNewAlerts = %d, want 0 after dedupe", report.TotalNewAlerts)
	}

	if _, err := sched.TriggerNow(ctx, "bogus"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestStartShutdown(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	ctx := context.Background()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sched.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestRunLockedSkipsWhileBusy(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	ctx := context.Background()

	release := make(chan struct{})
	running := make(chan struct{})
	go sched.runLocked(ctx, "slow", &sched.dailyMu, func(context.Context) {
		close(running)
		<-release
	})
	<-running

	// The overlapping tick must be skipped, not queued.
	done := make(chan struct{})
	go func() {
		sched.runLocked(ctx, "slow", &sched.dailyMu, func(context.Context) {
			t.Error("overlapping job ran")
		})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("overlapping runLocked did not return")
	}
	close(release)
}

package alerts

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

type testEnv struct {
	t         *testing.T
	Store     *sqlite.SQLiteStorage
	Generator *Generator
	Ctx       context.Context
	Today     types.Date
	User      *types.User
}

func newTestEnv(t *testing.T) *testEnv {
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
	env := &testEnv{
		t:     t,
		Store: store,
		Ctx:   context.Background(),
		Today: today,
	}
	env.Generator = NewWithClock(store, logging.Discard(), Config{}, func() types.Date { return today })
	env.User = &types.User{Username: "worker", Role: types.RoleWarehouseWorker, IsActive: true}
	if err := store.CreateUser(env.Ctx, env.User); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return env
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEnv) createItem(sku string, mutate func(*types.Item)) *types.Item {
	e.t.Helper()
	item := &types.Item{SKU: sku, Name: sku + " ink", IsActive: true}
	if mutate != nil {
		mutate(item)
	}
	if err := e.Store.CreateItem(e.Ctx, item); err != nil {
		e.t.Fatalf("CreateItem failed: %v", err)
	}
	return item
}

func (e *testEnv) createBatch(item *types.Item, number, qty string, expiration types.Date) *types.Batch {
	e.t.Helper()
	q := decimal.RequireFromString(qty)
	batch := &types.Batch{
		ItemID:            item.ID,
		BatchNumber:       number,
		QuantityReceived:  q,
		QuantityAvailable: q,
		ExpirationDate:    expiration,
		ReceiptDate:       e.Today.AddDays(-200),
		Status:            types.BatchActive,
	}
	if err := e.Store.CreateBatch(e.Ctx, batch); err != nil {
		e.t.Fatalf("CreateBatch(%q) failed: %v", number, err)
	}
	return batch
}

func (e *testEnv) alerts(filter types.AlertFilter) []*types.Alert {
	e.t.Helper()
	alerts, err := e.Store.ListAlerts(e.Ctx, filter)
	if err != nil {
		e.t.Fatalf("ListAlerts failed: %v", err)
	}
	return alerts
}

func TestCheckExpiringBands(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1", nil)

	tests := []struct {
		daysOut      int
		wantType     types.AlertType
		wantSeverity types.Severity
	}{
		{10, types.AlertExpirationCritical, types.SeverityCritical},
		{45, types.AlertExpiration, types.SeverityWarning},
		{75, types.AlertExpiration, types.SeverityWarning},
		{110, types.AlertExpiration, types.SeverityInfo},
	}
	batches := make([]*types.Batch, len(tests))
	for i, tt := range tests {
		batches[i] = env.createBatch(item, "GR-"+string(rune('A'+i)), "10", env.Today.AddDays(tt.daysOut))
	}
	// Outside every band: no alert.
	env.createBatch(item, "GR-FAR", "10", env.Today.AddDays(150))

	n, err := env.Generator.CheckExpiring(env.Ctx)
	if err != nil {
		t.Fatalf("CheckExpiring failed: %v", err)
	}
	if n != len(tests) {
		t.Fatalf("created %d alerts, want %d", n, len(tests))
	}

	byBatch := make(map[string]*types.Alert)
	for _, a := range env.alerts(types.AlertFilter{}) {
		byBatch[a.BatchID] = a
	}
	for i, tt := range tests {
		a, ok := byBatch[batches[i].ID]
		if !ok {
			t.Errorf("batch %d days out got no alert", tt.daysOut)
			continue
		}
		if a.Type != tt.wantType || a.Severity != tt.wantSeverity {
			t.Errorf("days %d: type/severity = %s/%s, want %s/%s",
				tt.daysOut, a.Type, a.Severity, tt.wantType, tt.wantSeverity)
		}
		if want := "Expiring batch: " + batches[i].BatchNumber; a.Title != want {
			t.Errorf("days %d: Title = %q, want %q", tt.daysOut, a.Title, want)
		}
	}
}

func TestCheckExpiringDedupe(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1", nil)
	env.createBatch(item, "GR-1", "10", env.Today.AddDays(10))

	first, err := env.Generator.CheckExpiring(env.Ctx)
	if err != nil {
		t.Fatalf("CheckExpiring failed: %v", err)
	}
	if first != 1 {
		t.Fatalf("first run created %d alerts, want 1", first)
	}

	// Same day, second run: nothing new.
	second, err := env.Generator.CheckExpiring(env.Ctx)
	if err != nil {
		t.Fatalf("CheckExpiring failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second run created %d alerts, want 0", second)
	}
	if got := len(env.alerts(types.AlertFilter{})); got != 1 {
		t.Errorf("alert count = %d, want 1", got)
	}
}

func TestCheckExpiredSweep(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1", nil)
	expired := env.createBatch(item, "GR-OLD", "8.500", env.Today.AddDays(-3))
	fresh := env.createBatch(item, "GR-NEW", "10", env.Today.AddDays(90))

	swept, alertsCreated, err := env.Generator.CheckExpired(env.Ctx)
	if err != nil {
		t.Fatalf("CheckExpired failed: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept %d batches, want 1", swept)
	}
	if alertsCreated != 1 {
		t.Fatalf("created %d alerts, want 1", alertsCreated)
	}

	scrapped, err := env.Store.GetBatch(env.Ctx, expired.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if scrapped.Status != types.BatchScrap {
		t.Errorf("Status = %s, want SCRAP", scrapped.Status)
	}
	// The quantity stays: it records what waits in the scrap area.
	if !scrapped.QuantityAvailable.Equal(dec("8.500")) {
		t.Errorf("QuantityAvailable = %s, want untouched 8.500", scrapped.QuantityAvailable)
	}
	if !strings.Contains(scrapped.Notes, "Auto-scrapped: expired on "+scrapped.ExpirationDate.String()) {
		t.Errorf("Notes = %q, want auto-scrap note", scrapped.Notes)
	}

	// The sweep is a status transition, not a stock movement.
	movements, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{BatchID: expired.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("sweep wrote %d movements, want 0", len(movements))
	}

	untouched, err := env.Store.GetBatch(env.Ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if untouched.Status != types.BatchActive {
		t.Errorf("fresh batch status = %s, want ACTIVE", untouched.Status)
	}

	alerts := env.alerts(types.AlertFilter{Type: types.AlertExpired})
	if len(alerts) != 1 || alerts[0].Severity != types.SeverityCritical {
		t.Errorf("expired alerts = %d, want one CRITICAL", len(alerts))
	}
	if want := "Expired batch scrapped: GR-OLD"; alerts[0].Title != want {
		t.Errorf("Title = %q, want %q", alerts[0].Title, want)
	}

	// A second sweep finds nothing: the batch is no longer ACTIVE.
	swept, alertsCreated, err = env.Generator.CheckExpired(env.Ctx)
	if err != nil {
		t.Fatalf("second CheckExpired failed: %v", err)
	}
	if swept != 0 || alertsCreated != 0 {
		t.Errorf("second sweep = %d batches, %d alerts, want 0, 0", swept, alertsCreated)
	}
}

func TestCheckLowStock(t *testing.T) {
	env := newTestEnv(t)

	reorder := dec("50")
	minStock := dec("20")
	critical := env.createItem("INK-CRIT", func(i *types.Item) {
		i.ReorderPoint = &reorder
		i.MinStock = &minStock
	})
	warning := env.createItem("INK-WARN", func(i *types.Item) {
		i.ReorderPoint = &reorder
		i.MinStock = &minStock
	})
	env.createItem("INK-OK", func(i *types.Item) {
		i.ReorderPoint = &reorder
	})
	unwatched := env.createItem("INK-NOTHRESHOLD", nil)

	env.createBatch(critical, "GR-C", "10", env.Today.AddDays(90))
	env.createBatch(warning, "GR-W", "30", env.Today.AddDays(90))
	env.createBatch(unwatched, "GR-N", "1", env.Today.AddDays(90))

	n, err := env.Generator.CheckLowStock(env.Ctx)
	if err != nil {
		t.Fatalf("CheckLowStock failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("created %d alerts, want 2", n)
	}

	byItem := make(map[string]*types.Alert)
	for _, a := range env.alerts(types.AlertFilter{Type: types.AlertLowStock}) {
		byItem[a.ItemID] = a
	}
	if a := byItem[critical.ID]; a == nil || a.Severity != types.SeverityCritical {
		t.Errorf("below min_stock should be CRITICAL, got %+v", a)
	} else if a.Title != "Low stock: INK-CRIT" {
		t.Errorf("Title = %q, want %q", a.Title, "Low stock: INK-CRIT")
	}
	if a := byItem[warning.ID]; a == nil || a.Severity != types.SeverityWarning {
		t.Errorf("below reorder_point should be WARNING, got %+v", a)
	}

	// Same-day dedupe per item.
	n, err = env.Generator.CheckLowStock(env.Ctx)
	if err != nil {
		t.Fatalf("second CheckLowStock failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second run created %d alerts, want 0", n)
	}
}

func TestCheckDeadStock(t *testing.T) {
	env := newTestEnv(t)
	idleItem := env.createItem("INK-IDLE", nil)
	idle1 := env.createBatch(idleItem, "GR-IDLE-1", "10", env.Today.AddDays(300))
	idle2 := env.createBatch(idleItem, "GR-IDLE-2", "4", env.Today.AddDays(300))
	busyItem := env.createItem("INK-BUSY", nil)
	stale := env.createBatch(busyItem, "GR-STALE", "10", env.Today.AddDays(300))
	fresh := env.createBatch(busyItem, "GR-FRESH", "10", env.Today.AddDays(300))

	old := env.Today.AddDays(-200).Time()
	recent := env.Today.AddDays(-5).Time()
	for _, m := range []*types.Movement{
		{BatchID: idle1.ID, Type: types.MovementReceipt, Quantity: dec("10"), QuantityAfter: dec("10"), PerformedBy: env.User.ID, CreatedAt: old},
		{BatchID: idle2.ID, Type: types.MovementReceipt, Quantity: dec("4"), QuantityAfter: dec("4"), PerformedBy: env.User.ID, CreatedAt: old},
		{BatchID: stale.ID, Type: types.MovementReceipt, Quantity: dec("10"), QuantityAfter: dec("10"), PerformedBy: env.User.ID, CreatedAt: old},
		{BatchID: fresh.ID, Type: types.MovementReceipt, Quantity: dec("10"), QuantityAfter: dec("10"), PerformedBy: env.User.ID, CreatedAt: recent},
	} {
		if err := env.Store.InsertMovement(env.Ctx, m); err != nil {
			t.Fatalf("InsertMovement failed: %v", err)
		}
	}

	// One alert per item: the two stale batches of INK-IDLE collapse into
	// one, and INK-BUSY's recent movement keeps the whole item alive.
	n, err := env.Generator.CheckDeadStock(env.Ctx)
	if err != nil {
		t.Fatalf("CheckDeadStock failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("created %d alerts, want 1", n)
	}
	alerts := env.alerts(types.AlertFilter{Type: types.AlertDeadStock})
	if len(alerts) != 1 {
		t.Fatalf("listed %d dead stock alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.ItemID != idleItem.ID || a.BatchID != "" {
		t.Errorf("alert keyed item=%q batch=%q, want item %q with no batch", a.ItemID, a.BatchID, idleItem.ID)
	}
	if want := "Dead stock: INK-IDLE"; a.Title != want {
		t.Errorf("Title = %q, want %q", a.Title, want)
	}
	// Idle days and total come from the pinned clock and the whole batch set.
	if !strings.Contains(a.Message, "not moved in 200 days") {
		t.Errorf("Message = %q, want 200 idle days from the pinned clock", a.Message)
	}
	if !strings.Contains(a.Message, "14") {
		t.Errorf("Message = %q, want total 14 over both batches", a.Message)
	}

	// The seven-day window suppresses a repeat.
	n, err = env.Generator.CheckDeadStock(env.Ctx)
	if err != nil {
		t.Fatalf("second CheckDeadStock failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second run created %d alerts, want 0", n)
	}
}

func TestRunAll(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1", nil)
	env.createBatch(item, "GR-SOON", "10", env.Today.AddDays(10))
	env.createBatch(item, "GR-OLD", "5", env.Today.AddDays(-1))

	report, err := env.Generator.RunAll(env.Ctx)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if report.ExpiringAlerts != 1 {
		t.Errorf("ExpiringAlerts = %d, want 1", report.ExpiringAlerts)
	}
	if report.ExpiredBatches != 1 {
		t.Errorf("ExpiredBatches = %d, want 1", report.ExpiredBatches)
	}
	if report.ExpiredAlerts != 1 {
		t.Errorf("ExpiredAlerts = %d, want 1", report.ExpiredAlerts)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}
	// The total counts alerts from all four checks, the expired sweep
	// included.
	if report.TotalNewAlerts != 2 {
		t.Errorf("TotalNewAlerts = %d, want 2 (expiring + expired)", report.TotalNewAlerts)
	}
	if report.TotalNewAlerts != report.ExpiringAlerts+report.ExpiredAlerts+report.LowStockAlerts+report.DeadStockAlerts {
		t.Errorf("TotalNewAlerts inconsistent: %+v", report)
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Errorf("FinishedAt before StartedAt")
	}

	// Second run the same day is a no-op for alerts.
	report, err = env.Generator.RunAll(env.Ctx)
	if err != nil {
		t.Fatalf("second RunAll failed: %v", err)
	}
	if report.TotalNewAlerts != 0 {
		t.Errorf("second run TotalNewAlerts = %d, want 0", report.TotalNewAlerts)
	}
}

func TestCustomBands(t *testing.T) {
	env := newTestEnv(t)
	gen := NewWithClock(env.Store, logging.Discard(), Config{Bands: []int{14, 7}}, func() types.Date { return env.Today })
	item := env.createItem("INK-1", nil)
	env.createBatch(item, "GR-IN", "10", env.Today.AddDays(5))
	env.createBatch(item, "GR-OUT", "10", env.Today.AddDays(30))

	n, err := gen.CheckExpiring(env.Ctx)
	if err != nil {
		t.Fatalf("CheckExpiring failed: %v", err)
	}
	if n != 1 {
		t.Errorf("created %d alerts, want 1 (only the 5-day batch)", n)
	}
}

package fefo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

type testEnv struct {
	t      *testing.T
	Store  *sqlite.SQLiteStorage
	Engine *Engine
	Ctx    context.Context
	Today  types.Date
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
	return &testEnv{
		t:      t,
		Store:  store,
		Engine: NewWithClock(store, func() types.Date { return today }),
		Ctx:    context.Background(),
		Today:  today,
	}
}

func (e *testEnv) createItem(sku string) *types.Item {
	e.t.Helper()
	item := &types.Item{SKU: sku, Name: sku + " ink", IsActive: true}
	if err := e.Store.CreateItem(e.Ctx, item); err != nil {
		e.t.Fatalf("CreateItem failed: %v", err)
	}
	return item
}

func (e *testEnv) createBatch(item *types.Item, number, qty string, expiration types.Date, status types.BatchStatus) *types.Batch {
	e.t.Helper()
	q := decimal.RequireFromString(qty)
	batch := &types.Batch{
		ItemID:            item.ID,
		BatchNumber:       number,
		QuantityReceived:  q,
		QuantityAvailable: q,
		ExpirationDate:    expiration,
		ReceiptDate:       expiration.AddDays(-90),
		Status:            status,
	}
	if err := e.Store.CreateBatch(e.Ctx, batch); err != nil {
		e.t.Fatalf("CreateBatch(%q) failed: %v", number, err)
	}
	return batch
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSuggestFEFOOrder(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")

	// Created out of expiration order on purpose.
	env.createBatch(item, "GR-LATE", "50", env.Today.AddDays(120), types.BatchActive)
	env.createBatch(item, "GR-EARLY", "20", env.Today.AddDays(10), types.BatchActive)
	env.createBatch(item, "GR-MID", "30", env.Today.AddDays(45), types.BatchActive)

	s, err := env.Engine.Suggest(env.Ctx, item.ID, dec("40"))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if !s.FullyAllocated {
		t.Errorf("FullyAllocated = false, want true")
	}
	if len(s.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(s.Lines))
	}
	if s.Lines[0].BatchNumber != "GR-EARLY" || !s.Lines[0].SuggestedQuantity.Equal(dec("20")) {
		t.Errorf("line 0 = %s/%s, want GR-EARLY/20", s.Lines[0].BatchNumber, s.Lines[0].SuggestedQuantity)
	}
	if s.Lines[1].BatchNumber != "GR-MID" || !s.Lines[1].SuggestedQuantity.Equal(dec("20")) {
		t.Errorf("line 1 = %s/%s, want GR-MID/20", s.Lines[1].BatchNumber, s.Lines[1].SuggestedQuantity)
	}
	for i := 1; i < len(s.Lines); i++ {
		if s.Lines[i].ExpirationDate.Before(s.Lines[i-1].ExpirationDate) {
			t.Errorf("lines out of FEFO order at %d", i)
		}
	}
	if s.Lines[0].WarningLevel != types.LevelCritical {
		t.Errorf("line 0 level = %s, want critical (10 days out)", s.Lines[0].WarningLevel)
	}
}

func TestSuggestPartialAllocation(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")
	env.createBatch(item, "GR-1", "15", env.Today.AddDays(30), types.BatchActive)

	s, err := env.Engine.Suggest(env.Ctx, item.ID, dec("40"))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if s.FullyAllocated {
		t.Errorf("FullyAllocated = true, want false")
	}
	if !s.AllocatedQuantity.Equal(dec("15")) {
		t.Errorf("AllocatedQuantity = %s, want 15", s.AllocatedQuantity)
	}
	if !s.Shortfall.Equal(dec("25")) {
		t.Errorf("Shortfall = %s, want 25", s.Shortfall)
	}
}

func TestSuggestExcludes(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")
	env.createBatch(item, "GR-EXPIRED", "10", env.Today.AddDays(-1), types.BatchActive)
	env.createBatch(item, "GR-SCRAP", "10", env.Today.AddDays(30), types.BatchScrap)
	depleted := env.createBatch(item, "GR-EMPTY", "10", env.Today.AddDays(30), types.BatchActive)
	depleted.QuantityAvailable = decimal.Zero
	depleted.Status = types.BatchDepleted
	if err := env.Store.UpdateBatch(env.Ctx, depleted); err != nil {
		t.Fatalf("UpdateBatch failed: %v", err)
	}

	s, err := env.Engine.Suggest(env.Ctx, item.ID, dec("5"))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(s.Lines) != 0 {
		t.Errorf("got %d lines, want 0 (expired, scrap and depleted excluded)", len(s.Lines))
	}
	if !s.Shortfall.Equal(dec("5")) {
		t.Errorf("Shortfall = %s, want 5", s.Shortfall)
	}
}

func TestSuggestErrors(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")

	if _, err := env.Engine.Suggest(env.Ctx, item.ID, decimal.Zero); !types.IsValidation(err) {
		t.Errorf("zero qty error = %v, want Validation", err)
	}
	if _, err := env.Engine.Suggest(env.Ctx, "missing", dec("1")); !types.IsNotFound(err) {
		t.Errorf("missing item error = %v, want NotFound", err)
	}
}

func issueCodes(issues []Issue) []string {
	codes := make([]string, len(issues))
	for i, is := range issues {
		codes[i] = is.Code
	}
	return codes
}

func hasIssue(issues []Issue, code string) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")
	early := env.createBatch(item, "GR-EARLY", "10", env.Today.AddDays(20), types.BatchActive)
	late := env.createBatch(item, "GR-LATE", "10", env.Today.AddDays(200), types.BatchActive)

	t.Run("clean pick", func(t *testing.T) {
		r, err := env.Engine.Validate(env.Ctx, early.ID, dec("5"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if !r.OK {
			t.Errorf("OK = false, errors: %v", issueCodes(r.Errors))
		}
		if !hasIssue(r.Warnings, types.CodeExpiringSoon) {
			t.Errorf("warnings = %v, want expiring_soon (20 days out)", issueCodes(r.Warnings))
		}
	})

	t.Run("fefo violation warns", func(t *testing.T) {
		r, err := env.Engine.Validate(env.Ctx, late.ID, dec("5"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if !r.OK {
			t.Errorf("warnings must not flip OK; errors: %v", issueCodes(r.Errors))
		}
		if !hasIssue(r.Warnings, types.CodeFEFOViolation) {
			t.Errorf("warnings = %v, want fefo_violation", issueCodes(r.Warnings))
		}
	})

	t.Run("insufficient quantity blocks", func(t *testing.T) {
		r, err := env.Engine.Validate(env.Ctx, early.ID, dec("99"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if r.OK {
			t.Error("OK = true, want false")
		}
		if !hasIssue(r.Errors, types.CodeInsufficientQuantity) {
			t.Errorf("errors = %v, want insufficient_quantity", issueCodes(r.Errors))
		}
	})

	t.Run("expired blocks", func(t *testing.T) {
		expired := env.createBatch(item, "GR-EXPIRED", "10", env.Today.AddDays(-5), types.BatchActive)
		r, err := env.Engine.Validate(env.Ctx, expired.ID, dec("1"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if r.OK || !hasIssue(r.Errors, types.CodeBatchExpired) {
			t.Errorf("errors = %v, want batch_expired", issueCodes(r.Errors))
		}
	})

	t.Run("inactive blocks", func(t *testing.T) {
		scrap := env.createBatch(item, "GR-SCRAP", "10", env.Today.AddDays(60), types.BatchScrap)
		r, err := env.Engine.Validate(env.Ctx, scrap.ID, dec("1"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if r.OK || !hasIssue(r.Errors, types.CodeBatchNotActive) {
			t.Errorf("errors = %v, want batch_not_active", issueCodes(r.Errors))
		}
	})

	t.Run("missing batch reported in-band", func(t *testing.T) {
		r, err := env.Engine.Validate(env.Ctx, "missing", dec("1"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if r.OK || !hasIssue(r.Errors, types.CodeBatchNotFound) {
			t.Errorf("errors = %v, want batch_not_found", issueCodes(r.Errors))
		}
	})

	t.Run("non-positive qty is a hard error", func(t *testing.T) {
		if _, err := env.Engine.Validate(env.Ctx, early.ID, decimal.Zero); !types.IsValidation(err) {
			t.Errorf("error = %v, want Validation", err)
		}
	})
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	item := env.createItem("INK-1")
	env.createBatch(item, "GR-EXPIRED", "5", env.Today.AddDays(-10), types.BatchActive)
	env.createBatch(item, "GR-CRIT", "10", env.Today.AddDays(15), types.BatchActive)
	env.createBatch(item, "GR-SAFE", "100", env.Today.AddDays(300), types.BatchActive)
	env.createBatch(item, "GR-SCRAP", "50", env.Today.AddDays(300), types.BatchScrap)

	s, err := env.Engine.Summary(env.Ctx, item.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if s.TotalBatches != 3 {
		t.Errorf("TotalBatches = %d, want 3 (SCRAP excluded)", s.TotalBatches)
	}
	if !s.TotalQuantity.Equal(dec("115")) {
		t.Errorf("TotalQuantity = %s, want 115", s.TotalQuantity)
	}
	// Every level is present, zeros included.
	for _, level := range types.WarningLevels {
		if _, ok := s.Levels[level]; !ok {
			t.Errorf("level %s missing from summary", level)
		}
	}
	if s.Levels[types.LevelExpired].Batches != 1 || !s.Levels[types.LevelExpired].Quantity.Equal(dec("5")) {
		t.Errorf("expired bucket = %+v", s.Levels[types.LevelExpired])
	}
	if s.Levels[types.LevelCritical].Batches != 1 {
		t.Errorf("critical bucket = %+v", s.Levels[types.LevelCritical])
	}
	if s.Levels[types.LevelSafe].Batches != 1 {
		t.Errorf("safe bucket = %+v", s.Levels[types.LevelSafe])
	}
	if s.Levels[types.LevelWarning].Batches != 0 {
		t.Errorf("warning bucket should be empty: %+v", s.Levels[types.LevelWarning])
	}
}

func TestExpirationWarning(t *testing.T) {
	today := types.MustParseDate("2026-06-01")
	tests := []struct {
		name      string
		expiry    types.Date
		wantNil   bool
		wantLevel types.Severity
	}{
		{"far out", today.AddDays(200), true, ""},
		{"exactly 180", today.AddDays(180), true, ""},
		{"info band", today.AddDays(90), false, types.SeverityInfo},
		{"warning band", today.AddDays(45), false, types.SeverityWarning},
		{"critical band", today.AddDays(10), false, types.SeverityCritical},
		{"expires today", today, false, types.SeverityCritical},
		{"already expired", today.AddDays(-3), false, types.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ExpirationWarning(tt.expiry, today)
			if tt.wantNil {
				if w != nil {
					t.Fatalf("got %+v, want nil", w)
				}
				return
			}
			if w == nil {
				t.Fatal("got nil, want warning")
			}
			if w.Level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", w.Level, tt.wantLevel)
			}
		})
	}
}

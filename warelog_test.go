package warelog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog"
)

func TestNewSQLiteStorage(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	ctx := context.Background()
	store, err := warelog.NewSQLiteStorage(ctx, dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Error("expected non-nil storage")
	}
}

// Exercise the facade end to end: catalog an item, receive a batch, ask
// the FEFO engine for a pick.
func TestFacadeReceiveAndSuggest(t *testing.T) {
	ctx := context.Background()
	store, err := warelog.NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer store.Close()

	item := &warelog.Item{
		SKU:      "INK-001",
		Name:     "Cyan base",
		Unit:     "kg",
		IsActive: true,
	}
	if err := store.CreateItem(ctx, item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	svc := warelog.NewReceivingService(store)
	receipt, err := svc.Receive(ctx, warelog.ReceiveInput{
		ItemID:         item.ID,
		Quantity:       decimal.RequireFromString("25"),
		ExpirationDate: warelog.Today().AddDays(90),
		PerformedBy:    "tester",
	})
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if receipt.Batch.Status != warelog.BatchActive {
		t.Errorf("batch status = %s, want %s", receipt.Batch.Status, warelog.BatchActive)
	}
	if receipt.GRNNumber == "" {
		t.Error("expected a goods receipt number")
	}

	engine := warelog.NewFEFOEngine(store)
	suggestion, err := engine.Suggest(ctx, item.ID, decimal.RequireFromString("10"))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if len(suggestion.Lines) != 1 {
		t.Fatalf("expected 1 suggestion line, got %d", len(suggestion.Lines))
	}
	if got := suggestion.Lines[0].SuggestedQuantity.String(); got != "10" {
		t.Errorf("suggested quantity = %s, want 10", got)
	}
	if !suggestion.FullyAllocated {
		t.Error("expected full allocation")
	}
}

func TestConstants(t *testing.T) {
	if warelog.BatchActive != "ACTIVE" {
		t.Errorf("BatchActive = %q, want %q", warelog.BatchActive, "ACTIVE")
	}
	if warelog.DNDraft != "DRAFT" {
		t.Errorf("DNDraft = %q, want %q", warelog.DNDraft, "DRAFT")
	}
	if warelog.MovementReceipt != "RECEIPT" {
		t.Errorf("MovementReceipt = %q, want %q", warelog.MovementReceipt, "RECEIPT")
	}
	if warelog.RoleWarehouseWorker != "warehouse_worker" {
		t.Errorf("RoleWarehouseWorker = %q, want %q", warelog.RoleWarehouseWorker, "warehouse_worker")
	}
}

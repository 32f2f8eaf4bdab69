package sqlite

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

func TestBatchCRUD(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	loc := env.CreateLocation("A-01")
	today := types.Today()

	batch := env.CreateBatch(item, "GR-260101-001", "100.500", today.AddDays(60))
	batch.LocationID = loc.ID
	batch.Notes = "first delivery"
	if err := env.Store.UpdateBatch(env.Ctx, batch); err != nil {
		t.Fatalf("UpdateBatch failed: %v", err)
	}

	got, err := env.Store.GetBatch(env.Ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if got.LocationID != loc.ID {
		t.Errorf("LocationID = %q, want %q", got.LocationID, loc.ID)
	}
	if !got.QuantityAvailable.Equal(batch.QuantityAvailable) {
		t.Errorf("QuantityAvailable = %s, want %s", got.QuantityAvailable, batch.QuantityAvailable)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}

	byNumber, err := env.Store.GetBatchByNumber(env.Ctx, "GR-260101-001")
	if err != nil {
		t.Fatalf("GetBatchByNumber failed: %v", err)
	}
	if byNumber.ID != batch.ID {
		t.Errorf("GetBatchByNumber returned %s, want %s", byNumber.ID, batch.ID)
	}
}

func TestBatchDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	env.CreateBatch(item, "GR-260101-001", "10", types.Today().AddDays(30))

	err := env.Store.CreateBatch(env.Ctx, &types.Batch{
		ItemID:            item.ID,
		BatchNumber:       "GR-260101-001",
		QuantityReceived:  decimal.RequireFromString("5"),
		QuantityAvailable: decimal.RequireFromString("5"),
		ExpirationDate:    types.Today().AddDays(30),
		ReceiptDate:       types.Today(),
	})
	if !types.IsConflict(err) {
		t.Fatalf("duplicate batch number error = %v, want Conflict", err)
	}
}

func TestActiveBatchesByItemFEFOOrder(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	today := types.Today()

	// Created out of order; the query must return FEFO order.
	env.CreateBatch(item, "GR-B", "10", today.AddDays(90))
	env.CreateBatch(item, "GR-A", "10", today.AddDays(20))
	env.CreateBatch(item, "GR-C", "10", today.AddDays(90))

	batches, err := env.Store.ActiveBatchesByItem(env.Ctx, item.ID)
	if err != nil {
		t.Fatalf("ActiveBatchesByItem failed: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[0].BatchNumber != "GR-A" {
		t.Errorf("first batch = %s, want GR-A (earliest expiration)", batches[0].BatchNumber)
	}
	for i := 1; i < len(batches); i++ {
		if batches[i].ExpirationDate.Before(batches[i-1].ExpirationDate) {
			t.Errorf("batches out of FEFO order at %d", i)
		}
	}
	if batches[0].ItemSKU != "INK-1" || batches[0].ItemName != "Black ink" {
		t.Errorf("missing item context: %+v", batches[0])
	}
}

func TestExpiredAndExpiringScans(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	today := types.Today()

	env.CreateBatch(item, "GR-EXPIRED", "10", today.AddDays(-1))
	env.CreateBatch(item, "GR-SOON", "10", today.AddDays(15))
	env.CreateBatch(item, "GR-LATER", "10", today.AddDays(200))

	expired, err := env.Store.ExpiredActiveBatches(env.Ctx, today)
	if err != nil {
		t.Fatalf("ExpiredActiveBatches failed: %v", err)
	}
	if len(expired) != 1 || expired[0].BatchNumber != "GR-EXPIRED" {
		t.Errorf("expired scan = %v, want [GR-EXPIRED]", batchNumbers(expired))
	}

	expiring, err := env.Store.ExpiringBatches(env.Ctx, today, today.AddDays(30))
	if err != nil {
		t.Fatalf("ExpiringBatches failed: %v", err)
	}
	if len(expiring) != 1 || expiring[0].BatchNumber != "GR-SOON" {
		t.Errorf("expiring scan = %v, want [GR-SOON]", batchNumbers(expiring))
	}
}

func TestDeleteItemWithBatchesRestricted(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	env.CreateBatch(item, "GR-1", "10", types.Today().AddDays(30))

	err := env.Store.DeleteItem(env.Ctx, item.ID)
	if !types.IsConflict(err) {
		t.Fatalf("DeleteItem error = %v, want Conflict", err)
	}
	if code := types.ConflictCode(err); code != types.CodeHasBatches {
		t.Errorf("code = %q, want %q", code, types.CodeHasBatches)
	}

	// An item without batches deletes cleanly.
	empty := env.CreateItem("INK-2", "Cyan ink")
	if err := env.Store.DeleteItem(env.Ctx, empty.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if _, err := env.Store.GetItem(env.Ctx, empty.ID); !types.IsNotFound(err) {
		t.Errorf("deleted item lookup = %v, want NotFound", err)
	}
}

func batchNumbers(batches []*types.BatchWithContext) []string {
	numbers := make([]string, len(batches))
	for i, b := range batches {
		numbers[i] = b.BatchNumber
	}
	return numbers
}

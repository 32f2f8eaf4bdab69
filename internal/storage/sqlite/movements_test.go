package sqlite

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

func insertTestMovement(t *testing.T, env *testEnv, batch *types.Batch, user *types.User, mtype types.MovementType, qty string, at time.Time) *types.Movement {
	t.Helper()
	q := decimal.RequireFromString(qty)
	m := &types.Movement{
		BatchID:        batch.ID,
		Type:           mtype,
		Quantity:       q,
		QuantityBefore: decimal.Zero,
		QuantityAfter:  q,
		PerformedBy:    user.ID,
		CreatedAt:      at,
	}
	if err := env.Store.InsertMovement(env.Ctx, m); err != nil {
		t.Fatalf("InsertMovement failed: %v", err)
	}
	return m
}

func TestListMovementsFilters(t *testing.T) {
	env := newTestEnv(t)
	user := env.CreateUser("worker", types.RoleWarehouseWorker)
	itemA := env.CreateItem("INK-A", "Black ink")
	itemB := env.CreateItem("INK-B", "Cyan ink")
	today := types.Today()
	batchA := env.CreateBatch(itemA, "GR-A", "100", today.AddDays(30))
	batchB := env.CreateBatch(itemB, "GR-B", "100", today.AddDays(30))

	now := time.Now().UTC()
	insertTestMovement(t, env, batchA, user, types.MovementReceipt, "100", now.Add(-2*time.Hour))
	insertTestMovement(t, env, batchA, user, types.MovementDispatch, "30", now.Add(-time.Hour))
	insertTestMovement(t, env, batchB, user, types.MovementReceipt, "100", now)

	t.Run("by batch", func(t *testing.T) {
		got, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{BatchID: batchA.ID})
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d movements, want 2", len(got))
		}
		// Newest first.
		if got[0].Type != types.MovementDispatch {
			t.Errorf("first movement = %s, want DISPATCH", got[0].Type)
		}
		if got[0].BatchNumber != "GR-A" || got[0].ItemSKU != "INK-A" {
			t.Errorf("missing context: %+v", got[0])
		}
	})

	t.Run("by item", func(t *testing.T) {
		got, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{ItemID: itemB.ID})
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(got) != 1 || got[0].BatchNumber != "GR-B" {
			t.Errorf("item filter returned wrong rows: %d", len(got))
		}
	})

	t.Run("by type", func(t *testing.T) {
		got, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{Type: types.MovementDispatch})
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("type filter returned %d rows, want 1", len(got))
		}
	})

	t.Run("by window", func(t *testing.T) {
		from := now.Add(-90 * time.Minute)
		got, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{From: &from})
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("window filter returned %d rows, want 2", len(got))
		}
	})

	t.Run("limit clamps", func(t *testing.T) {
		got, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{Limit: 1})
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("limit 1 returned %d rows", len(got))
		}
	})
}

func TestAlertDedupe(t *testing.T) {
	env := newTestEnv(t)
	item := env.CreateItem("INK-1", "Black ink")
	batch := env.CreateBatch(item, "GR-1", "10", types.Today().AddDays(10))

	alert := &types.Alert{
		Type:     types.AlertExpirationCritical,
		Severity: types.SeverityCritical,
		BatchID:  batch.ID,
		ItemID:   item.ID,
		Message:  "batch GR-1 expires in 10 days",
	}
	if err := env.Store.InsertAlert(env.Ctx, alert); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}

	midnight := types.Today().Time()
	exists, err := env.Store.AlertExists(env.Ctx, types.AlertExpirationCritical, batch.ID, "", types.SeverityCritical, midnight)
	if err != nil {
		t.Fatalf("AlertExists failed: %v", err)
	}
	if !exists {
		t.Error("AlertExists should find today's alert")
	}

	exists, err = env.Store.AlertExists(env.Ctx, types.AlertLowStock, "", item.ID, "", midnight)
	if err != nil {
		t.Fatalf("AlertExists failed: %v", err)
	}
	if exists {
		t.Error("AlertExists should not match a different type")
	}

	unread, err := env.Store.CountUnreadAlerts(env.Ctx)
	if err != nil {
		t.Fatalf("CountUnreadAlerts failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}

	if err := env.Store.DismissAlert(env.Ctx, alert.ID); err != nil {
		t.Fatalf("DismissAlert failed: %v", err)
	}
	listed, err := env.Store.ListAlerts(env.Ctx, types.AlertFilter{})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("dismissed alerts should be excluded, got %d", len(listed))
	}
}

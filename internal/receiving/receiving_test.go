package receiving

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

type testEnv struct {
	t       *testing.T
	Store   *sqlite.SQLiteStorage
	Service *Service
	Ctx     context.Context
	Today   types.Date
	User    *types.User
	Item    *types.Item
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
		t:       t,
		Store:   store,
		Service: NewWithClock(store, func() types.Date { return today }),
		Ctx:     context.Background(),
		Today:   today,
	}
	env.User = &types.User{Username: "worker", Role: types.RoleWarehouseWorker, IsActive: true}
	if err := store.CreateUser(env.Ctx, env.User); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	env.Item = &types.Item{SKU: "INK-1", Name: "Black ink", IsActive: true}
	if err := store.CreateItem(env.Ctx, env.Item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	return env
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEnv) input(qty string) Input {
	return Input{
		ItemID:         e.Item.ID,
		Quantity:       dec(qty),
		ExpirationDate: e.Today.AddDays(90),
		PerformedBy:    e.User.ID,
	}
}

func TestReceive(t *testing.T) {
	env := newTestEnv(t)

	receipt, err := env.Service.Receive(env.Ctx, env.input("25.500"))
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	datePart := env.Today.Time().Format("060102")
	wantNumber := fmt.Sprintf("GR-%s-001", datePart)
	if receipt.Batch.BatchNumber != wantNumber {
		t.Errorf("BatchNumber = %q, want %q", receipt.Batch.BatchNumber, wantNumber)
	}
	if receipt.GRNNumber != wantNumber {
		t.Errorf("GRNNumber = %q, want the GR number for a single receive", receipt.GRNNumber)
	}
	if receipt.Batch.Status != types.BatchActive {
		t.Errorf("Status = %s, want ACTIVE", receipt.Batch.Status)
	}
	if !receipt.Batch.QuantityAvailable.Equal(dec("25.500")) {
		t.Errorf("QuantityAvailable = %s, want 25.500", receipt.Batch.QuantityAvailable)
	}
	if !receipt.Movement.QuantityBefore.IsZero() || !receipt.Movement.QuantityAfter.Equal(dec("25.500")) {
		t.Errorf("movement before/after = %s/%s, want 0/25.500",
			receipt.Movement.QuantityBefore, receipt.Movement.QuantityAfter)
	}
	if receipt.Movement.ReferenceNumber != wantNumber {
		t.Errorf("ReferenceNumber = %q, want %q", receipt.Movement.ReferenceNumber, wantNumber)
	}
	if !receipt.Batch.ReceiptDate.Equal(env.Today) {
		t.Errorf("ReceiptDate = %s, want today", receipt.Batch.ReceiptDate)
	}
}

func TestReceiveSequentialNumbers(t *testing.T) {
	env := newTestEnv(t)

	var numbers []string
	for i := 0; i < 3; i++ {
		receipt, err := env.Service.Receive(env.Ctx, env.input("10"))
		if err != nil {
			t.Fatalf("Receive #%d failed: %v", i+1, err)
		}
		numbers = append(numbers, receipt.Batch.BatchNumber)
	}
	for i := 1; i < len(numbers); i++ {
		if numbers[i] <= numbers[i-1] {
			t.Errorf("numbers not ascending: %v", numbers)
		}
	}
}

func TestReceiveExplicitBatchNumber(t *testing.T) {
	env := newTestEnv(t)

	input := env.input("10")
	input.BatchNumber = "SUPPLIER-LOT-7"
	receipt, err := env.Service.Receive(env.Ctx, input)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if receipt.Batch.BatchNumber != "SUPPLIER-LOT-7" {
		t.Errorf("BatchNumber = %q, want supplier lot", receipt.Batch.BatchNumber)
	}

	// The same supplier lot cannot be received twice.
	_, err = env.Service.Receive(env.Ctx, input)
	if code := types.ValidationCode(err); code != types.CodeDuplicateBatchNumber {
		t.Errorf("code = %q, want %q (err: %v)", code, types.CodeDuplicateBatchNumber, err)
	}
}

func TestReceiveValidation(t *testing.T) {
	env := newTestEnv(t)

	inactive := &types.Item{SKU: "INK-OLD", Name: "Discontinued", IsActive: false}
	if err := env.Store.CreateItem(env.Ctx, inactive); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	badLoc := &types.Location{Code: "Z-99", IsActive: false}
	if err := env.Store.CreateLocation(env.Ctx, badLoc); err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}

	tests := []struct {
		name     string
		mutate   func(*Input)
		wantCode string
	}{
		{"zero quantity", func(in *Input) { in.Quantity = decimal.Zero }, types.CodeInvalidQuantity},
		{"expired on arrival", func(in *Input) { in.ExpirationDate = env.Today.AddDays(-1) }, types.CodeExpiredOnArrival},
		{"future receipt date", func(in *Input) { in.ReceiptDate = env.Today.AddDays(1) }, types.CodeFutureReceiptDate},
		{"missing item", func(in *Input) { in.ItemID = "missing" }, types.CodeItemNotFound},
		{"inactive item", func(in *Input) { in.ItemID = inactive.ID }, types.CodeItemInactive},
		{"missing location", func(in *Input) { in.LocationID = "missing" }, types.CodeLocationNotFound},
		{"inactive location", func(in *Input) { in.LocationID = badLoc.ID }, types.CodeLocationInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := env.input("10")
			tt.mutate(&input)
			_, err := env.Service.Receive(env.Ctx, input)
			if code := types.ValidationCode(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestReceiveMultiple(t *testing.T) {
	env := newTestEnv(t)

	inputs := []Input{
		env.input("10"),
		env.input("20"),
		env.input("30"),
	}
	result, err := env.Service.ReceiveMultiple(env.Ctx, inputs, env.User.ID)
	if err != nil {
		t.Fatalf("ReceiveMultiple failed: %v", err)
	}

	datePart := env.Today.Time().Format("060102")
	wantGRN := fmt.Sprintf("GRN-%s-001", datePart)
	if result.GRNNumber != wantGRN {
		t.Errorf("GRNNumber = %q, want %q", result.GRNNumber, wantGRN)
	}
	if len(result.Receipts) != 3 {
		t.Fatalf("got %d receipts, want 3", len(result.Receipts))
	}
	for i, r := range result.Receipts {
		if r.GRNNumber != wantGRN {
			t.Errorf("receipt %d GRN = %q, want shared %q", i, r.GRNNumber, wantGRN)
		}
		if r.Batch.GRNNumber != wantGRN {
			t.Errorf("receipt %d batch GRN = %q, want %q", i, r.Batch.GRNNumber, wantGRN)
		}
		if r.Movement.ReferenceNumber != wantGRN {
			t.Errorf("receipt %d movement reference = %q, want %q", i, r.Movement.ReferenceNumber, wantGRN)
		}
	}
	// Receipts come back in input order.
	if !result.Receipts[0].Batch.QuantityAvailable.Equal(dec("10")) ||
		!result.Receipts[2].Batch.QuantityAvailable.Equal(dec("30")) {
		t.Errorf("receipts out of input order")
	}
}

func TestReceiveMultipleAtomic(t *testing.T) {
	env := newTestEnv(t)

	bad := env.input("20")
	bad.ItemID = "missing"
	inputs := []Input{env.input("10"), bad}

	_, err := env.Service.ReceiveMultiple(env.Ctx, inputs, env.User.ID)
	if !types.IsValidation(err) {
		t.Fatalf("error = %v, want Validation", err)
	}

	// Nothing from the failed delivery may exist.
	stats, serr := env.Store.GetStatistics(env.Ctx)
	if serr != nil {
		t.Fatalf("GetStatistics failed: %v", serr)
	}
	if stats.Batches != 0 || stats.Movements != 0 {
		t.Errorf("failed delivery left batches=%d movements=%d", stats.Batches, stats.Movements)
	}
}

func TestReceiveMultipleEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Service.ReceiveMultiple(env.Ctx, nil, env.User.ID)
	if code := types.ValidationCode(err); code != types.CodeMinOneLine {
		t.Errorf("code = %q, want %q", code, types.CodeMinOneLine)
	}
}

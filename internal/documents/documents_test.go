package documents

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

type testEnv struct {
	t        *testing.T
	Store    *sqlite.SQLiteStorage
	Service  *Service
	Ctx      context.Context
	Today    types.Date
	User     *types.User
	Customer *types.Customer
	Item     *types.Item
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
	env.User = &types.User{Username: "manager", FullName: "Dana Levi", Role: types.RoleManager, IsActive: true}
	if err := store.CreateUser(env.Ctx, env.User); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	env.Customer = &types.Customer{Name: "PrintCo", Address: "12 Harbor St", IsActive: true}
	if err := store.CreateCustomer(env.Ctx, env.Customer); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	env.Item = &types.Item{SKU: "INK-1", Name: "Black ink", Unit: "kg", IsActive: true}
	if err := store.CreateItem(env.Ctx, env.Item); err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	return env
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEnv) createBatch(number, qty string, daysOut int) *types.Batch {
	e.t.Helper()
	q := decimal.RequireFromString(qty)
	batch := &types.Batch{
		ItemID:            e.Item.ID,
		BatchNumber:       number,
		QuantityReceived:  q,
		QuantityAvailable: q,
		ExpirationDate:    e.Today.AddDays(daysOut),
		ReceiptDate:       e.Today.AddDays(-1),
		Status:            types.BatchActive,
	}
	if err := e.Store.CreateBatch(e.Ctx, batch); err != nil {
		e.t.Fatalf("CreateBatch(%q) failed: %v", number, err)
	}
	return batch
}

func (e *testEnv) createNote(lines []Line) *CreateResult {
	e.t.Helper()
	result, err := e.Service.Create(e.Ctx, CreateInput{
		CustomerID: e.Customer.ID,
		Lines:      lines,
		CreatedBy:  e.User.ID,
	})
	if err != nil {
		e.t.Fatalf("Create failed: %v", err)
	}
	return result
}

func TestCreateCommitsStock(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "50", 100)

	result := env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("20")}})

	if result.Note.Status != types.DNDraft {
		t.Errorf("Status = %s, want DRAFT", result.Note.Status)
	}
	if !strings.HasPrefix(result.Note.DNNumber, "DN-") || !strings.HasSuffix(result.Note.DNNumber, "-0001") {
		t.Errorf("DNNumber = %q, want DN-YYMMDD-0001", result.Note.DNNumber)
	}
	if len(result.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(result.Items))
	}

	// Stock is committed at DRAFT creation.
	updated, err := env.Store.GetBatch(env.Ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if !updated.QuantityAvailable.Equal(dec("30")) {
		t.Errorf("QuantityAvailable = %s, want 30", updated.QuantityAvailable)
	}

	movements, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{BatchID: batch.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].Type != types.MovementDispatch {
		t.Fatalf("movements = %d, want one DISPATCH", len(movements))
	}
	if movements[0].ReferenceNumber != result.Note.DNNumber {
		t.Errorf("movement reference = %q, want %q", movements[0].ReferenceNumber, result.Note.DNNumber)
	}
}

func TestCreateCollectsWarnings(t *testing.T) {
	env := newTestEnv(t)
	env.createBatch("GR-EARLY", "50", 10)
	late := env.createBatch("GR-LATE", "50", 200)

	result := env.createNote([]Line{{BatchID: late.ID, Quantity: dec("5")}})

	found := false
	for _, w := range result.Warnings {
		if w.Code == types.CodeFEFOViolation {
			found = true
			if !strings.Contains(w.Message, "GR-EARLY") {
				t.Errorf("fefo warning should name the earlier batch: %q", w.Message)
			}
		}
	}
	if !found {
		t.Errorf("warnings = %+v, want fefo_violation", result.Warnings)
	}
}

func TestCreateBlocksOnHardErrors(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "10", 100)

	tests := []struct {
		name     string
		lines    []Line
		wantCode string
	}{
		{"insufficient", []Line{{BatchID: batch.ID, Quantity: dec("99")}}, types.CodeInsufficientQuantity},
		{"missing batch", []Line{{BatchID: "missing", Quantity: dec("1")}}, types.CodeBatchNotFound},
		{"no lines", nil, types.CodeMinOneLine},
		{"zero quantity", []Line{{BatchID: batch.ID, Quantity: decimal.Zero}}, types.CodeInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Service.Create(env.Ctx, CreateInput{
				CustomerID: env.Customer.ID,
				Lines:      tt.lines,
				CreatedBy:  env.User.ID,
			})
			if code := types.ValidationCode(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q (err: %v)", code, tt.wantCode, err)
			}
		})
	}

	// A blocked note must not leave partial dispatches behind.
	got, err := env.Store.GetBatch(env.Ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if !got.QuantityAvailable.Equal(dec("10")) {
		t.Errorf("QuantityAvailable = %s, want untouched 10", got.QuantityAvailable)
	}
}

func TestCreateConsignmentDefault(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "50", 100)

	vmi := &types.Customer{Name: "VMI Corp", IsVMICustomer: true, IsActive: true}
	if err := env.Store.CreateCustomer(env.Ctx, vmi); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	result, err := env.Service.Create(env.Ctx, CreateInput{
		CustomerID: vmi.ID,
		Lines:      []Line{{BatchID: batch.ID, Quantity: dec("5")}},
		CreatedBy:  env.User.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !result.Note.IsConsignment {
		t.Error("VMI customer's note should default to consignment")
	}

	explicit := false
	result, err = env.Service.Create(env.Ctx, CreateInput{
		CustomerID:    vmi.ID,
		Lines:         []Line{{BatchID: batch.ID, Quantity: dec("5")}},
		IsConsignment: &explicit,
		CreatedBy:     env.User.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Note.IsConsignment {
		t.Error("explicit flag should override the customer default")
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "50", 100)
	result := env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("10")}})
	id := result.Note.ID

	note, err := env.Service.Issue(env.Ctx, id)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if note.Status != types.DNIssued {
		t.Errorf("Status = %s, want ISSUED", note.Status)
	}
	if note.IssueDate == nil || !note.IssueDate.Equal(env.Today) {
		t.Errorf("IssueDate = %v, want today", note.IssueDate)
	}

	note, err = env.Service.MarkDelivered(env.Ctx, id)
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if note.DeliveryDate == nil || !note.DeliveryDate.Equal(env.Today) {
		t.Errorf("DeliveryDate = %v, want today", note.DeliveryDate)
	}

	note, err = env.Service.MarkInvoiced(env.Ctx, id)
	if err != nil {
		t.Fatalf("MarkInvoiced failed: %v", err)
	}
	if note.Status != types.DNInvoiced {
		t.Errorf("Status = %s, want INVOICED", note.Status)
	}
}

func TestLifecycleIllegalJumps(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "50", 100)
	result := env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("10")}})
	id := result.Note.ID

	// DRAFT cannot jump to DELIVERED or INVOICED.
	if _, err := env.Service.MarkDelivered(env.Ctx, id); types.ConflictCode(err) != types.CodeInvalidTransition {
		t.Errorf("DRAFT→DELIVERED error = %v, want invalid_transition", err)
	}
	if _, err := env.Service.MarkInvoiced(env.Ctx, id); types.ConflictCode(err) != types.CodeInvalidTransition {
		t.Errorf("DRAFT→INVOICED error = %v, want invalid_transition", err)
	}

	// An invoiced note is terminal: no cancel.
	if _, err := env.Service.Issue(env.Ctx, id); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := env.Service.MarkDelivered(env.Ctx, id); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if _, err := env.Service.MarkInvoiced(env.Ctx, id); err != nil {
		t.Fatalf("MarkInvoiced failed: %v", err)
	}
	if _, err := env.Service.Cancel(env.Ctx, id, env.User.ID); types.ConflictCode(err) != types.CodeInvalidTransition {
		t.Errorf("INVOICED→CANCELLED error = %v, want invalid_transition", err)
	}
}

func TestCancelCompensates(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "10", 100)
	result := env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("10")}})

	// The dispatch depleted the batch.
	depleted, err := env.Store.GetBatch(env.Ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if depleted.Status != types.BatchDepleted {
		t.Fatalf("Status = %s, want DEPLETED before cancel", depleted.Status)
	}

	note, err := env.Service.Cancel(env.Ctx, result.Note.ID, env.User.ID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if note.Status != types.DNCancelled {
		t.Errorf("Status = %s, want CANCELLED", note.Status)
	}

	restored, err := env.Store.GetBatch(env.Ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if !restored.QuantityAvailable.Equal(dec("10")) {
		t.Errorf("QuantityAvailable = %s, want restored 10", restored.QuantityAvailable)
	}
	if restored.Status != types.BatchActive {
		t.Errorf("Status = %s, want ACTIVE after compensation", restored.Status)
	}

	// The ledger keeps both sides of the story.
	movements, err := env.Store.ListMovements(env.Ctx, types.MovementFilter{BatchID: batch.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("got %d movements, want DISPATCH + compensating RECEIPT", len(movements))
	}
	if movements[0].Type != types.MovementReceipt || movements[0].ReferenceNumber != note.DNNumber {
		t.Errorf("latest movement = %s/%s, want RECEIPT referencing the note", movements[0].Type, movements[0].ReferenceNumber)
	}
}

func TestBuildRenderInput(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "50", 100)
	result := env.createNote([]Line{
		{BatchID: batch.ID, Quantity: dec("12.500")},
		{BatchID: batch.ID, Quantity: dec("7.500")},
	})

	render, err := env.Service.BuildRenderInput(env.Ctx, result.Note.ID)
	if err != nil {
		t.Fatalf("BuildRenderInput failed: %v", err)
	}
	if render.DNNumber != result.Note.DNNumber {
		t.Errorf("DNNumber = %q, want %q", render.DNNumber, result.Note.DNNumber)
	}
	if render.Customer.Name != "PrintCo" || render.Customer.Address != "12 Harbor St" {
		t.Errorf("customer block = %+v", render.Customer)
	}
	if len(render.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(render.Items))
	}
	if render.Items[0].SKU != "INK-1" || render.Items[0].Unit != "kg" {
		t.Errorf("item context = %+v", render.Items[0])
	}
	if !render.TotalQuantity.Equal(dec("20")) {
		t.Errorf("TotalQuantity = %s, want 20", render.TotalQuantity)
	}
	if render.CreatedByName != "Dana Levi" {
		t.Errorf("CreatedByName = %q, want full name", render.CreatedByName)
	}
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	batch := env.createBatch("GR-1", "100", 100)

	first := env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("5")}})
	env.createNote([]Line{{BatchID: batch.ID, Quantity: dec("5")}})
	if _, err := env.Service.Issue(env.Ctx, first.Note.ID); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	issued, err := env.Service.List(env.Ctx, types.DeliveryNoteFilter{Status: types.DNIssued})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(issued) != 1 || issued[0].ID != first.Note.ID {
		t.Errorf("status filter returned %d notes", len(issued))
	}

	all, err := env.Service.List(env.Ctx, types.DeliveryNoteFilter{CustomerID: env.Customer.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("customer filter returned %d notes, want 2", len(all))
	}
}

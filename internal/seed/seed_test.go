package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

const testCatalog = `
[[items]]
sku = "INK-001"
name = "Black offset ink"
unit = "kg"
cost_per_unit = "42.50"
currency = "ILS"
reorder_point = "50"
min_stock = "20"

[[items]]
sku = "INK-002"
name = "Cyan offset ink"
unit = "kg"

[[locations]]
code = "A-01"
name = "Rack A shelf 1"
zone = "A"

[[customers]]
name = "PrintCo"
address = "12 Harbor St"
vmi = true
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *sqlite.SQLiteStorage {
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
	return store
}

func TestImportFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeCatalog(t, testCatalog)

	result, err := ImportFile(ctx, store, path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if result.ItemsCreated != 2 || result.LocationsCreated != 1 || result.CustomersCreated != 1 {
		t.Errorf("result = %+v, want 2 items / 1 location / 1 customer created", result)
	}

	item, err := store.GetItemBySKU(ctx, "INK-001")
	if err != nil {
		t.Fatalf("GetItemBySKU failed: %v", err)
	}
	if item.CostPerUnit.String() != "42.5" {
		t.Errorf("CostPerUnit = %s, want 42.5", item.CostPerUnit)
	}
	if item.ReorderPoint == nil || item.ReorderPoint.String() != "50" {
		t.Errorf("ReorderPoint = %v, want 50", item.ReorderPoint)
	}

	customer, err := store.GetCustomerByName(ctx, "PrintCo")
	if err != nil {
		t.Fatalf("GetCustomerByName failed: %v", err)
	}
	if !customer.IsVMICustomer {
		t.Error("IsVMICustomer = false, want true")
	}
}

func TestImportIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := writeCatalog(t, testCatalog)

	if _, err := ImportFile(ctx, store, path); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	result, err := ImportFile(ctx, store, path)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if result.ItemsCreated != 0 || result.ItemsUpdated != 2 {
		t.Errorf("second import items = %+v, want 0 created / 2 updated", result)
	}
	if result.LocationsCreated != 0 || result.CustomersCreated != 0 {
		t.Errorf("second import recreated entities: %+v", result)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 (location + customer)", result.Skipped)
	}

	items, err := store.ListItems(ctx, types.ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("item count = %d, want 2", len(items))
	}
}

func TestImportUpdatesExistingItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := ImportFile(ctx, store, writeCatalog(t, testCatalog)); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	updated := `
[[items]]
sku = "INK-001"
name = "Black offset ink (reformulated)"
unit = "kg"
cost_per_unit = "45.00"
`
	if _, err := ImportFile(ctx, store, writeCatalog(t, updated)); err != nil {
		t.Fatalf("update import failed: %v", err)
	}

	item, err := store.GetItemBySKU(ctx, "INK-001")
	if err != nil {
		t.Fatalf("GetItemBySKU failed: %v", err)
	}
	if item.Name != "Black offset ink (reformulated)" {
		t.Errorf("Name = %q, want updated name", item.Name)
	}
	if item.CostPerUnit.String() != "45" {
		t.Errorf("CostPerUnit = %s, want 45", item.CostPerUnit)
	}
}

func TestImportValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := ImportFile(ctx, store, writeCatalog(t, "[[items]]\nname = \"no sku\"\n"))
	if !types.IsValidation(err) {
		t.Errorf("missing sku error = %v, want Validation", err)
	}

	_, err = ImportFile(ctx, store, writeCatalog(t, "[[items]]\nsku = \"X\"\nname = \"Y\"\ncost_per_unit = \"abc\"\n"))
	if err == nil {
		t.Error("bad decimal should fail")
	}
}

package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

// testEnv provides a test environment with common setup and helpers.
// Use newTestEnv(t) to create one with automatic cleanup.
type testEnv struct {
	t     *testing.T
	Store *SQLiteStorage
	Ctx   context.Context
}

// newTestEnv creates a test environment backed by a temp-file database.
// The store is closed when the test completes.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		t:     t,
		Store: newTestStore(t, ""),
		Ctx:   context.Background(),
	}
}

// newTestStore creates a SQLiteStorage on a temp file. File-based
// databases are more reliable than in-memory for connection pool
// scenarios, and give each test its own isolated database.
func newTestStore(t *testing.T, dbPath string) *SQLiteStorage {
	t.Helper()

	if dbPath == "" {
		dbPath = t.TempDir() + "/test.db"
	}

	store, err := New(context.Background(), dbPath)
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

// CreateUser creates a test user with the given role.
func (e *testEnv) CreateUser(username string, role types.Role) *types.User {
	e.t.Helper()
	u := &types.User{Username: username, Role: role, IsActive: true}
	if err := e.Store.CreateUser(e.Ctx, u); err != nil {
		e.t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return u
}

// CreateItem creates a test catalog item with defaults.
func (e *testEnv) CreateItem(sku, name string) *types.Item {
	e.t.Helper()
	item := &types.Item{SKU: sku, Name: name, IsActive: true}
	if err := e.Store.CreateItem(e.Ctx, item); err != nil {
		e.t.Fatalf("CreateItem(%q) failed: %v", sku, err)
	}
	return item
}

// CreateLocation creates a test location.
func (e *testEnv) CreateLocation(code string) *types.Location {
	e.t.Helper()
	loc := &types.Location{Code: code, IsActive: true}
	if err := e.Store.CreateLocation(e.Ctx, loc); err != nil {
		e.t.Fatalf("CreateLocation(%q) failed: %v", code, err)
	}
	return loc
}

// CreateCustomer creates a test customer.
func (e *testEnv) CreateCustomer(name string) *types.Customer {
	e.t.Helper()
	c := &types.Customer{Name: name, IsActive: true}
	if err := e.Store.CreateCustomer(e.Ctx, c); err != nil {
		e.t.Fatalf("CreateCustomer(%q) failed: %v", name, err)
	}
	return c
}

// CreateBatch creates an ACTIVE test batch with the given stock and
// expiration.
func (e *testEnv) CreateBatch(item *types.Item, batchNumber string, qty string, expiration types.Date) *types.Batch {
	e.t.Helper()
	q := decimal.RequireFromString(qty)
	batch := &types.Batch{
		ItemID:            item.ID,
		BatchNumber:       batchNumber,
		QuantityReceived:  q,
		QuantityAvailable: q,
		ExpirationDate:    expiration,
		ReceiptDate:       types.Today(),
		Status:            types.BatchActive,
	}
	if expiration.Before(batch.ReceiptDate) {
		batch.ReceiptDate = expiration
	}
	if err := e.Store.CreateBatch(e.Ctx, batch); err != nil {
		e.t.Fatalf("CreateBatch(%q) failed: %v", batchNumber, err)
	}
	return batch
}

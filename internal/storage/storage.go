// Package storage defines the interface for warelog storage backends.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/inkops/warelog/internal/types"
)

// Queries is the query surface shared by Storage and Transaction. Every
// method takes a context and passes it through to database/sql, so
// request-scoped cancellation propagates to in-flight statements.
type Queries interface {
	// Items
	CreateItem(ctx context.Context, item *types.Item) error
	GetItem(ctx context.Context, id string) (*types.Item, error)
	GetItemBySKU(ctx context.Context, sku string) (*types.Item, error)
	ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.Item, error)
	UpdateItem(ctx context.Context, item *types.Item) error
	// DeleteItem removes an item. Items with batches (any status) are
	// protected: the call fails with a Conflict.
	DeleteItem(ctx context.Context, id string) error

	// Locations
	CreateLocation(ctx context.Context, loc *types.Location) error
	GetLocation(ctx context.Context, id string) (*types.Location, error)
	GetLocationByCode(ctx context.Context, code string) (*types.Location, error)
	ListLocations(ctx context.Context, activeOnly bool) ([]*types.Location, error)

	// Batches
	CreateBatch(ctx context.Context, batch *types.Batch) error
	GetBatch(ctx context.Context, id string) (*types.Batch, error)
	GetBatchByNumber(ctx context.Context, batchNumber string) (*types.Batch, error)
	ListBatches(ctx context.Context, filter types.BatchFilter) ([]*types.Batch, error)
	// ActiveBatchesByItem returns the item's ACTIVE batches with display
	// context, in FEFO order (expiration_date, receipt_date, id). Expired
	// batches are included; callers filter.
	ActiveBatchesByItem(ctx context.Context, itemID string) ([]*types.BatchWithContext, error)
	// UpdateBatch writes the mutable batch fields: quantity_available,
	// status, version, location_id, notes, updated_at.
	UpdateBatch(ctx context.Context, batch *types.Batch) error
	// ExpiringBatches returns ACTIVE batches with stock expiring in
	// (after, until], FEFO ordered.
	ExpiringBatches(ctx context.Context, after, until types.Date) ([]*types.BatchWithContext, error)
	// ExpiredActiveBatches returns ACTIVE batches with expiration_date
	// strictly before today.
	ExpiredActiveBatches(ctx context.Context, today types.Date) ([]*types.BatchWithContext, error)

	// Movements (append-only: no update or delete exists)
	InsertMovement(ctx context.Context, m *types.Movement) error
	ListMovements(ctx context.Context, filter types.MovementFilter) ([]*types.MovementWithContext, error)

	// Customers
	CreateCustomer(ctx context.Context, c *types.Customer) error
	GetCustomer(ctx context.Context, id string) (*types.Customer, error)
	GetCustomerByName(ctx context.Context, name string) (*types.Customer, error)
	ListCustomers(ctx context.Context, activeOnly bool) ([]*types.Customer, error)

	// Users
	CreateUser(ctx context.Context, u *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)

	// Delivery notes
	CreateDeliveryNote(ctx context.Context, dn *types.DeliveryNote) error
	InsertDeliveryNoteItem(ctx context.Context, line *types.DeliveryNoteItem) error
	GetDeliveryNote(ctx context.Context, id string) (*types.DeliveryNote, error)
	GetDeliveryNoteByNumber(ctx context.Context, dnNumber string) (*types.DeliveryNote, error)
	ListDeliveryNotes(ctx context.Context, filter types.DeliveryNoteFilter) ([]*types.DeliveryNote, error)
	// UpdateDeliveryNote writes status, issue_date, delivery_date, notes,
	// updated_at.
	UpdateDeliveryNote(ctx context.Context, dn *types.DeliveryNote) error
	DeliveryNoteItems(ctx context.Context, dnID string) ([]*types.DeliveryNoteItemDetail, error)

	// Alerts
	InsertAlert(ctx context.Context, a *types.Alert) error
	ListAlerts(ctx context.Context, filter types.AlertFilter) ([]*types.Alert, error)
	MarkAlertRead(ctx context.Context, id string) error
	MarkAllAlertsRead(ctx context.Context) (int, error)
	DismissAlert(ctx context.Context, id string) error
	CountUnreadAlerts(ctx context.Context) (int, error)
	// AlertExists reports whether an alert matching the deduplication key
	// exists at or after since. Empty batchID/itemID/severity match any.
	AlertExists(ctx context.Context, alertType types.AlertType, batchID, itemID string, severity types.Severity, since time.Time) (bool, error)

	// Scans for the alert generator
	ItemStockLevels(ctx context.Context, today types.Date) ([]*types.ItemStockLevel, error)
	// DeadStockItems returns items with ACTIVE batches whose most recent
	// movement, taken over the whole batch set, is older than the cutoff.
	DeadStockItems(ctx context.Context, cutoff time.Time) ([]*types.DeadStockItem, error)

	// NextDocumentNumber computes the next number for prefix on the given
	// day, format {prefix}-YYMMDD-{counter} with a zero-padded counter of
	// the given width. The UNIQUE constraint on the target column is the
	// ultimate guarantor; callers retry on conflict. Counter overflow is a
	// Validation error, not a wraparound.
	NextDocumentNumber(ctx context.Context, prefix string, width int, day types.Date) (string, error)

	// GetStatistics returns table counts and database metadata for
	// diagnostics.
	GetStatistics(ctx context.Context) (*types.Statistics, error)
}

// Transaction exposes the query surface bound to a single database
// transaction. Obtain one through Storage.RunInTransaction.
type Transaction interface {
	Queries
}

// Storage is the interface all storage backends implement.
//
// RunInTransaction runs fn inside one transaction:
//   - the transaction begins with the write lock already held (SQLite
//     BEGIN IMMEDIATE), so a read-modify-write sequence inside fn is
//     serialized against all other writers — this is the row-lock
//     equivalent the ledger relies on;
//   - if fn returns an error or panics, the transaction is rolled back;
//   - on a nil return it is committed.
type Storage interface {
	Queries

	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Close releases the underlying database handle.
	Close() error
	// Path returns the database file path.
	Path() string
	// UnderlyingDB exposes the raw handle for diagnostics (health checks,
	// PRAGMA quick_check). Not for domain queries.
	UnderlyingDB() *sql.DB
}

// Config holds storage backend configuration. Only the sqlite backend
// ships; the shape mirrors multi-backend readiness.
type Config struct {
	Backend  string // "sqlite"
	Path     string // database file path (sqlite)
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

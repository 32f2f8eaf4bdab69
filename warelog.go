// Package warelog provides a minimal public API for building custom
// tooling on top of the warelog inventory database.
//
// Most integrations should talk to the warelog daemon or read the SQLite
// database directly. This package exports only the essential types and
// constructors for Go programs that want to drive the storage and
// service layers programmatically.
package warelog

import (
	"context"

	"github.com/inkops/warelog/internal/documents"
	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/receiving"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/storage/sqlite"
	"github.com/inkops/warelog/internal/types"
)

// Storage is the interface over the warehouse database.
type Storage = storage.Storage

// NewSQLiteStorage opens (creating if needed) the SQLite database at
// dbPath and migrates its schema.
func NewSQLiteStorage(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}

// FEFOEngine computes first-expired-first-out picking suggestions and
// stock summaries.
type FEFOEngine = fefo.Engine

// NewFEFOEngine builds a FEFO engine over a store.
func NewFEFOEngine(store Storage) *FEFOEngine {
	return fefo.New(store)
}

// ReceivingService books goods receipts.
type ReceivingService = receiving.Service

// ReceiveInput describes one incoming line for ReceivingService.
type ReceiveInput = receiving.Input

// NewReceivingService builds a receiving service over a store.
func NewReceivingService(store Storage) *ReceivingService {
	return receiving.New(store)
}

// DocumentService manages delivery notes and their lifecycle.
type DocumentService = documents.Service

// NewDocumentService builds a document service over a store.
func NewDocumentService(store Storage) *DocumentService {
	return documents.New(store)
}

// LedgerService records and queries stock movements.
type LedgerService = ledger.Service

// NewLedgerService builds a ledger service over a store.
func NewLedgerService(store Storage) *LedgerService {
	return ledger.New(store)
}

// Core types.
type (
	Item             = types.Item
	Location         = types.Location
	Batch            = types.Batch
	BatchStatus      = types.BatchStatus
	Movement         = types.Movement
	MovementType     = types.MovementType
	Customer         = types.Customer
	DeliveryNote     = types.DeliveryNote
	DNStatus         = types.DNStatus
	DeliveryNoteItem = types.DeliveryNoteItem
	Alert            = types.Alert
	AlertType        = types.AlertType
	Severity         = types.Severity
	User             = types.User
	Role             = types.Role
	Date             = types.Date
	WarningLevel     = types.WarningLevel
	ItemFilter       = types.ItemFilter
	BatchFilter      = types.BatchFilter
	MovementFilter   = types.MovementFilter
	DNFilter         = types.DeliveryNoteFilter
	AlertFilter      = types.AlertFilter
)

// Lifecycle and classification constants.
const (
	BatchActive   = types.BatchActive
	BatchDepleted = types.BatchDepleted
	BatchScrap    = types.BatchScrap

	MovementReceipt    = types.MovementReceipt
	MovementDispatch   = types.MovementDispatch
	MovementAdjustment = types.MovementAdjustment
	MovementScrap      = types.MovementScrap
	MovementTransfer   = types.MovementTransfer

	DNDraft     = types.DNDraft
	DNIssued    = types.DNIssued
	DNDelivered = types.DNDelivered
	DNInvoiced  = types.DNInvoiced
	DNCancelled = types.DNCancelled

	RoleAdmin           = types.RoleAdmin
	RoleManager         = types.RoleManager
	RoleWarehouseWorker = types.RoleWarehouseWorker
	RoleViewer          = types.RoleViewer
)

// Date helpers.
var (
	Today     = types.Today
	ParseDate = types.ParseDate
)

// Package types defines the core domain types for warelog: catalog items,
// batches, stock movements, delivery notes, alerts, and the users that act
// on them. All quantities and money values are fixed-point decimals;
// floats never enter domain logic.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus tracks the lifecycle of a received batch.
type BatchStatus string

const (
	BatchActive   BatchStatus = "ACTIVE"
	BatchDepleted BatchStatus = "DEPLETED"
	BatchScrap    BatchStatus = "SCRAP"
)

// MovementType classifies ledger entries. RECEIPT increases available
// quantity; DISPATCH, SCRAP and TRANSFER decrease it; ADJUSTMENT moves it
// in either direction.
type MovementType string

const (
	MovementReceipt    MovementType = "RECEIPT"
	MovementDispatch   MovementType = "DISPATCH"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementScrap      MovementType = "SCRAP"
	MovementTransfer   MovementType = "TRANSFER"
)

// ValidMovementType reports whether t is one of the known movement types.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementReceipt, MovementDispatch, MovementAdjustment, MovementScrap, MovementTransfer:
		return true
	}
	return false
}

// DNStatus is the delivery-note lifecycle state.
type DNStatus string

const (
	DNDraft     DNStatus = "DRAFT"
	DNIssued    DNStatus = "ISSUED"
	DNDelivered DNStatus = "DELIVERED"
	DNInvoiced  DNStatus = "INVOICED"
	DNCancelled DNStatus = "CANCELLED"
)

// AlertType classifies generated alerts.
type AlertType string

const (
	AlertExpiration         AlertType = "EXPIRATION"
	AlertExpirationCritical AlertType = "EXPIRATION_CRITICAL"
	AlertExpired            AlertType = "EXPIRED"
	AlertLowStock           AlertType = "LOW_STOCK"
	AlertDeadStock          AlertType = "DEAD_STOCK"
)

// Severity ranks alerts and expiration warnings.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// WarningLevel buckets a batch by proximity to its expiration date.
type WarningLevel string

const (
	LevelExpired  WarningLevel = "expired"
	LevelCritical WarningLevel = "critical"
	LevelWarning  WarningLevel = "warning"
	LevelCaution  WarningLevel = "caution"
	LevelSafe     WarningLevel = "safe"
)

// WarningLevels lists all levels in ascending order of remaining shelf
// life. Useful for stable iteration in summaries and rendering.
var WarningLevels = []WarningLevel{LevelExpired, LevelCritical, LevelWarning, LevelCaution, LevelSafe}

// WarningLevelFor buckets a days-until-expiry value.
// days <= 0 is expired, 1-30 critical, 31-60 warning, 61-90 caution,
// above 90 safe.
func WarningLevelFor(days int) WarningLevel {
	switch {
	case days <= 0:
		return LevelExpired
	case days <= 30:
		return LevelCritical
	case days <= 60:
		return LevelWarning
	case days <= 90:
		return LevelCaution
	default:
		return LevelSafe
	}
}

// Item is a catalog entry for an ink product.
type Item struct {
	ID           string           `json:"id"`
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Unit         string           `json:"unit"`
	CostPerUnit  decimal.Decimal  `json:"cost_per_unit"`
	Currency     string           `json:"currency"`
	ReorderPoint *decimal.Decimal `json:"reorder_point,omitempty"`
	MinStock     *decimal.Decimal `json:"min_stock,omitempty"`
	MaxStock     *decimal.Decimal `json:"max_stock,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Location is a physical storage position in the warehouse.
type Location struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name,omitempty"`
	Zone      string    `json:"zone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Batch is a received lot of a single item. quantity_available is only
// ever changed through the movement ledger; Version counts those writes.
type Batch struct {
	ID                string          `json:"id"`
	ItemID            string          `json:"item_id"`
	LocationID        string          `json:"location_id,omitempty"`
	BatchNumber       string          `json:"batch_number"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	ExpirationDate    Date            `json:"expiration_date"`
	ReceiptDate       Date            `json:"receipt_date"`
	Status            BatchStatus     `json:"status"`
	GRNNumber         string          `json:"grn_number,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Movement is one append-only ledger row. Quantity holds the magnitude;
// direction is recoverable from QuantityBefore and QuantityAfter.
type Movement struct {
	ID              string          `json:"id"`
	BatchID         string          `json:"batch_id"`
	Type            MovementType    `json:"movement_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	QuantityBefore  decimal.Decimal `json:"quantity_before"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PerformedBy     string          `json:"performed_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MovementWithContext enriches a movement with display context from its
// batch and item.
type MovementWithContext struct {
	Movement
	BatchNumber string `json:"batch_number"`
	ItemSKU     string `json:"item_sku"`
	ItemName    string `json:"item_name"`
}

// Customer is a delivery-note counterparty. IsVMICustomer marks
// vendor-managed-inventory (consignment) customers; their delivery notes
// default to consignment.
type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsVMICustomer bool      `json:"is_vmi_customer"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// DeliveryNote is an outbound document. Stock is committed (DISPATCH
// movements written) when the note is created in DRAFT.
type DeliveryNote struct {
	ID            string    `json:"id"`
	DNNumber      string    `json:"dn_number"`
	CustomerID    string    `json:"customer_id"`
	Status        DNStatus  `json:"status"`
	IssueDate     *Date     `json:"issue_date,omitempty"`
	DeliveryDate  *Date     `json:"delivery_date,omitempty"`
	IsConsignment bool      `json:"is_consignment"`
	Notes         string    `json:"notes,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeliveryNoteItem is one line of a delivery note.
type DeliveryNoteItem struct {
	ID             string          `json:"id"`
	DeliveryNoteID string          `json:"delivery_note_id"`
	BatchID        string          `json:"batch_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DeliveryNoteItemDetail joins a line with its batch, item and location
// context for rendering.
type DeliveryNoteItemDetail struct {
	DeliveryNoteItem
	BatchNumber    string `json:"batch_number"`
	ExpirationDate Date   `json:"expiration_date"`
	ItemSKU        string `json:"item_sku"`
	ItemName       string `json:"item_name"`
	Unit           string `json:"unit"`
	LocationCode   string `json:"location_code,omitempty"`
}

// Alert is a generated notification. BatchID and ItemID are set depending
// on the alert type.
type Alert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"alert_type"`
	Severity    Severity  `json:"severity"`
	BatchID     string    `json:"batch_id,omitempty"`
	ItemID      string    `json:"item_id,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	IsDismissed bool      `json:"is_dismissed"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is an actor identity recorded on movements and documents.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// MovementFilter narrows ledger history queries. Zero values mean
// "no constraint". Limit defaults to 50 and is clamped to 500.
type MovementFilter struct {
	BatchID string
	ItemID  string
	Type    MovementType
	From    *time.Time
	To      *time.Time
	Limit   int
}

// DeliveryNoteFilter narrows delivery-note listings.
type DeliveryNoteFilter struct {
	Status     DNStatus
	CustomerID string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AlertFilter narrows alert listings. Dismissed alerts are always
// excluded unless IncludeDismissed is set.
type AlertFilter struct {
	UnreadOnly       bool
	IncludeDismissed bool
	Type             AlertType
	Severity         Severity
	Limit            int
}

// ItemFilter narrows catalog listings.
type ItemFilter struct {
	ActiveOnly bool
	Search     string
	Limit      int
}

// Statistics summarizes database contents for diagnostics and the stats
// command.
type Statistics struct {
	Items         int   `json:"items"`
	Locations     int   `json:"locations"`
	Batches       int   `json:"batches"`
	ActiveBatches int   `json:"active_batches"`
	Movements     int   `json:"movements"`
	Customers     int   `json:"customers"`
	DeliveryNotes int   `json:"delivery_notes"`
	Alerts        int   `json:"alerts"`
	UnreadAlerts  int   `json:"unread_alerts"`
	Users         int   `json:"users"`
	DBSizeBytes   int64 `json:"db_size_bytes"`
	SchemaVersion int   `json:"schema_version"`
}

// DefaultLimit and MaxLimit bound list queries across the storage layer.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ClampLimit applies the default and maximum to a requested limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

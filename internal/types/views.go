package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchWithContext joins a batch with the display context the pick engine
// and alert generator need: item identity and the location code.
type BatchWithContext struct {
	Batch
	ItemSKU      string `json:"item_sku"`
	ItemName     string `json:"item_name"`
	LocationCode string `json:"location_code,omitempty"`
}

// ItemStockLevel is one row of the low-stock scan: an item and its total
// available quantity over ACTIVE, non-expired batches.
type ItemStockLevel struct {
	Item
	TotalAvailable decimal.Decimal `json:"total_available"`
}

// DeadStockItem is one row of the dead-stock scan: an item whose ACTIVE
// batches have all gone without a ledger entry past the configured
// window. LastMovementAt is the most recent movement over the whole
// batch set.
type DeadStockItem struct {
	Item
	TotalAvailable decimal.Decimal `json:"total_available"`
	LastMovementAt time.Time       `json:"last_movement_at"`
}

// BatchFilter narrows batch listings.
type BatchFilter struct {
	ItemID string
	Status BatchStatus
	Limit  int
}

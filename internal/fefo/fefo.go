// Package fefo implements first-expired-first-out pick logic: allocation
// suggestions, dispatch validation, and per-item stock summaries bucketed
// by expiration proximity. The engine never reads the wall clock itself;
// "today" comes from an injected clock so tests pin it.
package fefo

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

// Reader is the slice of the storage surface the engine needs. Both a
// store and an open transaction satisfy it, so callers can validate
// picks inside their own write transactions.
type Reader interface {
	GetItem(ctx context.Context, id string) (*types.Item, error)
	GetBatch(ctx context.Context, id string) (*types.Batch, error)
	ActiveBatchesByItem(ctx context.Context, itemID string) ([]*types.BatchWithContext, error)
}

// Engine computes FEFO suggestions and validations over storage reads.
type Engine struct {
	store Reader
	today func() types.Date
}

// New creates an engine reading "today" from the local clock.
func New(store Reader) *Engine {
	return NewWithClock(store, types.Today)
}

// NewWithClock creates an engine with an explicit clock.
func NewWithClock(store Reader, today func() types.Date) *Engine {
	return &Engine{store: store, today: today}
}

// SuggestionLine is one allocated batch in FEFO order.
type SuggestionLine struct {
	BatchID           string          `json:"batch_id"`
	BatchNumber       string          `json:"batch_number"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	ExpirationDate    types.Date      `json:"expiration_date"`
	DaysUntilExpiry   int             `json:"days_until_expiry"`
	LocationCode      string          `json:"location_code,omitempty"`
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"`
	WarningLevel      types.WarningLevel `json:"warning_level"`
}

// Suggestion is the result of a pick request. Partial allocation is a
// result, not an error; Shortfall says how much could not be covered.
type Suggestion struct {
	ItemID            string           `json:"item_id"`
	RequestedQuantity decimal.Decimal  `json:"requested_quantity"`
	AllocatedQuantity decimal.Decimal  `json:"allocated_quantity"`
	Shortfall         decimal.Decimal  `json:"shortfall"`
	FullyAllocated    bool             `json:"fully_allocated"`
	Lines             []SuggestionLine `json:"lines"`
}

// Suggest walks the item's pickable batches in FEFO order and allocates
// until the requested quantity is covered or candidates run out.
func (e *Engine) Suggest(ctx context.Context, itemID string, qty decimal.Decimal) (*Suggestion, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, types.Validation(types.CodeInvalidQuantity, "requested quantity must be positive, got %s", qty)
	}
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	candidates, err := e.pickable(ctx, itemID)
	if err != nil {
		return nil, err
	}

	today := e.today()
	suggestion := &Suggestion{
		ItemID:            itemID,
		RequestedQuantity: qty,
		AllocatedQuantity: decimal.Zero,
		Lines:             []SuggestionLine{},
	}
	remaining := qty
	for _, b := range candidates {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(b.QuantityAvailable, remaining)
		days := today.DaysUntil(b.ExpirationDate)
		suggestion.Lines = append(suggestion.Lines, SuggestionLine{
			BatchID:           b.ID,
			BatchNumber:       b.BatchNumber,
			QuantityAvailable: b.QuantityAvailable,
			ExpirationDate:    b.ExpirationDate,
			DaysUntilExpiry:   days,
			LocationCode:      b.LocationCode,
			SuggestedQuantity: take,
			WarningLevel:      types.WarningLevelFor(days),
		})
		suggestion.AllocatedQuantity = suggestion.AllocatedQuantity.Add(take)
		remaining = remaining.Sub(take)
	}
	suggestion.Shortfall = qty.Sub(suggestion.AllocatedQuantity)
	suggestion.FullyAllocated = suggestion.Shortfall.IsZero()
	return suggestion, nil
}

// pickable returns the item's ACTIVE, stocked, non-expired batches in
// FEFO order.
func (e *Engine) pickable(ctx context.Context, itemID string) ([]*types.BatchWithContext, error) {
	batches, err := e.store.ActiveBatchesByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	today := e.today()
	out := batches[:0]
	for _, b := range batches {
		if b.QuantityAvailable.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if b.ExpirationDate.Before(today) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Issue is one validation finding with a stable code.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult reports whether a dispatch from a specific batch is
// acceptable. Errors block; warnings inform.
type ValidationResult struct {
	OK       bool    `json:"ok"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Validate checks a proposed dispatch of qty from the given batch. A
// missing batch is reported in-band as an error issue so callers can
// render it alongside other findings.
func (e *Engine) Validate(ctx context.Context, batchID string, qty decimal.Decimal) (*ValidationResult, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, types.Validation(types.CodeInvalidQuantity, "quantity must be positive, got %s", qty)
	}

	result := &ValidationResult{OK: true}
	batch, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		if types.IsNotFound(err) {
			result.OK = false
			result.Errors = append(result.Errors, Issue{
				Code:    types.CodeBatchNotFound,
				Message: fmt.Sprintf("batch %s not found", batchID),
			})
			return result, nil
		}
		return nil, err
	}

	today := e.today()
	if batch.Status != types.BatchActive {
		result.Errors = append(result.Errors, Issue{
			Code:    types.CodeBatchNotActive,
			Message: fmt.Sprintf("batch %s has status %s", batch.BatchNumber, batch.Status),
		})
	}
	if batch.ExpirationDate.Before(today) {
		result.Errors = append(result.Errors, Issue{
			Code:    types.CodeBatchExpired,
			Message: fmt.Sprintf("batch %s expired on %s", batch.BatchNumber, batch.ExpirationDate),
		})
	}
	if qty.GreaterThan(batch.QuantityAvailable) {
		result.Errors = append(result.Errors, Issue{
			Code:    types.CodeInsufficientQuantity,
			Message: fmt.Sprintf("requested %s but batch %s has %s available", qty, batch.BatchNumber, batch.QuantityAvailable),
		})
	}

	if earlier, err := e.earlierBatch(ctx, batch, today); err != nil {
		return nil, err
	} else if earlier != nil {
		result.Warnings = append(result.Warnings, Issue{
			Code:    types.CodeFEFOViolation,
			Message: fmt.Sprintf("batch %s expires earlier (%s) and should be picked first", earlier.BatchNumber, earlier.ExpirationDate),
		})
	}

	days := today.DaysUntil(batch.ExpirationDate)
	switch types.WarningLevelFor(days) {
	case types.LevelCritical, types.LevelWarning:
		if days > 0 {
			result.Warnings = append(result.Warnings, Issue{
				Code:    types.CodeExpiringSoon,
				Message: fmt.Sprintf("batch %s expires in %d days", batch.BatchNumber, days),
			})
		}
	}

	result.OK = len(result.Errors) == 0
	return result, nil
}

// earlierBatch returns the first pickable batch of the same item that
// expires strictly before the given batch, or nil.
func (e *Engine) earlierBatch(ctx context.Context, batch *types.Batch, today types.Date) (*types.BatchWithContext, error) {
	candidates, err := e.pickable(ctx, batch.ItemID)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.ID == batch.ID {
			continue
		}
		if c.ExpirationDate.Before(batch.ExpirationDate) {
			return c, nil
		}
	}
	return nil, nil
}

// LevelStats aggregates one warning-level bucket of a stock summary.
type LevelStats struct {
	Quantity decimal.Decimal `json:"quantity"`
	Batches  int             `json:"batches"`
}

// StockSummary partitions an item's ACTIVE batches by warning level.
// Every level is present, with zeros when empty, so the JSON shape is
// stable.
type StockSummary struct {
	ItemID        string                            `json:"item_id"`
	TotalQuantity decimal.Decimal                   `json:"total_quantity"`
	TotalBatches  int                               `json:"total_batches"`
	Levels        map[types.WarningLevel]LevelStats `json:"levels"`
}

// Summary buckets all ACTIVE batches of an item, expired ones included,
// by expiration proximity.
func (e *Engine) Summary(ctx context.Context, itemID string) (*StockSummary, error) {
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	batches, err := e.store.ActiveBatchesByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	summary := &StockSummary{
		ItemID:        itemID,
		TotalQuantity: decimal.Zero,
		Levels:        make(map[types.WarningLevel]LevelStats, len(types.WarningLevels)),
	}
	for _, level := range types.WarningLevels {
		summary.Levels[level] = LevelStats{Quantity: decimal.Zero}
	}

	today := e.today()
	for _, b := range batches {
		level := types.WarningLevelFor(today.DaysUntil(b.ExpirationDate))
		stats := summary.Levels[level]
		stats.Quantity = stats.Quantity.Add(b.QuantityAvailable)
		stats.Batches++
		summary.Levels[level] = stats
		summary.TotalQuantity = summary.TotalQuantity.Add(b.QuantityAvailable)
		summary.TotalBatches++
	}
	return summary, nil
}

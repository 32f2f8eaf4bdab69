// Package ledger is the single gateway for batch quantity changes. Every
// stock mutation goes through Record, which snapshots the quantity before
// and after inside one write transaction and appends an immutable movement
// row. Receiving and delivery notes call the in-transaction Record helper;
// nothing else writes quantity_available.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

// RecordInput describes one movement to record. Quantity carries magnitude
// semantics for RECEIPT, DISPATCH, SCRAP and TRANSFER, and a signed delta
// for ADJUSTMENT.
type RecordInput struct {
	BatchID         string
	Type            types.MovementType
	Quantity        decimal.Decimal
	ReferenceNumber string
	Notes           string
	PerformedBy     string
}

// Service records and queries stock movements.
type Service struct {
	store storage.Storage
	today func() types.Date
}

// New creates a ledger service reading "today" from the local clock.
func New(store storage.Storage) *Service {
	return NewWithClock(store, types.Today)
}

// NewWithClock creates a ledger service with an explicit clock.
func NewWithClock(store storage.Storage, today func() types.Date) *Service {
	return &Service{store: store, today: today}
}

// Record applies one movement in its own transaction.
func (s *Service) Record(ctx context.Context, input RecordInput) (*types.Movement, *types.Batch, error) {
	var (
		movement *types.Movement
		batch    *types.Batch
	)
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var txErr error
		movement, batch, txErr = Record(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return movement, batch, nil
}

// Record applies one movement inside an already-open transaction. The
// transaction begins with the write lock held, so the read-modify-write
// on the batch row is serialized against all other writers.
func Record(ctx context.Context, tx storage.Transaction, input RecordInput) (*types.Movement, *types.Batch, error) {
	if !types.ValidMovementType(input.Type) {
		return nil, nil, types.Validation(types.CodeInvalidMovementType, "unknown movement type %q", input.Type)
	}

	batch, err := tx.GetBatch(ctx, input.BatchID)
	if err != nil {
		return nil, nil, err
	}

	before := batch.QuantityAvailable
	after, err := applyMovement(batch, input.Type, input.Quantity, before)
	if err != nil {
		return nil, nil, err
	}

	batch.QuantityAvailable = after
	batch.Status = nextStatus(batch.Status, input.Type, after)
	batch.Version++
	batch.UpdatedAt = time.Now().UTC()
	if err := tx.UpdateBatch(ctx, batch); err != nil {
		return nil, nil, fmt.Errorf("failed to update batch %s: %w", batch.ID, err)
	}

	movement := &types.Movement{
		BatchID:         batch.ID,
		Type:            input.Type,
		Quantity:        input.Quantity.Abs(),
		QuantityBefore:  before,
		QuantityAfter:   after,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		PerformedBy:     input.PerformedBy,
		CreatedAt:       time.Now().UTC(),
	}
	if err := tx.InsertMovement(ctx, movement); err != nil {
		return nil, nil, fmt.Errorf("failed to insert movement: %w", err)
	}

	return movement, batch, nil
}

// applyMovement validates the quantity for the movement type and computes
// the resulting available quantity.
func applyMovement(batch *types.Batch, mtype types.MovementType, qty, before decimal.Decimal) (decimal.Decimal, error) {
	switch mtype {
	case types.MovementReceipt:
		if qty.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, types.Validation(types.CodeInvalidQuantity, "receipt quantity must be positive, got %s", qty)
		}
		return before.Add(qty), nil

	case types.MovementDispatch:
		if batch.Status == types.BatchScrap {
			return decimal.Zero, types.Validation(types.CodeBatchScrapped, "batch %s is scrapped and cannot be dispatched", batch.BatchNumber)
		}
		if qty.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, types.Validation(types.CodeInvalidQuantity, "dispatch quantity must be positive, got %s", qty)
		}
		if qty.GreaterThan(before) {
			return decimal.Zero, types.InsufficientStock(batch.ID, before, qty)
		}
		return before.Sub(qty), nil

	case types.MovementScrap, types.MovementTransfer:
		if qty.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, types.Validation(types.CodeInvalidQuantity, "%s quantity must be positive, got %s", mtype, qty)
		}
		if qty.GreaterThan(before) {
			return decimal.Zero, types.InsufficientStock(batch.ID, before, qty)
		}
		return before.Sub(qty), nil

	case types.MovementAdjustment:
		if qty.IsZero() {
			return decimal.Zero, types.Validation(types.CodeInvalidQuantity, "adjustment delta must be non-zero")
		}
		after := before.Add(qty)
		if after.IsNegative() {
			return decimal.Zero, types.InsufficientStock(batch.ID, before, qty.Neg())
		}
		return after, nil
	}
	return decimal.Zero, types.Validation(types.CodeInvalidMovementType, "unknown movement type %q", mtype)
}

// nextStatus recomputes batch status after a quantity change. A SCRAP
// status never changes here, except that a manual SCRAP movement bringing
// the quantity to zero marks the batch SCRAP rather than DEPLETED.
func nextStatus(current types.BatchStatus, mtype types.MovementType, after decimal.Decimal) types.BatchStatus {
	if current == types.BatchScrap {
		return current
	}
	if after.IsZero() {
		if mtype == types.MovementScrap {
			return types.BatchScrap
		}
		if current == types.BatchActive {
			return types.BatchDepleted
		}
		return current
	}
	if current == types.BatchDepleted {
		return types.BatchActive
	}
	return current
}

// History lists movements matching the filter, newest first, enriched
// with batch and item context.
func (s *Service) History(ctx context.Context, filter types.MovementFilter) ([]*types.MovementWithContext, error) {
	return s.store.ListMovements(ctx, filter)
}

// AdjustTo records an ADJUSTMENT bringing the batch to the target
// quantity. The delta is computed inside the transaction so a concurrent
// movement cannot slip between read and write.
func (s *Service) AdjustTo(ctx context.Context, batchID string, target decimal.Decimal, performedBy, reason string) (*types.Movement, *types.Batch, error) {
	if target.IsNegative() {
		return nil, nil, types.Validation(types.CodeInvalidQuantity, "target quantity cannot be negative, got %s", target)
	}
	if reason == "" {
		return nil, nil, types.Validation(types.CodeInvalidQuantity, "adjustment reason is required")
	}

	var (
		movement *types.Movement
		batch    *types.Batch
	)
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		current, err := tx.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		delta := target.Sub(current.QuantityAvailable)
		if delta.IsZero() {
			return types.Validation(types.CodeNoChange, "batch %s already has quantity %s", current.BatchNumber, target)
		}
		movement, batch, err = Record(ctx, tx, RecordInput{
			BatchID:     batchID,
			Type:        types.MovementAdjustment,
			Quantity:    delta,
			Notes:       reason,
			PerformedBy: performedBy,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return movement, batch, nil
}

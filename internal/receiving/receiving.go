// Package receiving books incoming stock: it validates the delivery,
// creates the batch, and records the opening RECEIPT movement under a
// goods-receipt number. Single receipts get a GR number; multi-line
// deliveries share one GRN allocated atomically with all their batches.
package receiving

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

const (
	grPrefix  = "GR"
	grnPrefix = "GRN"
	// Document numbers are guarded by their UNIQUE column; on a conflict
	// the whole transaction retries with a fresh number.
	maxNumberAttempts = 3
)

// Input describes one incoming line.
type Input struct {
	ItemID         string
	Quantity       decimal.Decimal
	ExpirationDate types.Date
	ReceiptDate    types.Date // zero value defaults to today
	LocationID     string
	BatchNumber    string // generated when empty
	Notes          string
	PerformedBy    string
}

// Receipt is the outcome of one received line.
type Receipt struct {
	Batch     *types.Batch    `json:"batch"`
	Movement  *types.Movement `json:"movement"`
	GRNNumber string          `json:"grn_number"`
}

// MultiReceipt is the outcome of a multi-line delivery under one GRN.
type MultiReceipt struct {
	GRNNumber string     `json:"grn_number"`
	Receipts  []*Receipt `json:"receipts"`
}

// Service books goods receipts.
type Service struct {
	store storage.Storage
	today func() types.Date
}

// New creates a receiving service reading "today" from the local clock.
func New(store storage.Storage) *Service {
	return NewWithClock(store, types.Today)
}

// NewWithClock creates a receiving service with an explicit clock.
func NewWithClock(store storage.Storage, today func() types.Date) *Service {
	return &Service{store: store, today: today}
}

// Receive books a single incoming line. The generated GR number doubles
// as the line's GRN.
func (s *Service) Receive(ctx context.Context, input Input) (*Receipt, error) {
	if err := s.validate(ctx, &input); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err := s.withNumberRetry(func() error {
		return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			number := input.BatchNumber
			if number == "" {
				var err error
				number, err = tx.NextDocumentNumber(ctx, grPrefix, 3, s.today())
				if err != nil {
					return err
				}
			}
			var err error
			receipt, err = receiveLine(ctx, tx, input, number, number)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ReceiveMultiple books a multi-line delivery atomically under one GRN.
// All lines are validated up front; any failure aborts the whole
// delivery.
func (s *Service) ReceiveMultiple(ctx context.Context, inputs []Input, performedBy string) (*MultiReceipt, error) {
	if len(inputs) == 0 {
		return nil, types.Validation(types.CodeMinOneLine, "a delivery needs at least one line")
	}
	for i := range inputs {
		if inputs[i].PerformedBy == "" {
			inputs[i].PerformedBy = performedBy
		}
		if err := s.validate(ctx, &inputs[i]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	var result *MultiReceipt
	err := s.withNumberRetry(func() error {
		return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			grn, err := tx.NextDocumentNumber(ctx, grnPrefix, 3, s.today())
			if err != nil {
				return err
			}
			receipts := make([]*Receipt, 0, len(inputs))
			for i, input := range inputs {
				number := input.BatchNumber
				if number == "" {
					number, err = tx.NextDocumentNumber(ctx, grPrefix, 3, s.today())
					if err != nil {
						return fmt.Errorf("line %d: %w", i+1, err)
					}
				}
				receipt, err := receiveLine(ctx, tx, input, number, grn)
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				receipts = append(receipts, receipt)
			}
			result = &MultiReceipt{GRNNumber: grn, Receipts: receipts}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// receiveLine creates the batch and records its opening RECEIPT inside
// the caller's transaction. The batch starts empty; the ledger entry
// brings it to the received quantity so before/after read 0 → qty.
func receiveLine(ctx context.Context, tx storage.Transaction, input Input, batchNumber, grn string) (*Receipt, error) {
	batch := &types.Batch{
		ItemID:            input.ItemID,
		LocationID:        input.LocationID,
		BatchNumber:       batchNumber,
		QuantityReceived:  input.Quantity,
		QuantityAvailable: decimal.Zero,
		ExpirationDate:    input.ExpirationDate,
		ReceiptDate:       input.ReceiptDate,
		Status:            types.BatchActive,
		GRNNumber:         grn,
		Notes:             input.Notes,
	}
	if err := tx.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	movement, batch, err := ledger.Record(ctx, tx, ledger.RecordInput{
		BatchID:         batch.ID,
		Type:            types.MovementReceipt,
		Quantity:        input.Quantity,
		ReferenceNumber: grn,
		PerformedBy:     input.PerformedBy,
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{Batch: batch, Movement: movement, GRNNumber: grn}, nil
}

// validate applies the receiving rules and fills defaulted fields.
func (s *Service) validate(ctx context.Context, input *Input) error {
	today := s.today()
	if input.ReceiptDate.IsZero() {
		input.ReceiptDate = today
	}

	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return types.Validation(types.CodeInvalidQuantity, "received quantity must be positive, got %s", input.Quantity)
	}
	if input.ExpirationDate.Before(today) {
		return types.Validation(types.CodeExpiredOnArrival, "expiration date %s is already past", input.ExpirationDate)
	}
	if input.ReceiptDate.After(today) {
		return types.Validation(types.CodeFutureReceiptDate, "receipt date %s is in the future", input.ReceiptDate)
	}

	item, err := s.store.GetItem(ctx, input.ItemID)
	if err != nil {
		if types.IsNotFound(err) {
			return types.Validation(types.CodeItemNotFound, "item %s does not exist", input.ItemID)
		}
		return err
	}
	if !item.IsActive {
		return types.Validation(types.CodeItemInactive, "item %s is inactive", item.SKU)
	}

	if input.LocationID != "" {
		loc, err := s.store.GetLocation(ctx, input.LocationID)
		if err != nil {
			if types.IsNotFound(err) {
				return types.Validation(types.CodeLocationNotFound, "location %s does not exist", input.LocationID)
			}
			return err
		}
		if !loc.IsActive {
			return types.Validation(types.CodeLocationInactive, "location %s is inactive", loc.Code)
		}
	}

	if input.BatchNumber != "" {
		if _, err := s.store.GetBatchByNumber(ctx, input.BatchNumber); err == nil {
			return types.Validation(types.CodeDuplicateBatchNumber, "batch number %s already exists", input.BatchNumber)
		} else if !types.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// withNumberRetry runs fn, retrying on document-number uniqueness
// conflicts with a short randomized backoff.
func (s *Service) withNumberRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1+rand.Intn(15)) * time.Millisecond) // #nosec G404
		}
		err = fn()
		if err == nil || types.ConflictCode(err) != types.CodeDuplicateBatchNumber {
			return err
		}
	}
	return types.Conflict(types.CodeDuplicateNumber, "could not allocate a unique document number after %d attempts: %v", maxNumberAttempts, err)
}

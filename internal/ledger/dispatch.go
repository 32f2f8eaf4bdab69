package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

const (
	dspPrefix       = "DSP"
	dspCounterWidth = 3
)

// DispatchLine is one requested direct-dispatch line.
type DispatchLine struct {
	BatchID  string
	Quantity decimal.Decimal
}

// DispatchInput describes a direct dispatch: stock leaving without a
// delivery note (internal consumption, samples, production transfers).
// ReferenceNumber stamps every movement; a DSP-YYMMDD-NNN number is
// allocated when empty.
type DispatchInput struct {
	Lines           []DispatchLine
	ReferenceNumber string
	Notes           string
	PerformedBy     string
}

// DispatchResult carries the shared reference, the recorded movements,
// and any FEFO warnings collected during validation. Warnings never
// block the dispatch.
type DispatchResult struct {
	ReferenceNumber string            `json:"reference_number"`
	Movements       []*types.Movement `json:"movements"`
	TotalQuantity   decimal.Decimal   `json:"total_quantity"`
	Warnings        []fefo.Issue      `json:"warnings,omitempty"`
}

// Dispatch FEFO-validates every line and records one DISPATCH movement
// per line under a shared reference, all in one transaction. Unlike a
// delivery note nothing else is written; the ledger carries the whole
// record.
func (s *Service) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	if len(input.Lines) == 0 {
		return nil, types.Validation(types.CodeMinOneLine, "a dispatch needs at least one line")
	}
	for i, line := range input.Lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, types.Validation(types.CodeInvalidQuantity, "line %d: quantity must be positive, got %s", i+1, line.Quantity)
		}
	}

	var result *DispatchResult
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		reference := input.ReferenceNumber
		if reference == "" {
			// Movements share one reference, so no UNIQUE column backs
			// the counter; the write lock this transaction already holds
			// serializes the scan against concurrent allocations instead.
			var err error
			reference, err = tx.NextDocumentNumber(ctx, dspPrefix, dspCounterWidth, s.today())
			if err != nil {
				return err
			}
		}

		// Lines are dispatched in ascending batch-id order to keep lock
		// acquisition ordered.
		ordered := make([]DispatchLine, len(input.Lines))
		copy(ordered, input.Lines)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].BatchID < ordered[j].BatchID })

		engine := fefo.NewWithClock(tx, s.today)
		var warnings []fefo.Issue
		var movements []*types.Movement
		total := decimal.Zero
		for _, line := range ordered {
			check, err := engine.Validate(ctx, line.BatchID, line.Quantity)
			if err != nil {
				return err
			}
			if !check.OK {
				issue := check.Errors[0]
				return types.Validation(issue.Code, "batch %s: %s", line.BatchID, issue.Message)
			}
			warnings = append(warnings, check.Warnings...)

			movement, _, err := Record(ctx, tx, RecordInput{
				BatchID:         line.BatchID,
				Type:            types.MovementDispatch,
				Quantity:        line.Quantity,
				ReferenceNumber: reference,
				Notes:           input.Notes,
				PerformedBy:     input.PerformedBy,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
			total = total.Add(line.Quantity)
		}
		result = &DispatchResult{
			ReferenceNumber: reference,
			Movements:       movements,
			TotalQuantity:   total,
			Warnings:        warnings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Package documents manages the delivery-note lifecycle. Creating a note
// commits stock immediately: each line is FEFO-validated and dispatched
// through the ledger in the same transaction that inserts the DRAFT note.
// Cancellation compensates with RECEIPT movements so the ledger keeps the
// whole story.
package documents

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

const (
	dnPrefix          = "DN"
	dnCounterWidth    = 4
	maxNumberAttempts = 3
)

// Line is one requested delivery-note line.
type Line struct {
	BatchID  string
	Quantity decimal.Decimal
}

// CreateInput describes a new delivery note.
type CreateInput struct {
	CustomerID    string
	Lines         []Line
	IsConsignment *bool // nil defaults to the customer's VMI flag
	Notes         string
	CreatedBy     string
}

// CreateResult carries the created note, its lines with display context,
// and any FEFO warnings collected during validation. Warnings never
// block creation.
type CreateResult struct {
	Note     *types.DeliveryNote             `json:"note"`
	Items    []*types.DeliveryNoteItemDetail `json:"items"`
	Warnings []fefo.Issue                    `json:"warnings,omitempty"`
}

// Detail is a note with its lines for display.
type Detail struct {
	Note     *types.DeliveryNote             `json:"note"`
	Customer *types.Customer                 `json:"customer"`
	Items    []*types.DeliveryNoteItemDetail `json:"items"`
}

// Service manages delivery notes.
type Service struct {
	store storage.Storage
	today func() types.Date
}

// New creates a delivery-note service reading "today" from the local
// clock.
func New(store storage.Storage) *Service {
	return NewWithClock(store, types.Today)
}

// NewWithClock creates a delivery-note service with an explicit clock.
func NewWithClock(store storage.Storage, today func() types.Date) *Service {
	return &Service{store: store, today: today}
}

// Create validates and dispatches every line, then inserts the DRAFT
// note, all in one transaction. Stock is committed here, not at issue
// time.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if len(input.Lines) == 0 {
		return nil, types.Validation(types.CodeMinOneLine, "a delivery note needs at least one line")
	}
	for i, line := range input.Lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, types.Validation(types.CodeInvalidQuantity, "line %d: quantity must be positive, got %s", i+1, line.Quantity)
		}
	}

	var result *CreateResult
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1+rand.Intn(15)) * time.Millisecond) // #nosec G404
		}
		result, err = s.create(ctx, input)
		if err == nil || types.ConflictCode(err) != types.CodeDuplicateNumber {
			return result, err
		}
	}
	return nil, types.Conflict(types.CodeDuplicateNumber, "could not allocate a unique delivery note number after %d attempts: %v", maxNumberAttempts, err)
}

func (s *Service) create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	var result *CreateResult
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		customer, err := tx.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			if types.IsNotFound(err) {
				return types.Validation(types.CodeCustomerNotFound, "customer %s does not exist", input.CustomerID)
			}
			return err
		}
		if !customer.IsActive {
			return types.Validation(types.CodeCustomerInactive, "customer %s is inactive", customer.Name)
		}

		today := s.today()
		dnNumber, err := tx.NextDocumentNumber(ctx, dnPrefix, dnCounterWidth, today)
		if err != nil {
			return err
		}

		// Lines are dispatched in ascending batch-id order to keep lock
		// acquisition ordered; rows are inserted in input order below.
		ordered := make([]Line, len(input.Lines))
		copy(ordered, input.Lines)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].BatchID < ordered[j].BatchID })

		engine := fefo.NewWithClock(tx, s.today)
		var warnings []fefo.Issue
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

			if _, _, err := ledger.Record(ctx, tx, ledger.RecordInput{
				BatchID:         line.BatchID,
				Type:            types.MovementDispatch,
				Quantity:        line.Quantity,
				ReferenceNumber: dnNumber,
				PerformedBy:     input.CreatedBy,
			}); err != nil {
				return err
			}
		}

		consignment := customer.IsVMICustomer
		if input.IsConsignment != nil {
			consignment = *input.IsConsignment
		}
		note := &types.DeliveryNote{
			DNNumber:      dnNumber,
			CustomerID:    customer.ID,
			Status:        types.DNDraft,
			IsConsignment: consignment,
			Notes:         input.Notes,
			CreatedBy:     input.CreatedBy,
		}
		if err := tx.CreateDeliveryNote(ctx, note); err != nil {
			return err
		}
		for _, line := range input.Lines {
			if err := tx.InsertDeliveryNoteItem(ctx, &types.DeliveryNoteItem{
				DeliveryNoteID: note.ID,
				BatchID:        line.BatchID,
				Quantity:       line.Quantity,
			}); err != nil {
				return err
			}
		}

		items, err := tx.DeliveryNoteItems(ctx, note.ID)
		if err != nil {
			return err
		}
		result = &CreateResult{Note: note, Items: items, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// validTransitions maps each state to the states it may move to.
// CANCELLED and INVOICED are terminal.
var validTransitions = map[types.DNStatus][]types.DNStatus{
	types.DNDraft:     {types.DNIssued, types.DNCancelled},
	types.DNIssued:    {types.DNDelivered, types.DNCancelled},
	types.DNDelivered: {types.DNInvoiced, types.DNCancelled},
}

func canTransition(from, to types.DNStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Issue moves a DRAFT note to ISSUED, stamping the issue date when
// unset.
func (s *Service) Issue(ctx context.Context, id string) (*types.DeliveryNote, error) {
	return s.transition(ctx, id, types.DNIssued, func(note *types.DeliveryNote) {
		if note.IssueDate == nil {
			d := s.today()
			note.IssueDate = &d
		}
	})
}

// MarkDelivered moves an ISSUED note to DELIVERED, stamping the delivery
// date when unset.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*types.DeliveryNote, error) {
	return s.transition(ctx, id, types.DNDelivered, func(note *types.DeliveryNote) {
		if note.DeliveryDate == nil {
			d := s.today()
			note.DeliveryDate = &d
		}
	})
}

// MarkInvoiced moves a DELIVERED note to INVOICED, its terminal state.
func (s *Service) MarkInvoiced(ctx context.Context, id string) (*types.DeliveryNote, error) {
	return s.transition(ctx, id, types.DNInvoiced, nil)
}

func (s *Service) transition(ctx context.Context, id string, to types.DNStatus, stamp func(*types.DeliveryNote)) (*types.DeliveryNote, error) {
	var note *types.DeliveryNote
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var err error
		note, err = tx.GetDeliveryNote(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(note.Status, to) {
			return types.Conflict(types.CodeInvalidTransition, "delivery note %s cannot move from %s to %s", note.DNNumber, note.Status, to)
		}
		note.Status = to
		if stamp != nil {
			stamp(note)
		}
		note.UpdatedAt = time.Now().UTC()
		return tx.UpdateDeliveryNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Cancel moves the note to CANCELLED and records one compensating
// RECEIPT per line so the dispatched stock returns to its batches.
// Scrapped batches accept the return; their status stays SCRAP.
func (s *Service) Cancel(ctx context.Context, id, performedBy string) (*types.DeliveryNote, error) {
	var note *types.DeliveryNote
	err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		var err error
		note, err = tx.GetDeliveryNote(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(note.Status, types.DNCancelled) {
			return types.Conflict(types.CodeInvalidTransition, "delivery note %s cannot move from %s to %s", note.DNNumber, note.Status, types.DNCancelled)
		}

		items, err := tx.DeliveryNoteItems(ctx, note.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, _, err := ledger.Record(ctx, tx, ledger.RecordInput{
				BatchID:         item.BatchID,
				Type:            types.MovementReceipt,
				Quantity:        item.Quantity,
				ReferenceNumber: note.DNNumber,
				Notes:           fmt.Sprintf("return from cancelled delivery note %s", note.DNNumber),
				PerformedBy:     performedBy,
			}); err != nil {
				return err
			}
		}

		note.Status = types.DNCancelled
		note.UpdatedAt = time.Now().UTC()
		return tx.UpdateDeliveryNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Get loads a note with its lines and customer.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	note, err := s.store.GetDeliveryNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, note)
}

// GetByNumber loads a note by its DN number.
func (s *Service) GetByNumber(ctx context.Context, dnNumber string) (*Detail, error) {
	note, err := s.store.GetDeliveryNoteByNumber(ctx, dnNumber)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, note)
}

func (s *Service) detail(ctx context.Context, note *types.DeliveryNote) (*Detail, error) {
	customer, err := s.store.GetCustomer(ctx, note.CustomerID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.DeliveryNoteItems(ctx, note.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Note: note, Customer: customer, Items: items}, nil
}

// List returns notes matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter types.DeliveryNoteFilter) ([]*types.DeliveryNote, error) {
	return s.store.ListDeliveryNotes(ctx, filter)
}

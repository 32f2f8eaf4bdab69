package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

const dnColumns = `id, dn_number, customer_id, status, issue_date, delivery_date,
	is_consignment, notes, created_by, created_at, updated_at`

// CreateDeliveryNote inserts a delivery note header. A duplicate DN number
// fails with a Conflict; callers own the retry.
func (q *queries) CreateDeliveryNote(ctx context.Context, dn *types.DeliveryNote) error {
	if dn.ID == "" {
		dn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dn.CreatedAt.IsZero() {
		dn.CreatedAt = now
	}
	dn.UpdatedAt = dn.CreatedAt
	if dn.Status == "" {
		dn.Status = types.DNDraft
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO delivery_notes (
			id, dn_number, customer_id, status, issue_date, delivery_date,
			is_consignment, notes, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		dn.ID, dn.DNNumber, dn.CustomerID, string(dn.Status),
		datePtr(dn.IssueDate), datePtr(dn.DeliveryDate),
		boolToInt(dn.IsConsignment), dn.Notes, dn.CreatedBy,
		dn.CreatedAt, dn.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return types.Conflict(types.CodeDuplicateNumber, "delivery note %s already exists", dn.DNNumber)
		}
		return fmt.Errorf("failed to insert delivery note: %w", err)
	}
	return nil
}

// InsertDeliveryNoteItem inserts one line of a delivery note.
func (q *queries) InsertDeliveryNoteItem(ctx context.Context, line *types.DeliveryNoteItem) error {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO delivery_note_items (id, delivery_note_id, batch_id, quantity, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, line.ID, line.DeliveryNoteID, line.BatchID, decToText(line.Quantity), line.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery note item: %w", err)
	}
	return nil
}

// GetDeliveryNote looks up a delivery note by id.
func (q *queries) GetDeliveryNote(ctx context.Context, id string) (*types.DeliveryNote, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+dnColumns+` FROM delivery_notes WHERE id = ?`, id)
	dn, err := scanDeliveryNote(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("delivery note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery note: %w", err)
	}
	return dn, nil
}

// GetDeliveryNoteByNumber looks up a delivery note by its DN number.
func (q *queries) GetDeliveryNoteByNumber(ctx context.Context, dnNumber string) (*types.DeliveryNote, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+dnColumns+` FROM delivery_notes WHERE dn_number = ?`, dnNumber)
	dn, err := scanDeliveryNote(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("delivery note", dnNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery note by number: %w", err)
	}
	return dn, nil
}

// ListDeliveryNotes returns delivery notes newest first.
func (q *queries) ListDeliveryNotes(ctx context.Context, filter types.DeliveryNoteFilter) ([]*types.DeliveryNote, error) {
	query := `SELECT ` + dnColumns + ` FROM delivery_notes`
	var conds []string
	var args []interface{}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CustomerID != "" {
		conds = append(conds, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.To.UTC())
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, types.ClampLimit(filter.Limit))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []*types.DeliveryNote
	for rows.Next() {
		dn, err := scanDeliveryNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery note: %w", err)
		}
		notes = append(notes, dn)
	}
	return notes, rows.Err()
}

// UpdateDeliveryNote writes status, dates, notes and updated_at.
func (q *queries) UpdateDeliveryNote(ctx context.Context, dn *types.DeliveryNote) error {
	dn.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		UPDATE delivery_notes SET
			status = ?, issue_date = ?, delivery_date = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`,
		string(dn.Status), datePtr(dn.IssueDate), datePtr(dn.DeliveryDate),
		dn.Notes, dn.UpdatedAt, dn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("delivery note", dn.ID)
	}
	return nil
}

// DeliveryNoteItems returns the lines of a delivery note with batch, item
// and location context, in insertion order.
func (q *queries) DeliveryNoteItems(ctx context.Context, dnID string) ([]*types.DeliveryNoteItemDetail, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT d.id, d.delivery_note_id, d.batch_id, d.quantity, d.created_at,
			b.batch_number, b.expiration_date, i.sku, i.name, i.unit,
			COALESCE(l.code, '')
		FROM delivery_note_items d
		JOIN batches b ON b.id = d.batch_id
		JOIN items i ON i.id = b.item_id
		LEFT JOIN locations l ON l.id = b.location_id
		WHERE d.delivery_note_id = ?
		ORDER BY d.created_at, d.id
	`, dnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery note items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []*types.DeliveryNoteItemDetail
	for rows.Next() {
		var line types.DeliveryNoteItemDetail
		var quantity string

		err := rows.Scan(
			&line.ID, &line.DeliveryNoteID, &line.BatchID, &quantity, &line.CreatedAt,
			&line.BatchNumber, &line.ExpirationDate, &line.ItemSKU, &line.ItemName,
			&line.Unit, &line.LocationCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery note item: %w", err)
		}
		if line.Quantity, err = decFromText(quantity); err != nil {
			return nil, err
		}
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

// datePtr maps a nil date to NULL.
func datePtr(d *types.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return *d
}

func scanDeliveryNote(s scanner) (*types.DeliveryNote, error) {
	var dn types.DeliveryNote
	var issueDate, deliveryDate types.Date
	var consignment int

	err := s.Scan(
		&dn.ID, &dn.DNNumber, &dn.CustomerID, &dn.Status,
		&issueDate, &deliveryDate, &consignment, &dn.Notes,
		&dn.CreatedBy, &dn.CreatedAt, &dn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if !issueDate.IsZero() {
		dn.IssueDate = &issueDate
	}
	if !deliveryDate.IsZero() {
		dn.DeliveryDate = &deliveryDate
	}
	dn.IsConsignment = consignment != 0
	return &dn, nil
}

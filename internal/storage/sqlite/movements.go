package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

// InsertMovement appends a ledger row. Movements are immutable: the
// storage layer exposes no update or delete for them.
func (q *queries) InsertMovement(ctx context.Context, m *types.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO movements (
			id, batch_id, movement_type, quantity, quantity_before,
			quantity_after, reference_number, notes, performed_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.BatchID, string(m.Type), decToText(m.Quantity),
		decToText(m.QuantityBefore), decToText(m.QuantityAfter),
		nullStr(m.ReferenceNumber), m.Notes, m.PerformedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

// ListMovements returns ledger history newest first, enriched with batch
// and item context. Limit defaults to 50 and clamps at 500.
func (q *queries) ListMovements(ctx context.Context, filter types.MovementFilter) ([]*types.MovementWithContext, error) {
	query := `
		SELECT m.id, m.batch_id, m.movement_type, m.quantity, m.quantity_before,
			m.quantity_after, m.reference_number, m.notes, m.performed_by, m.created_at,
			b.batch_number, i.sku, i.name
		FROM movements m
		JOIN batches b ON b.id = m.batch_id
		JOIN items i ON i.id = b.item_id`

	var conds []string
	var args []interface{}
	if filter.BatchID != "" {
		conds = append(conds, "m.batch_id = ?")
		args = append(args, filter.BatchID)
	}
	if filter.ItemID != "" {
		conds = append(conds, "b.item_id = ?")
		args = append(args, filter.ItemID)
	}
	if filter.Type != "" {
		conds = append(conds, "m.movement_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.From != nil {
		conds = append(conds, "m.created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conds = append(conds, "m.created_at <= ?")
		args = append(args, filter.To.UTC())
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY m.created_at DESC, m.id DESC LIMIT ?"
	args = append(args, types.ClampLimit(filter.Limit))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*types.MovementWithContext
	for rows.Next() {
		var mc types.MovementWithContext
		var reference sql.NullString
		var quantity, before, after string

		err := rows.Scan(
			&mc.ID, &mc.BatchID, &mc.Type, &quantity, &before, &after,
			&reference, &mc.Notes, &mc.PerformedBy, &mc.CreatedAt,
			&mc.BatchNumber, &mc.ItemSKU, &mc.ItemName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}

		mc.ReferenceNumber = strOrEmpty(reference)
		if mc.Quantity, err = decFromText(quantity); err != nil {
			return nil, err
		}
		if mc.QuantityBefore, err = decFromText(before); err != nil {
			return nil, err
		}
		if mc.QuantityAfter, err = decFromText(after); err != nil {
			return nil, err
		}
		result = append(result, &mc)
	}
	return result, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

const batchColumns = `id, item_id, location_id, batch_number, quantity_received,
	quantity_available, expiration_date, receipt_date, status, grn_number,
	notes, version, created_at, updated_at`

// batchCtxColumns prefixes the batch columns with b. and appends the join
// context used by the FEFO engine and the alert generator.
const batchCtxColumns = `b.id, b.item_id, b.location_id, b.batch_number, b.quantity_received,
	b.quantity_available, b.expiration_date, b.receipt_date, b.status, b.grn_number,
	b.notes, b.version, b.created_at, b.updated_at,
	i.sku, i.name, COALESCE(l.code, '')`

const batchCtxFrom = ` FROM batches b
	JOIN items i ON i.id = b.item_id
	LEFT JOIN locations l ON l.id = b.location_id`

// fefoOrder is the canonical pick order: earliest expiration first, ties
// broken by receipt date, then batch id for stability.
const fefoOrder = ` ORDER BY b.expiration_date ASC, b.receipt_date ASC, b.id ASC`

// CreateBatch inserts a batch. A duplicate batch number fails with a
// Conflict. Version starts at 1.
func (q *queries) CreateBatch(ctx context.Context, batch *types.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = batch.CreatedAt
	if batch.Status == "" {
		batch.Status = types.BatchActive
	}
	if batch.Version == 0 {
		batch.Version = 1
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO batches (
			id, item_id, location_id, batch_number, quantity_received,
			quantity_available, expiration_date, receipt_date, status,
			grn_number, notes, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		batch.ID, batch.ItemID, nullStr(batch.LocationID), batch.BatchNumber,
		decToText(batch.QuantityReceived), decToText(batch.QuantityAvailable),
		batch.ExpirationDate, batch.ReceiptDate, string(batch.Status),
		nullStr(batch.GRNNumber), batch.Notes, batch.Version,
		batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return types.Conflict(types.CodeDuplicateBatchNumber, "batch number %s already exists", batch.BatchNumber)
		}
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// GetBatch looks up a batch by id.
func (q *queries) GetBatch(ctx context.Context, id string) (*types.Batch, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("batch", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// GetBatchByNumber looks up a batch by its batch number.
func (q *queries) GetBatchByNumber(ctx context.Context, batchNumber string) (*types.Batch, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE batch_number = ?`, batchNumber)
	batch, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("batch", batchNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch by number: %w", err)
	}
	return batch, nil
}

// ListBatches returns batches in FEFO order, optionally narrowed by item
// and status.
func (q *queries) ListBatches(ctx context.Context, filter types.BatchFilter) ([]*types.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches`
	var conds []string
	var args []interface{}
	if filter.ItemID != "" {
		conds = append(conds, "item_id = ?")
		args = append(args, filter.ItemID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY expiration_date ASC, receipt_date ASC, id ASC LIMIT ?"
	args = append(args, types.ClampLimit(filter.Limit))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []*types.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// ActiveBatchesByItem returns an item's ACTIVE batches with display
// context in FEFO order. Expired batches are included; callers filter.
func (q *queries) ActiveBatchesByItem(ctx context.Context, itemID string) ([]*types.BatchWithContext, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+batchCtxColumns+batchCtxFrom+` WHERE b.item_id = ? AND b.status = 'ACTIVE'`+fefoOrder,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active batches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectBatchCtx(rows)
}

// UpdateBatch writes the mutable batch fields. The ledger is the only
// caller that changes quantity_available; it bumps version on every write.
func (q *queries) UpdateBatch(ctx context.Context, batch *types.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		UPDATE batches SET
			location_id = ?, quantity_available = ?, status = ?,
			notes = ?, version = ?, updated_at = ?
		WHERE id = ?
	`,
		nullStr(batch.LocationID), decToText(batch.QuantityAvailable),
		string(batch.Status), batch.Notes, batch.Version, batch.UpdatedAt,
		batch.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("batch", batch.ID)
	}
	return nil
}

// ExpiringBatches returns ACTIVE batches with stock whose expiration lies
// in (after, until], FEFO ordered.
func (q *queries) ExpiringBatches(ctx context.Context, after, until types.Date) ([]*types.BatchWithContext, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+batchCtxColumns+batchCtxFrom+`
		WHERE b.status = 'ACTIVE'
		  AND CAST(b.quantity_available AS REAL) > 0
		  AND b.expiration_date > ?
		  AND b.expiration_date <= ?`+fefoOrder,
		after, until,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring batches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectBatchCtx(rows)
}

// ExpiredActiveBatches returns ACTIVE batches whose expiration date is
// strictly before today.
func (q *queries) ExpiredActiveBatches(ctx context.Context, today types.Date) ([]*types.BatchWithContext, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+batchCtxColumns+batchCtxFrom+`
		WHERE b.status = 'ACTIVE' AND b.expiration_date < ?`+fefoOrder,
		today,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired batches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectBatchCtx(rows)
}

func scanBatch(s scanner) (*types.Batch, error) {
	var batch types.Batch
	var locationID, grn sql.NullString
	var received, available string

	err := s.Scan(
		&batch.ID, &batch.ItemID, &locationID, &batch.BatchNumber,
		&received, &available, &batch.ExpirationDate, &batch.ReceiptDate,
		&batch.Status, &grn, &batch.Notes, &batch.Version,
		&batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	batch.LocationID = strOrEmpty(locationID)
	batch.GRNNumber = strOrEmpty(grn)
	if batch.QuantityReceived, err = decFromText(received); err != nil {
		return nil, err
	}
	if batch.QuantityAvailable, err = decFromText(available); err != nil {
		return nil, err
	}
	return &batch, nil
}

func collectBatchCtx(rows *sql.Rows) ([]*types.BatchWithContext, error) {
	var result []*types.BatchWithContext
	for rows.Next() {
		var bc types.BatchWithContext
		var locationID, grn sql.NullString
		var received, available string

		err := rows.Scan(
			&bc.ID, &bc.ItemID, &locationID, &bc.BatchNumber,
			&received, &available, &bc.ExpirationDate, &bc.ReceiptDate,
			&bc.Status, &grn, &bc.Notes, &bc.Version,
			&bc.CreatedAt, &bc.UpdatedAt,
			&bc.ItemSKU, &bc.ItemName, &bc.LocationCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch context: %w", err)
		}

		bc.LocationID = strOrEmpty(locationID)
		bc.GRNNumber = strOrEmpty(grn)
		if bc.QuantityReceived, err = decFromText(received); err != nil {
			return nil, err
		}
		if bc.QuantityAvailable, err = decFromText(available); err != nil {
			return nil, err
		}
		result = append(result, &bc)
	}
	return result, rows.Err()
}

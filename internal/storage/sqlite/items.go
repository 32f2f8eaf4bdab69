package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

const itemColumns = `id, sku, name, description, unit, cost_per_unit, currency,
	reorder_point, min_stock, max_stock, is_active, created_at, updated_at`

// CreateItem inserts a catalog item. ID and timestamps are filled in when
// unset. A duplicate SKU fails with a Conflict.
func (q *queries) CreateItem(ctx context.Context, item *types.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	if item.Unit == "" {
		item.Unit = "kg"
	}
	if item.Currency == "" {
		item.Currency = "ILS"
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO items (
			id, sku, name, description, unit, cost_per_unit, currency,
			reorder_point, min_stock, max_stock, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.SKU, item.Name, item.Description, item.Unit,
		decToText(item.CostPerUnit), item.Currency,
		nullDec(item.ReorderPoint), nullDec(item.MinStock), nullDec(item.MaxStock),
		boolToInt(item.IsActive), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return types.Conflict(types.CodeDuplicateSKU, "item with sku %s already exists", item.SKU)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem looks up an item by id.
func (q *queries) GetItem(ctx context.Context, id string) (*types.Item, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetItemBySKU looks up an item by its SKU.
func (q *queries) GetItemBySKU(ctx context.Context, sku string) (*types.Item, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE sku = ?`, sku)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("item", sku)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by sku: %w", err)
	}
	return item, nil
}

// ListItems returns catalog items ordered by SKU.
func (q *queries) ListItems(ctx context.Context, filter types.ItemFilter) ([]*types.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var conds []string
	var args []interface{}
	if filter.ActiveOnly {
		conds = append(conds, "is_active = 1")
	}
	if filter.Search != "" {
		conds = append(conds, "(sku LIKE ? OR name LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY sku LIMIT ?"
	args = append(args, types.ClampLimit(filter.Limit))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem writes the mutable item fields: name, description,
// cost_per_unit, thresholds, is_active.
func (q *queries) UpdateItem(ctx context.Context, item *types.Item) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		UPDATE items SET
			name = ?, description = ?, cost_per_unit = ?,
			reorder_point = ?, min_stock = ?, max_stock = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		item.Name, item.Description, decToText(item.CostPerUnit),
		nullDec(item.ReorderPoint), nullDec(item.MinStock), nullDec(item.MaxStock),
		boolToInt(item.IsActive), item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("item", item.ID)
	}
	return nil
}

// DeleteItem removes an item that has no batches of any status.
func (q *queries) DeleteItem(ctx context.Context, id string) error {
	var batchCount int
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batches WHERE item_id = ?`, id,
	).Scan(&batchCount); err != nil {
		return fmt.Errorf("failed to count batches: %w", err)
	}
	if batchCount > 0 {
		return types.Conflict(types.CodeHasBatches, "item %s has %d batches; deactivate it instead", id, batchCount)
	}

	res, err := q.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("item", id)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(s scanner) (*types.Item, error) {
	var item types.Item
	var cost string
	var reorder, minStock, maxStock sql.NullString
	var active int

	err := s.Scan(
		&item.ID, &item.SKU, &item.Name, &item.Description, &item.Unit,
		&cost, &item.Currency, &reorder, &minStock, &maxStock,
		&active, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.CostPerUnit, err = decFromText(cost); err != nil {
		return nil, err
	}
	if item.ReorderPoint, err = decFromNull(reorder); err != nil {
		return nil, err
	}
	if item.MinStock, err = decFromNull(minStock); err != nil {
		return nil, err
	}
	if item.MaxStock, err = decFromNull(maxStock); err != nil {
		return nil, err
	}
	item.IsActive = active != 0
	return &item, nil
}

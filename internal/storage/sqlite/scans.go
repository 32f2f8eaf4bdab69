package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

// ItemStockLevels returns every active item together with its total
// available quantity over ACTIVE, non-expired batches. Totals are summed
// in Go to preserve decimal scale.
func (q *queries) ItemStockLevels(ctx context.Context, today types.Date) ([]*types.ItemStockLevel, error) {
	items, err := q.ListItems(ctx, types.ItemFilter{ActiveOnly: true, Limit: types.MaxLimit})
	if err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT item_id, quantity_available
		FROM batches
		WHERE status = 'ACTIVE' AND expiration_date >= ?
	`, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var itemID, available string
		if err := rows.Scan(&itemID, &available); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		d, err := decFromText(available)
		if err != nil {
			return nil, err
		}
		totals[itemID] = totals[itemID].Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	levels := make([]*types.ItemStockLevel, 0, len(items))
	for _, item := range items {
		levels = append(levels, &types.ItemStockLevel{
			Item:           *item,
			TotalAvailable: totals[item.ID],
		})
	}
	return levels, nil
}

// DeadStockItems returns items whose ACTIVE batches have all gone without
// a movement since the cutoff. The last movement is the maximum over the
// item's whole ACTIVE batch set, so one busy batch keeps the item out of
// the result. Totals are summed in Go to preserve decimal scale.
func (q *queries) DeadStockItems(ctx context.Context, cutoff time.Time) ([]*types.DeadStockItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT i.id, i.sku, i.name, i.description, i.unit, i.cost_per_unit,
			i.currency, i.reorder_point, i.min_stock, i.max_stock,
			i.is_active, i.created_at, i.updated_at, MAX(m.created_at)
		FROM items i
		JOIN batches b ON b.item_id = i.id AND b.status = 'ACTIVE'
		JOIN movements m ON m.batch_id = b.id
		GROUP BY i.id
		HAVING MAX(m.created_at) < ?
		ORDER BY i.sku
	`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query dead stock: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*types.DeadStockItem
	for rows.Next() {
		var ds types.DeadStockItem
		var cost string
		var reorder, minStock, maxStock sql.NullString
		var active int

		err := rows.Scan(
			&ds.ID, &ds.SKU, &ds.Name, &ds.Description, &ds.Unit,
			&cost, &ds.Currency, &reorder, &minStock, &maxStock,
			&active, &ds.CreatedAt, &ds.UpdatedAt, &ds.LastMovementAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead stock item: %w", err)
		}

		if ds.CostPerUnit, err = decFromText(cost); err != nil {
			return nil, err
		}
		if ds.ReorderPoint, err = decFromNull(reorder); err != nil {
			return nil, err
		}
		if ds.MinStock, err = decFromNull(minStock); err != nil {
			return nil, err
		}
		if ds.MaxStock, err = decFromNull(maxStock); err != nil {
			return nil, err
		}
		ds.IsActive = active != 0
		result = append(result, &ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	totals, err := q.activeTotalsByItem(ctx)
	if err != nil {
		return nil, err
	}
	for _, ds := range result {
		ds.TotalAvailable = totals[ds.ID]
	}
	return result, nil
}

// activeTotalsByItem sums quantity_available over ACTIVE batches per item,
// in Go to preserve decimal scale.
func (q *queries) activeTotalsByItem(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT item_id, quantity_available
		FROM batches
		WHERE status = 'ACTIVE'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var itemID, available string
		if err := rows.Scan(&itemID, &available); err != nil {
			return nil, fmt.Errorf("failed to scan stock total: %w", err)
		}
		d, err := decFromText(available)
		if err != nil {
			return nil, err
		}
		totals[itemID] = totals[itemID].Add(d)
	}
	return totals, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/inkops/warelog/internal/types"
)

// GetStatistics returns table counts and database metadata for the stats
// command and daemon health reporting.
func (q *queries) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	var stats types.Statistics

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM items`, &stats.Items},
		{`SELECT COUNT(*) FROM locations`, &stats.Locations},
		{`SELECT COUNT(*) FROM batches`, &stats.Batches},
		{`SELECT COUNT(*) FROM batches WHERE status = 'ACTIVE'`, &stats.ActiveBatches},
		{`SELECT COUNT(*) FROM movements`, &stats.Movements},
		{`SELECT COUNT(*) FROM customers`, &stats.Customers},
		{`SELECT COUNT(*) FROM delivery_notes`, &stats.DeliveryNotes},
		{`SELECT COUNT(*) FROM alerts`, &stats.Alerts},
		{`SELECT COUNT(*) FROM alerts WHERE is_read = 0 AND is_dismissed = 0`, &stats.UnreadAlerts},
		{`SELECT COUNT(*) FROM users`, &stats.Users},
	}
	for _, c := range counts {
		if err := q.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to get counts: %w", err)
		}
	}

	var pageCount, pageSize int64
	if err := q.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := q.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}
	stats.DBSizeBytes = pageCount * pageSize

	var version sql.NullString
	err := q.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'schema_version'`,
	).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if version.Valid {
		if n, err := strconv.Atoi(version.String); err == nil {
			stats.SchemaVersion = n
		}
	}

	return &stats, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

// InsertAlert appends a generated alert. Deduplication is the caller's
// concern (AlertExists under the same transaction).
func (q *queries) InsertAlert(ctx context.Context, a *types.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, alert_type, severity, batch_id, item_id, title, message,
			is_read, is_dismissed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, string(a.Type), string(a.Severity),
		nullStr(a.BatchID), nullStr(a.ItemID), a.Title, a.Message,
		boolToInt(a.IsRead), boolToInt(a.IsDismissed), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ListAlerts returns alerts newest first. Dismissed alerts are excluded
// unless the filter includes them.
func (q *queries) ListAlerts(ctx context.Context, filter types.AlertFilter) ([]*types.Alert, error) {
	query := `
		SELECT id, alert_type, severity, batch_id, item_id, title, message,
			is_read, is_dismissed, created_at
		FROM alerts`

	var conds []string
	var args []interface{}
	if !filter.IncludeDismissed {
		conds = append(conds, "is_dismissed = 0")
	}
	if filter.UnreadOnly {
		conds = append(conds, "is_read = 0")
	}
	if filter.Type != "" {
		conds = append(conds, "alert_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, string(filter.Severity))
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
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []*types.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MarkAlertRead flags one alert as read.
func (q *queries) MarkAlertRead(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE alerts SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("alert", id)
	}
	return nil
}

// MarkAllAlertsRead flags every unread alert as read and returns how many
// were flagged.
func (q *queries) MarkAllAlertsRead(ctx context.Context) (int, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE alerts SET is_read = 1 WHERE is_read = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// DismissAlert flags one alert as dismissed (and read).
func (q *queries) DismissAlert(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE alerts SET is_dismissed = 1, is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NotFound("alert", id)
	}
	return nil
}

// CountUnreadAlerts returns the number of unread, undismissed alerts.
func (q *queries) CountUnreadAlerts(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE is_read = 0 AND is_dismissed = 0`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return count, nil
}

// AlertExists reports whether an alert matching the deduplication key
// exists at or after since. Empty batchID, itemID and severity match any
// value.
func (q *queries) AlertExists(ctx context.Context, alertType types.AlertType, batchID, itemID string, severity types.Severity, since time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE alert_type = ? AND created_at >= ?`
	args := []interface{}{string(alertType), since.UTC()}
	if batchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	if itemID != "" {
		query += ` AND item_id = ?`
		args = append(args, itemID)
	}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(severity))
	}

	var count int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check alert existence: %w", err)
	}
	return count > 0, nil
}

func scanAlert(s scanner) (*types.Alert, error) {
	var a types.Alert
	var batchID, itemID sql.NullString
	var read, dismissed int

	err := s.Scan(
		&a.ID, &a.Type, &a.Severity, &batchID, &itemID, &a.Title, &a.Message,
		&read, &dismissed, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.BatchID = strOrEmpty(batchID)
	a.ItemID = strOrEmpty(itemID)
	a.IsRead = read != 0
	a.IsDismissed = dismissed != 0
	return &a, nil
}

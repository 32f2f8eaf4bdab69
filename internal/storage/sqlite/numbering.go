package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkops/warelog/internal/types"
)

// numberColumn maps a document prefix to the table and column that holds
// numbers with that prefix. The UNIQUE constraint on the column (where one
// exists) is the ultimate guarantor against collisions.
func numberColumn(prefix string) (table, column string, err error) {
	switch prefix {
	case "GR":
		return "batches", "batch_number", nil
	case "GRN":
		return "batches", "grn_number", nil
	case "DSP":
		return "movements", "reference_number", nil
	case "DN":
		return "delivery_notes", "dn_number", nil
	default:
		return "", "", fmt.Errorf("unknown document prefix %q", prefix)
	}
}

// NextDocumentNumber computes the next {prefix}-YYMMDD-{counter} number
// for the given day. The counter continues from the lexicographic maximum
// of today's existing numbers; overflow past the width is an error, not a
// wraparound. Callers retry on uniqueness conflicts at insert.
func (q *queries) NextDocumentNumber(ctx context.Context, prefix string, width int, day types.Date) (string, error) {
	table, column, err := numberColumn(prefix)
	if err != nil {
		return "", err
	}

	datePart := day.Time().Format("060102")
	head := fmt.Sprintf("%s-%s-", prefix, datePart)

	// substr is 1-based: the counter starts right after "{prefix}-YYMMDD-".
	// #nosec G201 - table and column come from the fixed prefix map
	query := fmt.Sprintf(
		`SELECT MAX(CAST(substr(%s, %d) AS INTEGER)) FROM %s WHERE %s LIKE ?`,
		column, len(head)+1, table, column,
	)

	var maxCounter sql.NullInt64
	if err := q.db.QueryRowContext(ctx, query, head+"%").Scan(&maxCounter); err != nil {
		return "", fmt.Errorf("failed to scan document numbers: %w", err)
	}

	next := int64(1)
	if maxCounter.Valid {
		next = maxCounter.Int64 + 1
	}

	limit := int64(1)
	for i := 0; i < width; i++ {
		limit *= 10
	}
	if next >= limit {
		return "", types.Validation(types.CodeCounterOverflow,
			"daily counter for %s exhausted (max %d)", head, limit-1)
	}

	return fmt.Sprintf("%s%0*d", head, width, next), nil
}

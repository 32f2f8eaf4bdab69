package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// nullStr maps "" to NULL for optional TEXT columns.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func strOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Quantities and money are stored as TEXT to preserve fixed-point scale;
// conversion happens only at this boundary.

func decToText(d decimal.Decimal) string {
	return d.String()
}

func decFromText(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q in database: %w", s, err)
	}
	return d, nil
}

// nullDec maps a nil decimal to NULL.
func nullDec(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func decFromNull(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decFromText(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

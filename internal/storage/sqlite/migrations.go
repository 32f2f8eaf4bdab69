// Package sqlite - database migrations
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Migration represents a single database migration. All migrations are
// idempotent: they check before they alter.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is the ordered list of all migrations, run during
// database initialization after the base schema.
var migrationsList = []Migration{
	{"customers_vmi_column", migrateCustomersVMIColumn},
	{"movements_reference_index", migrateMovementsReferenceIndex},
	{"alerts_severity_index", migrateAlertsSeverityIndex},
	{"alerts_title_column", migrateAlertsTitleColumn},
}

// MigrationInfo contains metadata about a migration for inspection.
type MigrationInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListMigrations returns all registered migrations with descriptions.
// Note: this returns ALL registered migrations, not just pending ones
// (all are idempotent).
func ListMigrations() []MigrationInfo {
	descriptions := map[string]string{
		"customers_vmi_column":      "Adds is_vmi_customer column to customers created before consignment support",
		"movements_reference_index": "Adds index on movements.reference_number for document numbering scans",
		"alerts_severity_index":     "Adds composite index on alerts(batch_id, severity, created_at) for dedupe lookups",
		"alerts_title_column":       "Adds title column to alerts created before alert titles",
	}

	result := make([]MigrationInfo, len(migrationsList))
	for i, m := range migrationsList {
		desc, ok := descriptions[m.Name]
		if !ok {
			desc = "Unknown migration"
		}
		result[i] = MigrationInfo{Name: m.Name, Description: desc}
	}
	return result
}

// RunMigrations executes all registered migrations in order.
// Uses an EXCLUSIVE transaction to prevent races when multiple processes
// open the database simultaneously.
func RunMigrations(db *sql.DB) error {
	// PRAGMA foreign_keys must be toggled outside a transaction (SQLite
	// limitation); table-rebuilding migrations need it off.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock for migrations: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, migration := range migrationsList {
		if err := migration.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	if _, err := db.Exec(
		"INSERT INTO metadata (key, value) VALUES ('schema_version', ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		strconv.Itoa(len(migrationsList)),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	committed = true

	return nil
}

// columnExists checks whether a table already has a column.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func migrateCustomersVMIColumn(db *sql.DB) error {
	exists, err := columnExists(db, "customers", "is_vmi_customer")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.Exec("ALTER TABLE customers ADD COLUMN is_vmi_customer INTEGER NOT NULL DEFAULT 0")
	return err
}

func migrateMovementsReferenceIndex(db *sql.DB) error {
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_movements_reference ON movements(reference_number)")
	return err
}

func migrateAlertsSeverityIndex(db *sql.DB) error {
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_batch_severity_created ON alerts(batch_id, severity, created_at)")
	return err
}

func migrateAlertsTitleColumn(db *sql.DB) error {
	exists, err := columnExists(db, "alerts", "title")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.Exec("ALTER TABLE alerts ADD COLUMN title TEXT NOT NULL DEFAULT ''")
	return err
}

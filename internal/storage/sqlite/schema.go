package sqlite

const schema = `
-- Items table (ink catalog)
CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    sku TEXT NOT NULL UNIQUE CHECK(length(sku) <= 50),
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    unit TEXT NOT NULL DEFAULT 'kg',
    cost_per_unit TEXT NOT NULL DEFAULT '0',
    currency TEXT NOT NULL DEFAULT 'ILS' CHECK(length(currency) = 3),
    reorder_point TEXT,
    min_stock TEXT,
    max_stock TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_sku ON items(sku);
CREATE INDEX IF NOT EXISTS idx_items_active ON items(is_active);

-- Locations table
CREATE TABLE IF NOT EXISTS locations (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    zone TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Batches table. quantity_available is only written through the movement
-- ledger; the CHECK constraints are the last line of defense.
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    location_id TEXT,
    batch_number TEXT NOT NULL UNIQUE,
    quantity_received TEXT NOT NULL,
    quantity_available TEXT NOT NULL,
    expiration_date DATE NOT NULL,
    receipt_date DATE NOT NULL,
    status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK(status IN ('ACTIVE', 'DEPLETED', 'SCRAP')),
    grn_number TEXT,
    notes TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (expiration_date >= receipt_date),
    CHECK (CAST(quantity_available AS REAL) >= 0),
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE RESTRICT,
    FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_expiration_status ON batches(expiration_date, status);
CREATE INDEX IF NOT EXISTS idx_batches_item_status ON batches(item_id, status);
CREATE INDEX IF NOT EXISTS idx_batches_grn ON batches(grn_number);

-- Movements table (append-only ledger; no UPDATE or DELETE path exists in
-- the storage layer)
CREATE TABLE IF NOT EXISTS movements (
    id TEXT PRIMARY KEY,
    batch_id TEXT NOT NULL,
    movement_type TEXT NOT NULL CHECK(movement_type IN ('RECEIPT', 'DISPATCH', 'ADJUSTMENT', 'SCRAP', 'TRANSFER')),
    quantity TEXT NOT NULL,
    quantity_before TEXT NOT NULL,
    quantity_after TEXT NOT NULL,
    reference_number TEXT,
    notes TEXT NOT NULL DEFAULT '',
    performed_by TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE,
    FOREIGN KEY (performed_by) REFERENCES users(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_movements_batch ON movements(batch_id);
CREATE INDEX IF NOT EXISTS idx_movements_created_at ON movements(created_at);
CREATE INDEX IF NOT EXISTS idx_movements_type ON movements(movement_type);

-- Customers table
CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    contact_person TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    is_vmi_customer INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Delivery notes table
CREATE TABLE IF NOT EXISTS delivery_notes (
    id TEXT PRIMARY KEY,
    dn_number TEXT NOT NULL UNIQUE,
    customer_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'DRAFT' CHECK(status IN ('DRAFT', 'ISSUED', 'DELIVERED', 'INVOICED', 'CANCELLED')),
    issue_date DATE,
    delivery_date DATE,
    is_consignment INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT,
    FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_delivery_notes_status ON delivery_notes(status);
CREATE INDEX IF NOT EXISTS idx_delivery_notes_customer ON delivery_notes(customer_id);
CREATE INDEX IF NOT EXISTS idx_delivery_notes_created_at ON delivery_notes(created_at);

-- Delivery note line items
CREATE TABLE IF NOT EXISTS delivery_note_items (
    id TEXT PRIMARY KEY,
    delivery_note_id TEXT NOT NULL,
    batch_id TEXT NOT NULL,
    quantity TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (delivery_note_id) REFERENCES delivery_notes(id) ON DELETE CASCADE,
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_dn_items_note ON delivery_note_items(delivery_note_id);
CREATE INDEX IF NOT EXISTS idx_dn_items_batch ON delivery_note_items(batch_id);

-- Alerts table
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    alert_type TEXT NOT NULL,
    severity TEXT NOT NULL CHECK(severity IN ('INFO', 'WARNING', 'CRITICAL')),
    batch_id TEXT,
    item_id TEXT,
    title TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL,
    is_read INTEGER NOT NULL DEFAULT 0,
    is_dismissed INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE,
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_alerts_type_created ON alerts(alert_type, created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_unread ON alerts(is_read, is_dismissed);
CREATE INDEX IF NOT EXISTS idx_alerts_batch ON alerts(batch_id);
CREATE INDEX IF NOT EXISTS idx_alerts_item ON alerts(item_id);

-- Users table
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'viewer' CHECK(role IN ('admin', 'manager', 'warehouse_worker', 'viewer')),
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Metadata table (internal state: schema version)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Config table (tunable settings readable without the config file)
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

INSERT OR IGNORE INTO config (key, value) VALUES
    ('alert_bands', '120,90,60,30'),
    ('dead_stock_days', '180'),
    ('default_currency', 'ILS');

-- Stock by item view: total available over ACTIVE batches, used by the
-- low-stock scan and the stock summary.
CREATE VIEW IF NOT EXISTS v_stock_by_item AS
SELECT
    i.id AS item_id,
    COALESCE(SUM(CASE WHEN b.status = 'ACTIVE' THEN CAST(b.quantity_available AS REAL) ELSE 0 END), 0) AS total_available,
    COUNT(CASE WHEN b.status = 'ACTIVE' THEN 1 END) AS active_batches
FROM items i
LEFT JOIN batches b ON b.item_id = i.id
GROUP BY i.id;
`

// ABOUTME: SQLite database schema for persona storage
// ABOUTME: Ledger, snapshot, and session insight tables with append-only triggers
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Append-only ledger of field deltas. seq breaks created_at ties in insertion order.
CREATE TABLE IF NOT EXISTS field_deltas (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    client_id TEXT NOT NULL,
    field TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT NOT NULL,
    confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
    source_session_id TEXT,
    created_at INTEGER NOT NULL
);

CREATE TRIGGER IF NOT EXISTS field_deltas_no_update
BEFORE UPDATE ON field_deltas
BEGIN
    SELECT RAISE(ABORT, 'field_deltas is append-only');
END;

CREATE TRIGGER IF NOT EXISTS field_deltas_no_delete
BEFORE DELETE ON field_deltas
BEGIN
    SELECT RAISE(ABORT, 'field_deltas is append-only');
END;

-- Materialised snapshot, one row per populated client field
CREATE TABLE IF NOT EXISTS persona_fields (
    client_id TEXT NOT NULL,
    field TEXT NOT NULL,
    value TEXT NOT NULL,
    confidence REAL NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (client_id, field)
);

-- One synthesized record per completed session
CREATE TABLE IF NOT EXISTS session_insights (
    session_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    record TEXT NOT NULL,
    raw_synthesis TEXT,
    synthesis_parsed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deltas_client_order ON field_deltas(client_id, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_deltas_session ON field_deltas(source_session_id);
CREATE INDEX IF NOT EXISTS idx_insights_client ON session_insights(client_id, created_at);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1

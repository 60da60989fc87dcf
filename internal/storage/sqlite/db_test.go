// ABOUTME: Tests for SQLite database connection and schema initialization
// ABOUTME: Verifies database creation, schema, and append-only triggers
package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	if db.Conn() == nil {
		t.Error("Conn() should not be nil")
	}

	if db.Path() != ":memory:" {
		t.Errorf("Path() = %v, want :memory:", db.Path())
	}
}

func TestSchemaInitialization(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	tables := []string{"field_deltas", "persona_fields", "session_insights"}
	for _, table := range tables {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}

	triggers := []string{"field_deltas_no_update", "field_deltas_no_delete"}
	for _, trigger := range triggers {
		var name string
		err := db.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='trigger' AND name=?", trigger).Scan(&name)
		if err != nil {
			t.Errorf("Trigger %s does not exist: %v", trigger, err)
		}
	}
}

func TestLedgerIsAppendOnly(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = db.Conn().Exec(`
		INSERT INTO field_deltas (id, client_id, field, new_value, confidence, created_at)
		VALUES ('delta_1', 'c1', 'demographics.occupation', '"nurse"', 0.9, 1)
	`)
	if err != nil {
		t.Fatalf("insert error = %v", err)
	}

	if _, err := db.Conn().Exec(`UPDATE field_deltas SET confidence = 0.1 WHERE id = 'delta_1'`); err == nil {
		t.Error("UPDATE on field_deltas should fail")
	} else if !strings.Contains(err.Error(), "append-only") {
		t.Errorf("UPDATE error = %v, want append-only violation", err)
	}

	if _, err := db.Conn().Exec(`DELETE FROM field_deltas WHERE id = 'delta_1'`); err == nil {
		t.Error("DELETE on field_deltas should fail")
	}

	var n int
	if err := db.Conn().QueryRow(`SELECT COUNT(*) FROM field_deltas`).Scan(&n); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
}

func TestConfidenceCheckConstraint(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	_, err = db.Conn().Exec(`
		INSERT INTO field_deltas (id, client_id, field, new_value, confidence, created_at)
		VALUES ('delta_bad', 'c1', 'demographics.occupation', '"nurse"', 1.5, 1)
	`)
	if err == nil {
		t.Error("confidence above 1 should violate the CHECK constraint")
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "subdir", "nested", "persona.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persona.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = db.Close()

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	_ = db.Close()
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	if got := DefaultDataDir(); got != "/tmp/xdg-data/persona" {
		t.Errorf("DefaultDataDir() = %v, want /tmp/xdg-data/persona", got)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path := DefaultDBPath()
	if path == "" {
		t.Error("DefaultDBPath() returned empty string")
	}
	if filepath.Base(path) != "persona.db" {
		t.Errorf("DefaultDBPath() = %v, should end with persona.db", path)
	}
}

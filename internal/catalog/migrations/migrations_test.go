package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"resources", "upload_records", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	db := openTestDB(t)

	err := CheckStatus(db)
	if err == nil || err.Error() != "catalog has no schema version (needs migration)" {
		t.Errorf("CheckStatus() before migration = %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
}

func TestSchema_Constraints(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO upload_records (resource_id, transaction_id, uploaded_at) VALUES ('nope', 'tx', 0)`)
	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}

	if _, err := db.Exec(`INSERT INTO resources (id, path, created_at, updated_at) VALUES ('r1', '/a', 0, 0)`); err != nil {
		t.Fatalf("insert r1: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO resources (id, path, created_at, updated_at) VALUES ('r2', '/a', 0, 0)`); err == nil {
		t.Error("Expected unique constraint violation for duplicate path, but insert succeeded")
	}
	if _, err := db.Exec(`INSERT INTO resources (id, path, created_at, updated_at) VALUES ('r3', NULL, 0, 0), ('r4', NULL, 0, 0)`); err != nil {
		t.Errorf("detached resources should share a NULL path: %v", err)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	return db
}

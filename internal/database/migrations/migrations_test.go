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

	tables := []string{"snapshots", "cycles", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}

	indexes := []string{"idx_snapshots_status", "idx_snapshots_chain"}
	for _, index := range indexes {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s was not created: %v", index, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}

	current, latest, err := Versions(db)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if current != latest || latest != 2 {
		t.Errorf("Versions() = (%d, %d), want (2, 2)", current, latest)
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
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_OriginConstraint(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO snapshots (id, volume_id, tier_name, status, origin, created_at, updated_at)
		VALUES ('snap-1', 'vol-1', 'sc-1', 'deleting', 'elsewhere', datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Error("Expected check constraint violation for unknown origin, but insert succeeded")
	}
}

func TestSchema_OriginDefaultsToUnknown(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO snapshots (id, volume_id, tier_name, status, created_at, updated_at)
		VALUES ('snap-1', 'vol-1', 'sc-1', 'deleting', datetime('now'), datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert snapshot: %v", err)
	}

	var origin string
	if err := db.QueryRow("SELECT origin FROM snapshots WHERE id = 'snap-1'").Scan(&origin); err != nil {
		t.Fatalf("Failed to read origin: %v", err)
	}
	if origin != "unknown" {
		t.Errorf("origin = %q, want %q", origin, "unknown")
	}
}

// openTestDB opens a single-connection in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { db.Close() })
	return db
}

package migrations

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_freshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	err := Up(db)
	if err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"archives", "assets", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheck_freshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Check(db); !errors.Is(err, ErrUnversioned) {
		t.Errorf("Check() error = %v, want ErrUnversioned", err)
	}

	status, err := ReadStatus(db)
	if !errors.Is(err, ErrUnversioned) {
		t.Fatalf("ReadStatus() error = %v, want ErrUnversioned", err)
	}
	if status.Latest != 2 {
		t.Errorf("Latest = %d, want 2", status.Latest)
	}
}

func TestCheck_afterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Status should be OK now
	err := Check(db)
	if err != nil {
		t.Errorf("Check() after migration returned error: %v", err)
	}
}

func TestLatest(t *testing.T) {
	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest != 2 {
		t.Errorf("Latest() = %d, want 2", latest)
	}
}

func TestStatus_Err(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   string
	}{
		{name: "current", status: Status{Current: 2, Latest: 2}},
		{name: "behind", status: Status{Current: 1, Latest: 2}, want: "1 migrations behind"},
		{name: "ahead", status: Status{Current: 3, Latest: 2}, want: "binary needs update"},
		{name: "dirty", status: Status{Current: 2, Latest: 2, Dirty: true}, want: "dirty state at version 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.status.Err()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Err() = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestUp_idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Run migration twice
	if err := Up(db); err != nil {
		t.Fatalf("First Up() failed: %v", err)
	}

	if err := Up(db); err != nil {
		t.Errorf("Second Up() failed: %v (should be idempotent)", err)
	}

	// Status should still be OK
	if err := Check(db); err != nil {
		t.Errorf("Check() after double migration returned error: %v", err)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	// Migrate
	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Try to insert an asset with non-existent archive (should fail due to FK constraint)
	_, err := db.Exec(`
		INSERT INTO assets (id, archive_id, source, filemime, filesize, created_at, updated_at)
		VALUES ('asset-1', 'non-existent-archive', 'public://a.html', 'text/html', 1, datetime('now'), datetime('now'))
	`)

	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_DeleteArchiveCascades(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO archives (id, filename, format, size, checksum, created_at)
		VALUES ('arc-1', 'site.zip', 'zip', 10, 'abc', datetime('now'))`)
	if err != nil {
		t.Fatalf("Failed to insert archive: %v", err)
	}
	_, err = db.Exec(`INSERT INTO assets (id, archive_id, source, filemime, filesize, created_at, updated_at)
		VALUES ('asset-1', 'arc-1', 'public://a.html', 'text/html', 1, datetime('now'), datetime('now'))`)
	if err != nil {
		t.Fatalf("Failed to insert asset: %v", err)
	}

	if _, err := db.Exec("DELETE FROM archives WHERE id = 'arc-1'"); err != nil {
		t.Fatalf("Failed to delete archive: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM assets").Scan(&count); err != nil {
		t.Fatalf("Failed to count assets: %v", err)
	}
	if count != 0 {
		t.Errorf("asset count after archive delete = %d, want 0", count)
	}
}

func TestSchema_AssetSourceAndAliasUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO archives (id, filename, format, size, checksum, created_at)
		VALUES ('arc-1', 'site.zip', 'zip', 10, 'abc', datetime('now'))`)
	if err != nil {
		t.Fatalf("Failed to insert archive: %v", err)
	}

	insert := `INSERT INTO assets (id, archive_id, source, alias, filemime, filesize, created_at, updated_at)
		VALUES (?, 'arc-1', ?, ?, 'text/html', 1, datetime('now'), datetime('now'))`

	if _, err := db.Exec(insert, "asset-1", "public://a.html", "/p/site/a.html"); err != nil {
		t.Fatalf("Failed to insert first asset: %v", err)
	}
	if _, err := db.Exec(insert, "asset-2", "public://a.html", nil); err == nil {
		t.Error("Expected unique constraint violation for duplicate source, but insert succeeded")
	}
	if _, err := db.Exec(insert, "asset-3", "public://b.html", "/p/site/a.html"); err == nil {
		t.Error("Expected unique constraint violation for duplicate alias, but insert succeeded")
	}

	// Any number of assets may be without an alias.
	if _, err := db.Exec(insert, "asset-4", "public://c.html", nil); err != nil {
		t.Errorf("Failed to insert asset without alias: %v", err)
	}
	if _, err := db.Exec(insert, "asset-5", "public://d.html", nil); err != nil {
		t.Errorf("Failed to insert second asset without alias: %v", err)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}

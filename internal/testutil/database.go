package testutil

import (
	"testing"

	"minisite-go/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// Archive IDs come from a StubIDGenerator and timestamps from FixedClock.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, FixedClock(), NewStubIDGenerator())

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

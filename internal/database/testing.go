package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDSNEnv names the environment variable holding the integration test database DSN
const TestDSNEnv = "HOOP_SIGNALS_TEST_DSN"

// SetupTestDB connects to the integration database, applies the schema and truncates engine tables.
// The test is skipped when no DSN is configured.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDSNEnv)
	if dsn == "" {
		t.Skipf("Integration test - set %s to run", TestDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE signals, strategy_triggers, strategies, player_stats, games"); err != nil {
		db.Close()
		t.Fatalf("failed to truncate test tables: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

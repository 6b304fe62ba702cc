package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/space-reservations/internal/persistence/sqlite/migration"
	"github.com/example/space-reservations/internal/testfixtures"
)

func TestMigrationManager_Idempotent(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	// The harness already migrated the database once; a second run must be a
	// no-op rather than a failure on existing tables or version rows.
	manager := migration.NewManager(harness.Pool.DB(), nil)
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}

	versions, err := manager.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions returned error: %v", err)
	}
	if len(versions) == 0 || versions[0] != "0001" {
		t.Fatalf("unexpected applied versions %v", versions)
	}
}

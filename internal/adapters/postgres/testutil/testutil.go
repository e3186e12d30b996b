// Package testutil provides helpers for Postgres adapter tests. Tests skip
// unless TEST_DATABASE_URL points at a disposable database.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/ecocommute/carpool-api/internal/adapters/postgres"
)

const migrationsDir = "../../../../migrations"

// OpenMigratedPool connects to TEST_DATABASE_URL, applies migrations and
// truncates every table so each test starts clean.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres adapter tests")
	}

	if err := postgres.RunMigrations(dsn, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE trips, trip_members, positions, profiles, idempotency_records`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

package idempotency

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	"github.com/ecocommute/carpool-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/ecocommute/carpool-api/internal/ports/out/idempotency"
)

func TestContract_PostgresIdempotencyStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}

package positionstore

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	"github.com/ecocommute/carpool-api/internal/adapters/postgres/testutil"
	positionport "github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
)

func TestContract_PostgresPositionStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunPositionStore(t, func(t *testing.T) (positionport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}

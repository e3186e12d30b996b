package profilerepo

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	"github.com/ecocommute/carpool-api/internal/adapters/postgres/testutil"
	profileport "github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
)

func TestContract_PostgresProfileRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunProfileRepo(t, func(t *testing.T) (profileport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

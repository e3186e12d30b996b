package membershiprepo

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	"github.com/ecocommute/carpool-api/internal/adapters/postgres/testutil"
	membershipport "github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
)

func TestContract_PostgresMembershipRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunMembershipRepo(t, func(t *testing.T) (membershipport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

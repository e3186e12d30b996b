package positionstore

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	positionport "github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
)

func TestContract_PositionStore(t *testing.T) {
	contracttest.RunPositionStore(t, func(t *testing.T) (positionport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}

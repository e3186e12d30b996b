package profilerepo

import (
	"testing"

	"github.com/ecocommute/carpool-api/internal/adapters/contracttest"
	profileport "github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
)

func TestContract_ProfileRepo(t *testing.T) {
	contracttest.RunProfileRepo(t, func(t *testing.T) (profileport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}

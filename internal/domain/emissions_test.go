package domain_test

import (
	"math"
	"testing"

	"github.com/ecocommute/carpool-api/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEmissionSavings_PetrolCarShared(t *testing.T) {
	t.Parallel()

	// 10 km at 120 g/km = 1.2 kg solo; 3 occupants share 0.4 kg each.
	got := domain.EmissionSavings(10, domain.VehicleTypePetrolCar, 3)
	if !almostEqual(got.SoloKg, 1.2) {
		t.Fatalf("solo=%v", got.SoloKg)
	}
	if !almostEqual(got.SharedKg, 0.4) {
		t.Fatalf("shared=%v", got.SharedKg)
	}
	if !almostEqual(got.SavedPerPersonKg, 0.8) {
		t.Fatalf("saved=%v", got.SavedPerPersonKg)
	}
}

func TestEmissionSavings_BikeEmitsNothing(t *testing.T) {
	t.Parallel()

	got := domain.EmissionSavings(25, domain.VehicleTypeBike, 2)
	if got.SoloKg != 0 || got.SharedKg != 0 || got.SavedPerPersonKg != 0 {
		t.Fatalf("got=%+v", got)
	}
}

func TestEmissionSavings_ClampsOccupantsToOne(t *testing.T) {
	t.Parallel()

	got := domain.EmissionSavings(10, domain.VehicleTypePetrolCar, 0)
	if !almostEqual(got.SharedKg, got.SoloKg) || !almostEqual(got.SavedPerPersonKg, 0) {
		t.Fatalf("got=%+v", got)
	}
}

func TestEmissionSavings_UnknownVehicleFallsBackToPetrolCar(t *testing.T) {
	t.Parallel()

	got := domain.EmissionSavings(10, domain.VehicleType("HOVERCRAFT"), 1)
	if !almostEqual(got.SoloKg, 1.2) {
		t.Fatalf("solo=%v", got.SoloKg)
	}
}

func TestValidCoordinate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		lat, lon float64
		ok       bool
	}{
		{12.97, 77.59, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.0001, false},
		{-91, 200, false},
	}
	for _, c := range cases {
		if got := domain.ValidCoordinate(c.lat, c.lon); got != c.ok {
			t.Fatalf("ValidCoordinate(%v,%v)=%v want %v", c.lat, c.lon, got, c.ok)
		}
	}
}

func TestTripSummaryOccupants(t *testing.T) {
	t.Parallel()

	ts := domain.TripSummary{TotalSeats: 4, SeatsAvailable: 1}
	if got := ts.Occupants(); got != 3 {
		t.Fatalf("occupants=%d", got)
	}
	// A fresh trip with every rider seat open still carries the owner.
	ts = domain.TripSummary{TotalSeats: 4, SeatsAvailable: 4}
	if got := ts.Occupants(); got != 1 {
		t.Fatalf("occupants=%d", got)
	}
}

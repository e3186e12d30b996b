package domain

// emissionFactors is grams of CO2 per vehicle-kilometre.
var emissionFactors = map[VehicleType]float64{
	VehicleTypePetrolCar: 120,
	VehicleTypeBike:      0,
}

// EmissionSummary describes the CO2 cost of a trip in kilograms: what a
// solo drive would emit, the per-person share when pooled, and how much
// each occupant saves versus driving alone.
type EmissionSummary struct {
	SoloKg           float64
	SharedKg         float64
	SavedPerPersonKg float64
}

// EmissionSavings computes the summary for a trip of the given distance,
// vehicle type and occupant count. Unknown vehicle types fall back to the
// petrol-car factor; occupants are clamped to at least one.
func EmissionSavings(distanceKM float64, vt VehicleType, occupants int) EmissionSummary {
	factor, ok := emissionFactors[vt]
	if !ok {
		factor = emissionFactors[VehicleTypePetrolCar]
	}
	if occupants < 1 {
		occupants = 1
	}
	solo := distanceKM * factor / 1000
	shared := solo / float64(occupants)
	return EmissionSummary{
		SoloKg:           solo,
		SharedKg:         shared,
		SavedPerPersonKg: solo - shared,
	}
}

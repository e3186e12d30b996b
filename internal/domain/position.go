package domain

import "time"

// Position is the read model handed to an authorized viewer. It carries no
// sharing flag: a record that is not shared is indistinguishable from one
// that does not exist.
type Position struct {
	Subject   SubjectID
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}

// ValidCoordinate reports whether a latitude/longitude pair is on the globe.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

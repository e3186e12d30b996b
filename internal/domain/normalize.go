package domain

import "strings"

// NormalizeLabel trims leading/trailing whitespace and collapses internal
// whitespace runs. It is used for origin/destination and pickup labels.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeVehicleNumber uppercases a vehicle registration number after
// stripping surrounding whitespace.
func NormalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

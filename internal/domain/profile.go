package domain

import "time"

// Profile is the domain representation of a rider/owner profile.
// Verified is the "may transact" capability: identity verification itself
// (OTP etc.) happens in an external collaborator which flips this flag.
type Profile struct {
	Subject SubjectID

	DisplayName string
	PhoneNumber string

	Verified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

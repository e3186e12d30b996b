package domain

import "time"

type TripStatus string

const (
	TripStatusCreated   TripStatus = "CREATED"
	TripStatusStarted   TripStatus = "STARTED"
	TripStatusCompleted TripStatus = "COMPLETED"
)

type VehicleType string

const (
	VehicleTypePetrolCar VehicleType = "CAR_PETROL"
	VehicleTypeBike      VehicleType = "BIKE"
)

// ConfirmRole identifies which side of a trip is acknowledging a phase.
type ConfirmRole string

const (
	RoleOwner ConfirmRole = "OWNER"
	RoleRider ConfirmRole = "RIDER"
)

// ConfirmPhase identifies which lifecycle boundary is being acknowledged.
type ConfirmPhase string

const (
	PhaseStart ConfirmPhase = "START"
	PhaseEnd   ConfirmPhase = "END"
)

// Confirmations holds the four independent acknowledgement flags.
// A status transition requires the conjunction of both flags for a phase.
type Confirmations struct {
	OwnerStart bool
	RiderStart bool
	OwnerEnd   bool
	RiderEnd   bool
}

type TripSummary struct {
	ID            TripID
	Origin        string
	Destination   string
	ScheduledAt   time.Time
	VehicleType   VehicleType
	VehicleNumber string
	DistanceKM    float64

	TotalSeats     int
	SeatsAvailable int

	Owner  SubjectID
	Status TripStatus
}

// Occupants is the number of people in the vehicle: the owner's implicit
// seat plus every filled rider seat. Never less than one.
func (t TripSummary) Occupants() int {
	used := t.TotalSeats - t.SeatsAvailable
	if used < 1 {
		return 1
	}
	return used
}

// TripDetails is the read model for a single trip, including membership
// records and the derived per-occupant emission savings.
type TripDetails struct {
	TripSummary

	Confirmations Confirmations
	Members       []MembershipSummary
	Emissions     EmissionSummary

	CreatedAt time.Time
}

type MembershipSummary struct {
	Subject     SubjectID
	PickupPoint string
	PickupNotes string
	JoinedAt    time.Time
}

package rides

import (
	"time"

	"github.com/ecocommute/carpool-api/internal/domain"
)

type CreateTripInput struct {
	Origin        string
	Destination   string
	ScheduledAt   time.Time
	VehicleType   domain.VehicleType
	VehicleNumber string
	DistanceKM    float64
	TotalSeats    int
}

type JoinInput struct {
	PickupPoint string
	PickupNotes string
}

// ConfirmResult tells the caller where the two-party protocol stands after
// a successful confirmation. When the phase's conjunction is not yet
// complete, PendingRole names the side whose acknowledgement is still
// missing.
type ConfirmResult struct {
	Status        domain.TripStatus
	PhaseComplete bool
	PendingRole   *domain.ConfirmRole
}

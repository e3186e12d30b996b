package triprepo

import (
	"context"
	"time"

	"github.com/ecocommute/carpool-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
//
// The combined (Status, four confirmation flags, SeatsAvailable) state is
// mutated only inside the per-trip critical section held by the rides
// service; the repository itself does not serialize writers.
type Trip struct {
	ID domain.TripID

	Origin        string
	Destination   string
	ScheduledAt   time.Time
	VehicleType   domain.VehicleType
	VehicleNumber string
	DistanceKM    float64

	TotalSeats     int
	SeatsAvailable int

	Owner  domain.SubjectID
	Status domain.TripStatus

	OwnerConfirmedStart bool
	RiderConfirmedStart bool
	OwnerConfirmedEnd   bool
	RiderConfirmedEnd   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
//
// List results are ordered by ScheduledAt ascending with ID as tie-breaker.
type Repository interface {
	Create(ctx context.Context, t Trip) error
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)
	Delete(ctx context.Context, id domain.TripID) error

	List(ctx context.Context) ([]Trip, error)
}

package membershiprepo

import (
	"context"
	"time"

	"github.com/ecocommute/carpool-api/internal/domain"
)

// Membership is a rider's join record on a trip, unique per (Trip, Subject).
// The trip owner never holds a membership: the owner occupies the implicit
// seat.
type Membership struct {
	Trip    domain.TripID
	Subject domain.SubjectID

	PickupPoint string
	PickupNotes string

	JoinedAt time.Time
}

// Repository provides access to persisted memberships.
//
// ListByTrip results are ordered by JoinedAt ascending with Subject as
// tie-breaker.
type Repository interface {
	Create(ctx context.Context, m Membership) error

	Get(ctx context.Context, trip domain.TripID, subject domain.SubjectID) (Membership, error)
	Delete(ctx context.Context, trip domain.TripID, subject domain.SubjectID) error

	ListByTrip(ctx context.Context, trip domain.TripID) ([]Membership, error)

	// DeleteByTrip removes every membership on a trip and returns how many
	// were removed. Used when a Created trip is deleted.
	DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error)
}

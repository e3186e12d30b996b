package positionstore

import (
	"context"
	"time"

	"github.com/ecocommute/carpool-api/internal/domain"
)

// Record is the single latest-known coordinate for one subject.
// At most one record exists per subject system-wide, regardless of trip:
// an upsert for a different trip silently re-targets the existing record.
type Record struct {
	Subject domain.SubjectID
	Trip    domain.TripID

	Latitude  float64
	Longitude float64

	UpdatedAt      time.Time
	SharingEnabled bool
}

// Store is the ephemeral position cache. Implementations must make
// Upsert/DeleteBySubject atomic per subject (last server-side arrival wins)
// and must never let a reader observe a half-written record. There is no
// TTL: records leave the store only through DeleteBySubject or DeleteByTrip.
type Store interface {
	Upsert(ctx context.Context, rec Record) error

	GetBySubject(ctx context.Context, subject domain.SubjectID) (Record, error)

	// DeleteBySubject removes the subject's record if present and reports
	// whether anything was deleted.
	DeleteBySubject(ctx context.Context, subject domain.SubjectID) (bool, error)

	// DeleteByTrip removes every record currently targeting the trip and
	// returns how many were removed.
	DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error)
}

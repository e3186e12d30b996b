package profilerepo

import (
	"context"
	"time"

	"github.com/ecocommute/carpool-api/internal/domain"
)

// Profile is the persistence shape for a rider/owner profile.
type Profile struct {
	Subject domain.SubjectID

	DisplayName string
	PhoneNumber string

	Verified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, p Profile) error
	Save(ctx context.Context, p Profile) error

	GetBySubject(ctx context.Context, subject domain.SubjectID) (Profile, error)
}

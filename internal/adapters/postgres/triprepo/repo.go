package triprepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/ecocommute/carpool-api/internal/adapters/postgres"
	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

const tripColumns = `
	id,
	origin,
	destination,
	scheduled_at,
	vehicle_type,
	vehicle_number,
	distance_km,
	total_seats,
	seats_available,
	owner_subject,
	status,
	owner_confirmed_start,
	rider_confirmed_start,
	owner_confirmed_end,
	rider_confirmed_end,
	created_at,
	updated_at
`

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	id, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrAlreadyExists
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		id,
		t.Origin,
		t.Destination,
		t.ScheduledAt.UTC(),
		string(t.VehicleType),
		t.VehicleNumber,
		t.DistanceKM,
		t.TotalSeats,
		t.SeatsAvailable,
		string(t.Owner),
		string(t.Status),
		t.OwnerConfirmedStart,
		t.RiderConfirmedStart,
		t.OwnerConfirmedEnd,
		t.RiderConfirmedEnd,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	id, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET origin = $2,
		    destination = $3,
		    scheduled_at = $4,
		    vehicle_type = $5,
		    vehicle_number = $6,
		    distance_km = $7,
		    total_seats = $8,
		    seats_available = $9,
		    status = $10,
		    owner_confirmed_start = $11,
		    rider_confirmed_start = $12,
		    owner_confirmed_end = $13,
		    rider_confirmed_end = $14,
		    updated_at = $15
		WHERE id = $1
	`,
		id,
		t.Origin,
		t.Destination,
		t.ScheduledAt.UTC(),
		string(t.VehicleType),
		t.VehicleNumber,
		t.DistanceKM,
		t.TotalSeats,
		t.SeatsAvailable,
		string(t.Status),
		t.OwnerConfirmedStart,
		t.RiderConfirmedStart,
		t.OwnerConfirmedEnd,
		t.RiderConfirmedEnd,
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, uid)
	return scanTrip(row)
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		ORDER BY scheduled_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTrip(row interface {
	Scan(dest ...any) error
}) (triprepo.Trip, error) {
	var (
		id            uuid.UUID
		vehicleType   string
		owner         string
		status        string
		scheduledAt   time.Time
		createdAt     time.Time
		updatedAt     time.Time
		t             triprepo.Trip
	)
	if err := row.Scan(
		&id,
		&t.Origin,
		&t.Destination,
		&scheduledAt,
		&vehicleType,
		&t.VehicleNumber,
		&t.DistanceKM,
		&t.TotalSeats,
		&t.SeatsAvailable,
		&owner,
		&status,
		&t.OwnerConfirmedStart,
		&t.RiderConfirmedStart,
		&t.OwnerConfirmedEnd,
		&t.RiderConfirmedEnd,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Trip{}, triprepo.ErrNotFound
		}
		return triprepo.Trip{}, err
	}
	t.ID = domain.TripID(id.String())
	t.VehicleType = domain.VehicleType(vehicleType)
	t.Owner = domain.SubjectID(owner)
	t.Status = domain.TripStatus(status)
	t.ScheduledAt = scheduledAt.UTC()
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}

package membershiprepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/ecocommute/carpool-api/internal/adapters/postgres"
	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
)

// Repo is a Postgres implementation of membershiprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, m membershiprepo.Membership) error {
	trip, err := uuid.Parse(string(m.Trip))
	if err != nil {
		return membershiprepo.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO trip_members (trip_id, subject, pickup_point, pickup_notes, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		trip,
		string(m.Subject),
		m.PickupPoint,
		m.PickupNotes,
		m.JoinedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return membershiprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, subject domain.SubjectID) (membershiprepo.Membership, error) {
	tid, err := uuid.Parse(string(trip))
	if err != nil {
		return membershiprepo.Membership{}, membershiprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT trip_id, subject, pickup_point, pickup_notes, joined_at
		FROM trip_members
		WHERE trip_id = $1 AND subject = $2
	`, tid, string(subject))
	return scanMembership(row)
}

func (r *Repo) Delete(ctx context.Context, trip domain.TripID, subject domain.SubjectID) error {
	tid, err := uuid.Parse(string(trip))
	if err != nil {
		return membershiprepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM trip_members WHERE trip_id = $1 AND subject = $2
	`, tid, string(subject))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return membershiprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]membershiprepo.Membership, error) {
	tid, err := uuid.Parse(string(trip))
	if err != nil {
		return []membershiprepo.Membership{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT trip_id, subject, pickup_point, pickup_notes, joined_at
		FROM trip_members
		WHERE trip_id = $1
		ORDER BY joined_at ASC, subject ASC
	`, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]membershiprepo.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error) {
	tid, err := uuid.Parse(string(trip))
	if err != nil {
		return 0, nil
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM trip_members WHERE trip_id = $1`, tid)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func scanMembership(row interface {
	Scan(dest ...any) error
}) (membershiprepo.Membership, error) {
	var (
		trip     uuid.UUID
		subject  string
		joinedAt time.Time
		m        membershiprepo.Membership
	)
	if err := row.Scan(&trip, &subject, &m.PickupPoint, &m.PickupNotes, &joinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return membershiprepo.Membership{}, membershiprepo.ErrNotFound
		}
		return membershiprepo.Membership{}, err
	}
	m.Trip = domain.TripID(trip.String())
	m.Subject = domain.SubjectID(subject)
	m.JoinedAt = joinedAt.UTC()
	return m, nil
}

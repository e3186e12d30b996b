package positionstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
)

// Store is a Postgres implementation of positionstore.Store. The subject
// primary key plus INSERT .. ON CONFLICT keeps the one-record-per-subject
// invariant and makes re-targeting a single atomic statement.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Upsert(ctx context.Context, rec positionstore.Record) error {
	trip, err := uuid.Parse(string(rec.Trip))
	if err != nil {
		return errors.New("invalid trip id")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO positions (subject, trip_id, latitude, longitude, sharing_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject) DO UPDATE SET
			trip_id = EXCLUDED.trip_id,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			sharing_enabled = EXCLUDED.sharing_enabled,
			updated_at = EXCLUDED.updated_at
	`,
		string(rec.Subject),
		trip,
		rec.Latitude,
		rec.Longitude,
		rec.SharingEnabled,
		rec.UpdatedAt.UTC(),
	)
	return err
}

func (s *Store) GetBySubject(ctx context.Context, subject domain.SubjectID) (positionstore.Record, error) {
	var (
		sub       string
		trip      uuid.UUID
		updatedAt time.Time
		rec       positionstore.Record
	)
	err := s.pool.QueryRow(ctx, `
		SELECT subject, trip_id, latitude, longitude, sharing_enabled, updated_at
		FROM positions
		WHERE subject = $1
	`, string(subject)).Scan(&sub, &trip, &rec.Latitude, &rec.Longitude, &rec.SharingEnabled, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return positionstore.Record{}, positionstore.ErrNotFound
		}
		return positionstore.Record{}, err
	}
	rec.Subject = domain.SubjectID(sub)
	rec.Trip = domain.TripID(trip.String())
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}

func (s *Store) DeleteBySubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE subject = $1`, string(subject))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error) {
	tid, err := uuid.Parse(string(trip))
	if err != nil {
		return 0, nil
	}
	ct, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE trip_id = $1`, tid)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

package profilerepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/ecocommute/carpool-api/internal/adapters/postgres"
	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (subject, display_name, phone_number, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		string(p.Subject),
		p.DisplayName,
		p.PhoneNumber,
		p.Verified,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return profilerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, p profilerepo.Profile) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET display_name = $2,
		    phone_number = $3,
		    verified = $4,
		    updated_at = $5
		WHERE subject = $1
	`,
		string(p.Subject),
		p.DisplayName,
		p.PhoneNumber,
		p.Verified,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return profilerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	var (
		sub       string
		createdAt time.Time
		updatedAt time.Time
		p         profilerepo.Profile
	)
	err := r.pool.QueryRow(ctx, `
		SELECT subject, display_name, phone_number, verified, created_at, updated_at
		FROM profiles
		WHERE subject = $1
	`, string(subject)).Scan(&sub, &p.DisplayName, &p.PhoneNumber, &p.Verified, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, err
	}
	p.Subject = domain.SubjectID(sub)
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	return p, nil
}

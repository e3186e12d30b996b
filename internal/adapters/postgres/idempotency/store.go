package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecocommute/carpool-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	var (
		rec       idempotency.Record
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_records
		WHERE idem_key = $1 AND subject = $2 AND method = $3 AND route = $4 AND body_hash = $5
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
	).Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_records (
			idem_key, subject, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idem_key, subject, method, route, body_hash) DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		rec.Body,
		rec.CreatedAt.UTC(),
	)
	return err
}

// Package positionstore implements the position cache on Redis. Each subject
// owns one JSON value plus a per-trip set used as a reverse index for
// cascade deletes. Mutations run as Lua scripts so the record and the index
// never diverge.
package positionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
)

const (
	subjectKeyPrefix = "position:subject:"
	tripKeyPrefix    = "position:trip:"
)

const upsertScript = `
local old = redis.call('GET', KEYS[1])
if old then
  local rec = cjson.decode(old)
  if rec.trip ~= ARGV[2] then
    redis.call('SREM', ARGV[3] .. rec.trip, ARGV[4])
  end
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', ARGV[3] .. ARGV[2], ARGV[4])
return 1
`

const deleteBySubjectScript = `
local old = redis.call('GET', KEYS[1])
if not old then
  return 0
end
local rec = cjson.decode(old)
redis.call('SREM', ARGV[1] .. rec.trip, ARGV[2])
redis.call('DEL', KEYS[1])
return 1
`

const deleteByTripScript = `
local subjects = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, s in ipairs(subjects) do
  n = n + redis.call('DEL', ARGV[1] .. s)
end
redis.call('DEL', KEYS[1])
return n
`

type record struct {
	Subject   string    `json:"subject"`
	Trip      string    `json:"trip"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	UpdatedAt time.Time `json:"updatedAt"`
	Sharing   bool      `json:"sharing"`
}

// Store is a Redis implementation of positionstore.Store.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func subjectKey(subject domain.SubjectID) string {
	return subjectKeyPrefix + string(subject)
}

func tripKey(trip domain.TripID) string {
	return tripKeyPrefix + string(trip)
}

func (s *Store) Upsert(ctx context.Context, rec positionstore.Record) error {
	payload, err := json.Marshal(record{
		Subject:   string(rec.Subject),
		Trip:      string(rec.Trip),
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		UpdatedAt: rec.UpdatedAt.UTC(),
		Sharing:   rec.SharingEnabled,
	})
	if err != nil {
		return err
	}
	return s.client.Eval(ctx, upsertScript,
		[]string{subjectKey(rec.Subject)},
		string(payload), string(rec.Trip), tripKeyPrefix, string(rec.Subject),
	).Err()
}

func (s *Store) GetBySubject(ctx context.Context, subject domain.SubjectID) (positionstore.Record, error) {
	raw, err := s.client.Get(ctx, subjectKey(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return positionstore.Record{}, positionstore.ErrNotFound
		}
		return positionstore.Record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return positionstore.Record{}, err
	}
	return positionstore.Record{
		Subject:        domain.SubjectID(rec.Subject),
		Trip:           domain.TripID(rec.Trip),
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		UpdatedAt:      rec.UpdatedAt,
		SharingEnabled: rec.Sharing,
	}, nil
}

func (s *Store) DeleteBySubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	n, err := s.client.Eval(ctx, deleteBySubjectScript,
		[]string{subjectKey(subject)},
		tripKeyPrefix, string(subject),
	).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error) {
	n, err := s.client.Eval(ctx, deleteByTripScript,
		[]string{tripKey(trip)},
		subjectKeyPrefix,
	).Int64()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

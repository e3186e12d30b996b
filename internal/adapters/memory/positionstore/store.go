package positionstore

import (
	"context"
	"sync"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/positionstore"
)

// Store is an in-memory implementation of positionstore.Store.
//
// The single mutex makes every upsert/delete atomic per subject; readers
// take the read lock and receive a value copy, so they can never observe a
// half-written record.
type Store struct {
	mu        sync.RWMutex
	bySubject map[domain.SubjectID]positionstore.Record
}

func NewStore() *Store {
	return &Store{
		bySubject: make(map[domain.SubjectID]positionstore.Record),
	}
}

func (s *Store) Upsert(ctx context.Context, rec positionstore.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySubject[rec.Subject] = rec
	return nil
}

func (s *Store) GetBySubject(ctx context.Context, subject domain.SubjectID) (positionstore.Record, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySubject[subject]
	if !ok {
		return positionstore.Record{}, positionstore.ErrNotFound
	}
	return rec, nil
}

func (s *Store) DeleteBySubject(ctx context.Context, subject domain.SubjectID) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySubject[subject]; !ok {
		return false, nil
	}
	delete(s.bySubject, subject)
	return true, nil
}

func (s *Store) DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sub, rec := range s.bySubject {
		if rec.Trip == trip {
			delete(s.bySubject, sub)
			n++
		}
	}
	return n, nil
}

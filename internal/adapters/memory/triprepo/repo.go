package triprepo

import (
	"context"
	"sort"
	"sync"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return triprepo.ErrNotFound
	}
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return t, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return triprepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sortTrips(out)
	return out, nil
}

func sortTrips(ts []triprepo.Trip) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return string(a.ID) < string(b.ID)
	})
}

package membershiprepo

import (
	"context"
	"sort"
	"sync"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/membershiprepo"
)

type key struct {
	trip    domain.TripID
	subject domain.SubjectID
}

// Repo is an in-memory implementation of membershiprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	byPair map[key]membershiprepo.Membership
}

func NewRepo() *Repo {
	return &Repo{
		byPair: make(map[key]membershiprepo.Membership),
	}
}

func (r *Repo) Create(ctx context.Context, m membershiprepo.Membership) error {
	_ = ctx
	k := key{trip: m.Trip, subject: m.Subject}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[k]; ok {
		return membershiprepo.ErrAlreadyExists
	}
	r.byPair[k] = m
	return nil
}

func (r *Repo) Get(ctx context.Context, trip domain.TripID, subject domain.SubjectID) (membershiprepo.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byPair[key{trip: trip, subject: subject}]
	if !ok {
		return membershiprepo.Membership{}, membershiprepo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) Delete(ctx context.Context, trip domain.TripID, subject domain.SubjectID) error {
	_ = ctx
	k := key{trip: trip, subject: subject}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[k]; !ok {
		return membershiprepo.ErrNotFound
	}
	delete(r.byPair, k)
	return nil
}

func (r *Repo) ListByTrip(ctx context.Context, trip domain.TripID) ([]membershiprepo.Membership, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]membershiprepo.Membership, 0)
	for k, m := range r.byPair {
		if k.trip == trip {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.Subject < b.Subject
	})
	return out, nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, trip domain.TripID) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.byPair {
		if k.trip == trip {
			delete(r.byPair, k)
			n++
		}
	}
	return n, nil
}

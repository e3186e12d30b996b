package profilerepo

import (
	"context"
	"sync"

	"github.com/ecocommute/carpool-api/internal/domain"
	"github.com/ecocommute/carpool-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu        sync.RWMutex
	bySubject map[domain.SubjectID]profilerepo.Profile
}

func NewRepo() *Repo {
	return &Repo{
		bySubject: make(map[domain.SubjectID]profilerepo.Profile),
	}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySubject[p.Subject]; ok {
		return profilerepo.ErrAlreadyExists
	}
	r.bySubject[p.Subject] = p
	return nil
}

func (r *Repo) Save(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySubject[p.Subject]; !ok {
		return profilerepo.ErrNotFound
	}
	r.bySubject[p.Subject] = p
	return nil
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySubject[subject]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return p, nil
}

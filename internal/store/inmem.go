package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// InMemStore is an in-memory SessionStore used for paper runs and tests.
type InMemStore struct {
	mu       sync.RWMutex
	sessions map[string]*trade.Session
}

// NewInMemStore creates a new InMemStore.
func NewInMemStore() *InMemStore {
	return &InMemStore{sessions: make(map[string]*trade.Session)}
}

// Seed stores copies of the given sessions for test setup.
func (r *InMemStore) Seed(sessions ...*trade.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		r.sessions[s.ID] = s.Clone()
	}
}

// GetAllActive returns copies of every ACTIVE session, oldest first.
func (r *InMemStore) GetAllActive(ctx context.Context) ([]*trade.Session, error) {
	out, err := r.List(ctx, Filter{Status: trade.SessionActive})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.Before(out[j].CreatedTime) })
	return out, nil
}

// List returns copies of the sessions matching f, newest first.
func (r *InMemStore) List(ctx context.Context, f Filter) ([]*trade.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*trade.Session
	for _, s := range r.sessions {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if !f.Since.IsZero() && s.CreatedTime.Before(f.Since) {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.After(out[j].CreatedTime) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Get returns a copy of one session.
func (r *InMemStore) Get(ctx context.Context, id string) (*trade.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Save stores a copy of the session.
func (r *InMemStore) Save(ctx context.Context, s *trade.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.Clone()
	return nil
}

// Package monitor drives the decision engine over the set of monitored sessions.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// entry is the registry slot of one session. mu serializes ticks with TryLock; processing
// is set while an evaluation that may reach the exchange is running.
type entry struct {
	mu         sync.Mutex
	processing atomic.Bool
	session    atomic.Pointer[trade.Session]
}

// Registry is the concurrent set of sessions under monitoring.
type Registry struct {
	entries sync.Map // id -> *entry
	size    atomic.Int64

	hookMu   sync.RWMutex
	onRemove []func(id string)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add starts monitoring a copy of s, or replaces the monitored copy if the id is known.
// It reports whether the session was newly added.
func (r *Registry) Add(s *trade.Session) bool {
	c := s.Clone()
	e := &entry{}
	e.session.Store(c)
	actual, loaded := r.entries.LoadOrStore(c.ID, e)
	if loaded {
		actual.(*entry).session.Store(c)
		return false
	}
	r.size.Add(1)
	return true
}

// Remove stops monitoring a session and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.entries.LoadAndDelete(id); !ok {
		return false
	}
	r.size.Add(-1)

	r.hookMu.RLock()
	hooks := r.onRemove
	r.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(id)
	}
	return true
}

// OnRemove registers a callback run after a session leaves the registry.
func (r *Registry) OnRemove(fn func(id string)) {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.onRemove = append(r.onRemove, fn)
}

// Get returns a copy of a monitored session.
func (r *Registry) Get(id string) (*trade.Session, bool) {
	e, ok := r.load(id)
	if !ok {
		return nil, false
	}
	return e.session.Load().Clone(), true
}

// Processing reports whether an evaluation of the session is in flight.
func (r *Registry) Processing(id string) bool {
	e, ok := r.load(id)
	return ok && e.processing.Load()
}

// Len returns the number of monitored sessions.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// List returns copies of all monitored sessions ordered by id.
func (r *Registry) List() []*trade.Session {
	var out []*trade.Session
	r.entries.Range(func(_, v any) bool {
		out = append(out, v.(*entry).session.Load().Clone())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Seed adds every active session of the store.
func (r *Registry) Seed(ctx context.Context, st store.SessionStore) (int, error) {
	sessions, err := st.GetAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active sessions: %w", err)
	}
	for _, s := range sessions {
		s.Refresh()
		r.Add(s)
	}
	return len(sessions), nil
}

func (r *Registry) load(id string) (*entry, bool) {
	v, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (r *Registry) rangeEntries(fn func(id string, e *entry) bool) {
	r.entries.Range(func(k, v any) bool {
		return fn(k.(string), v.(*entry))
	})
}

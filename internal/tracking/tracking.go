// Package tracking keeps ephemeral per-session baselines. Nothing here is persisted.
package tracking

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Baseline is the reference a rule measures later ticks against.
type Baseline struct {
	PnL       decimal.Decimal `json:"pnl"`
	Start     time.Time       `json:"start"`
	Direction trade.Direction `json:"direction"`
}

// Store is a concurrent map of baselines keyed by session id.
type Store struct {
	mu    sync.Mutex
	items map[string]Baseline
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]Baseline)}
}

// Get returns the baseline of a session.
func (s *Store) Get(sessionID string) (Baseline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.items[sessionID]
	return b, ok
}

// Put replaces the baseline of a session.
func (s *Store) Put(sessionID string, b Baseline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = b
}

// PutIfAbsent stores b unless a baseline already exists, and reports whether it stored.
func (s *Store) PutIfAbsent(sessionID string, b Baseline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[sessionID]; ok {
		return false
	}
	s.items[sessionID] = b
	return true
}

// Update applies fn to the session's current baseline under the lock. fn returns the new
// baseline and whether to keep it; dropping deletes the entry.
func (s *Store) Update(sessionID string, fn func(b Baseline, ok bool) (Baseline, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[sessionID]
	next, keep := fn(cur, ok)
	if keep {
		s.items[sessionID] = next
	} else {
		delete(s.items, sessionID)
	}
}

// Delete removes the baseline of a session.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
}

// Sweep drops baselines older than maxAge and returns how many were removed.
func (s *Store) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, b := range s.items {
		if now.Sub(b.Start) > maxAge {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Snapshot copies the current baselines.
func (s *Store) Snapshot() map[string]Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Baseline, len(s.items))
	for id, b := range s.items {
		out[id] = b
	}
	return out
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

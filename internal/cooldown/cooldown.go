// Package cooldown prevents duplicate order submissions for a session leg.
package cooldown

import (
	"sync"
	"time"

	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Key identifies a leg: "sessionId|direction".
func Key(sessionID string, d trade.Direction) string {
	return sessionID + "|" + string(d)
}

// Guard enforces a minimum resubmission interval per leg plus an in-flight marker.
type Guard struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	inFlight map[string]struct{}
}

// NewGuard creates a Guard with the given cooldown interval.
func NewGuard(interval time.Duration) *Guard {
	return &Guard{
		interval: interval,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
		inFlight: make(map[string]struct{}),
	}
}

// TryAcquire stamps the leg as sent and marks it in flight, unless it is still cooling
// down or another submission is in flight. The stamp is taken before the caller submits,
// so a slow or failing submission still blocks the next tick. release clears only the
// in-flight marker.
func (g *Guard) TryAcquire(sessionID string, d trade.Direction) (release func(), ok bool) {
	key := Key(sessionID, d)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, false
	}
	if last, seen := g.lastSent[key]; seen && now.Sub(last) < g.interval {
		return nil, false
	}
	g.lastSent[key] = now
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, true
}

// Remaining returns how long the leg still cools down.
func (g *Guard) Remaining(sessionID string, d trade.Direction) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastSent[Key(sessionID, d)]
	if !ok {
		return 0
	}
	if left := g.interval - g.now().Sub(last); left > 0 {
		return left
	}
	return 0
}

// Forget drops all state of a session.
func (g *Guard) Forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range trade.Directions {
		key := Key(sessionID, d)
		delete(g.lastSent, key)
		delete(g.inFlight, key)
	}
}

// Package store persists trade sessions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// SessionStore loads and saves sessions.
type SessionStore interface {
	GetAllActive(ctx context.Context) ([]*trade.Session, error)
	Get(ctx context.Context, id string) (*trade.Session, error)
	Save(ctx context.Context, s *trade.Session) error
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status trade.SessionStatus
	Since  time.Time
	Limit  int
}

// Lister is implemented by stores that can enumerate sessions.
type Lister interface {
	List(ctx context.Context, f Filter) ([]*trade.Session, error)
}

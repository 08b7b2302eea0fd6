package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Saver persists sessions in the background so the tick loop never waits on the database.
// Saves of the same session are coalesced: only the latest copy is written.
type Saver struct {
	store   SessionStore
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*trade.Session
	order   []string

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSaver starts a Saver on top of store.
func NewSaver(store SessionStore, logger *zap.Logger) *Saver {
	s := &Saver{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		pending: make(map[string]*trade.Session),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Enqueue schedules a copy of the session for saving.
func (s *Saver) Enqueue(sess *trade.Session) {
	if sess == nil {
		return
	}
	c := sess.Clone()
	s.mu.Lock()
	if _, ok := s.pending[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.pending[c.ID] = c
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns how many sessions wait to be written.
func (s *Saver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close writes everything still pending and stops the worker.
func (s *Saver) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.flush()
	})
}

func (s *Saver) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.done:
			return
		}
	}
}

func (s *Saver) flush() {
	for {
		s.mu.Lock()
		if len(s.order) == 0 {
			s.mu.Unlock()
			return
		}
		id := s.order[0]
		s.order = s.order[1:]
		sess := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.store.Save(ctx, sess)
		cancel()
		if err != nil {
			s.logger.Error("Failed to save session", zap.String("sessionID", id), zap.Error(err))
		}
	}
}

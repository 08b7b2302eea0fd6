package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/hedge-guard-bot/internal/alert"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/dbwriter"
	"github.com/your-org/hedge-guard-bot/internal/hedge"
	"github.com/your-org/hedge-guard-bot/internal/metrics"
	"github.com/your-org/hedge-guard-bot/internal/price"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

// Evaluator runs the decision rules for one session tick.
type Evaluator interface {
	Evaluate(ctx context.Context, s *trade.Session, price decimal.Decimal) (*trade.Session, hedge.Decision, error)
	Forget(sessionID string)
	Sweep() int
}

// Persister saves sessions outside the tick loop.
type Persister interface {
	Enqueue(s *trade.Session)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPersister saves sessions whose state changed on a tick.
func WithPersister(p Persister) Option {
	return func(s *Scheduler) { s.persister = p }
}

// WithJournal records every decision and completed-session PnL.
func WithJournal(w dbwriter.DBWriter) Option {
	return func(s *Scheduler) { s.journal = w }
}

// WithNotifier alerts on failures and completions.
func WithNotifier(n alert.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithCompletionHook runs fn once for each session a tick leaves COMPLETED.
func WithCompletionHook(fn func(s *trade.Session)) Option {
	return func(s *Scheduler) { s.onComplete = fn }
}

// Scheduler evaluates every monitored session on a fixed-rate tick.
type Scheduler struct {
	registry *Registry
	engine   Evaluator
	oracle   price.Oracle
	interval time.Duration
	workers  int

	persister  Persister
	journal    dbwriter.DBWriter
	notifier   alert.Notifier
	onComplete func(s *trade.Session)
	now        func() time.Time

	wg sync.WaitGroup
}

// NewScheduler wires a Scheduler. Sessions leaving the registry also leave the engine's
// per-session state.
func NewScheduler(cfg config.EngineConfig, registry *Registry, engine Evaluator, oracle price.Oracle, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: registry,
		engine:   engine,
		oracle:   oracle,
		interval: cfg.Interval(),
		workers:  cfg.Workers,
		notifier: alert.NewNoOpNotifier(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	registry.OnRemove(engine.Forget)
	return s
}

// Run ticks until ctx is canceled. Each tick runs in its own goroutine so a session stuck
// on the gateway never delays the schedule; later ticks skip it through its lock.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Infof("[Scheduler] started: interval=%v workers=%d sessions=%d", s.interval, s.workers, s.registry.Len())

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("[Scheduler] stopped")
			return nil
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Tick evaluates every monitored session once and waits for all of them.
func (s *Scheduler) Tick(ctx context.Context) {
	start := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	s.registry.rangeEntries(func(id string, e *entry) bool {
		g.Go(func() error {
			s.process(gctx, id, e)
			return nil
		})
		return true
	})
	_ = g.Wait()

	if n := s.engine.Sweep(); n > 0 {
		metrics.SweptBaselines.Add(float64(n))
		logger.Debugf("[Scheduler] expired %d tracking baselines", n)
	}
	metrics.MonitoredSessions.Set(float64(s.registry.Len()))
	metrics.TickDuration.Observe(float64(s.now().Sub(start).Microseconds()) / 1000)
}

// process runs one session tick. Nothing that happens here may escape to the scan.
func (s *Scheduler) process(ctx context.Context, id string, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SessionsEvaluated.WithLabelValues("panic").Inc()
			logger.Errorf("[Scheduler] session %s: recovered from panic: %v", id, r)
		}
	}()

	if !e.mu.TryLock() {
		metrics.SessionsEvaluated.WithLabelValues("locked").Inc()
		return
	}
	defer e.mu.Unlock()

	if e.processing.Load() {
		metrics.SessionsEvaluated.WithLabelValues("processing").Inc()
		return
	}
	cur := e.session.Load()
	if cur == nil || cur.Status == trade.SessionCompleted {
		return
	}
	p, ok := s.oracle.Price(cur.Symbol)
	if !ok {
		metrics.SessionsEvaluated.WithLabelValues("no_price").Inc()
		return
	}

	work := cur.Clone()
	e.processing.Store(true)
	defer e.processing.Store(false)

	updated, d, err := s.engine.Evaluate(ctx, work, p)
	next := work
	if updated != nil {
		next = updated
	}

	if d.Action != hedge.ActionNone {
		s.record(cur, d, err)
	}
	if err != nil {
		s.fail(cur, d, err)
	} else {
		metrics.SessionsEvaluated.WithLabelValues("evaluated").Inc()
	}

	if !e.session.CompareAndSwap(cur, next) {
		// replaced by a fill handler while we were evaluating; theirs wins
		return
	}
	if updated != nil || trailingChanged(cur, next) {
		if s.persister != nil {
			s.persister.Enqueue(next)
		}
	}
	if cur.Status == trade.SessionActive && next.Status == trade.SessionCompleted {
		s.complete(ctx, next)
	}
}

func (s *Scheduler) record(cur *trade.Session, d hedge.Decision, err error) {
	metrics.Decisions.WithLabelValues(string(d.Rule), string(d.Action), strconv.FormatBool(d.Blocked)).Inc()
	if d.Blocked {
		logger.Debugf("[Scheduler] session %s: %s held by cooldown (%s)", cur.ID, d.Rule, d.Reason)
	} else {
		logger.Infof("[Scheduler] session %s: %s %s %s order=%s reason=%q",
			cur.ID, d.Action, d.Direction, d.Purpose, d.OrderID, d.Reason)
	}
	if s.journal == nil || d.Blocked {
		return
	}
	rec := dbwriter.DecisionRecord{
		Time:      s.now().UTC(),
		SessionID: cur.ID,
		Symbol:    cur.Symbol,
		Rule:      string(d.Rule),
		Action:    string(d.Action),
		Mode:      string(d.Mode),
		Direction: string(d.Direction),
		Purpose:   string(d.Purpose),
		OrderID:   d.OrderID,
		Price:     d.Price,
		PnL:       d.PnL,
		Reason:    d.Reason,
		Blocked:   d.Blocked,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.journal.SaveDecision(rec)
}

func (s *Scheduler) fail(cur *trade.Session, d hedge.Decision, err error) {
	if d.Action == hedge.ActionNone {
		metrics.SessionsEvaluated.WithLabelValues("error").Inc()
		logger.Warnf("[Scheduler] session %s: skipped tick: %v", cur.ID, err)
		return
	}
	metrics.SessionsEvaluated.WithLabelValues("error").Inc()
	metrics.GatewayErrors.WithLabelValues(string(d.Rule)).Inc()
	logger.Errorf("[Scheduler] session %s: %s submission failed: %v", cur.ID, d.Rule, err)
	if nerr := s.notifier.Send(fmt.Sprintf("session %s %s failed: %v", cur.ID, d.Rule, err)); nerr != nil {
		logger.Warnf("[Scheduler] failed to send alert: %v", nerr)
	}
}

func (s *Scheduler) complete(ctx context.Context, sess *trade.Session) {
	logger.Infof("[Scheduler] session %s completed: pnl=%s commission=%s orders=%d",
		sess.ID, sess.PnL.StringFixed(4), sess.Commission.StringFixed(4), len(sess.Orders))
	if s.journal != nil {
		end := s.now().UTC()
		if sess.EndTime != nil {
			end = *sess.EndTime
		}
		if err := s.journal.SavePnLSummary(ctx, dbwriter.PnLSummary{
			Time:        end,
			SessionID:   sess.ID,
			Symbol:      sess.Symbol,
			RealizedPnL: sess.PnL,
			Commission:  sess.Commission,
			OrderCount:  len(sess.Orders),
		}); err != nil {
			logger.Errorf("[Scheduler] session %s: %v", sess.ID, err)
		}
	}
	if err := s.notifier.Send(fmt.Sprintf("session %s completed pnl=%s", sess.ID, sess.PnL.StringFixed(4))); err != nil {
		logger.Warnf("[Scheduler] failed to send alert: %v", err)
	}
	if s.onComplete != nil {
		s.onComplete(sess)
	}
}

// trailingChanged reports whether an evaluation touched the trailing state of any order.
func trailingChanged(before, after *trade.Session) bool {
	if len(before.Orders) != len(after.Orders) {
		return true
	}
	for i, o := range before.Orders {
		n := after.Orders[i]
		if o.TrailingActive != n.TrailingActive || o.PnlHigh.Valid != n.PnlHigh.Valid ||
			!o.PnlHigh.Decimal.Equal(n.PnlHigh.Decimal) {
			return true
		}
	}
	return false
}

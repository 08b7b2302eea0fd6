package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/dbwriter"
	"github.com/your-org/hedge-guard-bot/internal/engine"
	"github.com/your-org/hedge-guard-bot/internal/hedge"
	"github.com/your-org/hedge-guard-bot/internal/price"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

type fakeEngine struct {
	mu        sync.Mutex
	eval      func(s *trade.Session) (*trade.Session, hedge.Decision, error)
	calls     map[string]int
	forgotten []string
}

func newFakeEngine(eval func(s *trade.Session) (*trade.Session, hedge.Decision, error)) *fakeEngine {
	return &fakeEngine{eval: eval, calls: map[string]int{}}
}

func (f *fakeEngine) Evaluate(ctx context.Context, s *trade.Session, p decimal.Decimal) (*trade.Session, hedge.Decision, error) {
	f.mu.Lock()
	f.calls[s.ID]++
	f.mu.Unlock()
	return f.eval(s)
}

func (f *fakeEngine) Forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, id)
}

func (f *fakeEngine) Sweep() int { return 0 }

func (f *fakeEngine) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type recordingPersister struct {
	mu    sync.Mutex
	saved []*trade.Session
}

func (p *recordingPersister) Enqueue(s *trade.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, s)
}

func noop(*trade.Session) (*trade.Session, hedge.Decision, error) {
	return nil, hedge.Decision{Action: hedge.ActionNone}, nil
}

func pricedCache(v int64) *price.Cache {
	c := price.NewCache(0)
	c.Update(price.Quote{Symbol: "BTCUSDT", Price: decimal.NewFromInt(v), Time: time.Now()})
	return c
}

func engineConfig() config.EngineConfig {
	return config.EngineConfig{IntervalMs: 10, Workers: 4, CooldownSeconds: 10}
}

func TestTick_SkipsWithoutPrice(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "s1"))
	eng := newFakeEngine(noop)

	NewScheduler(engineConfig(), reg, eng, price.NewCache(0)).Tick(context.Background())
	assert.Equal(t, 0, eng.callCount("s1"))
}

func TestTick_PanicDoesNotAbortScan(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "bad"))
	reg.Add(newLongSession(t, "good"))
	eng := newFakeEngine(func(s *trade.Session) (*trade.Session, hedge.Decision, error) {
		if s.ID == "bad" {
			panic("corrupt history")
		}
		return nil, hedge.Decision{Action: hedge.ActionNone}, nil
	})

	sched := NewScheduler(engineConfig(), reg, eng, pricedCache(50000))
	require.NotPanics(t, func() { sched.Tick(context.Background()) })

	assert.Equal(t, 1, eng.callCount("good"))
	assert.False(t, reg.Processing("bad"), "processing flag is reset after a panic")

	sched.Tick(context.Background())
	assert.Equal(t, 2, eng.callCount("bad"), "a panicking session stays registered")
}

func TestTick_SkipsLockedAndProcessingSessions(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "locked"))
	reg.Add(newLongSession(t, "busy"))
	eng := newFakeEngine(noop)

	locked, _ := reg.load("locked")
	locked.mu.Lock()
	busy, _ := reg.load("busy")
	busy.processing.Store(true)

	NewScheduler(engineConfig(), reg, eng, pricedCache(50000)).Tick(context.Background())
	assert.Equal(t, 0, eng.callCount("locked"))
	assert.Equal(t, 0, eng.callCount("busy"))
	locked.mu.Unlock()
}

func TestTick_GatewayFailureIsJournaled(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "s1"))
	journal := dbwriter.NewInMemWriter()
	eng := newFakeEngine(func(s *trade.Session) (*trade.Session, hedge.Decision, error) {
		return nil, hedge.Decision{Action: hedge.ActionHedge, Rule: hedge.RuleHedge, Direction: trade.Short},
			errors.New("exchange down")
	})

	NewScheduler(engineConfig(), reg, eng, pricedCache(49750), WithJournal(journal)).Tick(context.Background())

	decisions, _ := journal.Snapshot()
	require.Len(t, decisions, 1)
	assert.Equal(t, "hedge", decisions[0].Rule)
	assert.Equal(t, "exchange down", decisions[0].Error)
	assert.False(t, reg.Processing("s1"))
	_, ok := reg.Get("s1")
	assert.True(t, ok, "session stays registered after a failure")
}

func TestTick_CompletionRunsHookOnce(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "s1"))
	journal := dbwriter.NewInMemWriter()
	persister := &recordingPersister{}

	eng := newFakeEngine(func(s *trade.Session) (*trade.Session, hedge.Decision, error) {
		next := s.Clone()
		err := next.AddOrder(&trade.Order{
			ID: "c1", Purpose: trade.MainClose, Direction: trade.Long, Status: trade.StatusFilled,
			Price: decimal.NewFromInt(50100), Count: decimal.RequireFromString("0.01"), ParentOrderID: "s1-m1",
		})
		require.NoError(t, err)
		next.PnL = decimal.NewFromInt(1)
		return next, hedge.Decision{Action: hedge.ActionClose, Rule: hedge.RuleTrailing}, nil
	})

	var completed []string
	sched := NewScheduler(engineConfig(), reg, eng, pricedCache(50100),
		WithJournal(journal),
		WithPersister(persister),
		WithCompletionHook(func(s *trade.Session) {
			completed = append(completed, s.ID)
			reg.Remove(s.ID)
		}),
	)
	sched.Tick(context.Background())
	sched.Tick(context.Background())

	assert.Equal(t, []string{"s1"}, completed)
	assert.Equal(t, []string{"s1"}, eng.forgotten)
	assert.Equal(t, 0, reg.Len())

	_, summaries := journal.Snapshot()
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].RealizedPnL.Equal(decimal.NewFromInt(1)))
	require.Len(t, persister.saved, 1)
	assert.Equal(t, trade.SessionCompleted, persister.saved[0].Status)
}

func TestTick_PaperHedgeEndToEnd(t *testing.T) {
	cfg := config.Default()
	reg := NewRegistry()
	reg.Add(newLongSession(t, "s1"))
	journal := dbwriter.NewInMemWriter()
	persister := &recordingPersister{}

	orch := hedge.New(cfg, engine.NewPaperGateway(cfg.Paper))
	sched := NewScheduler(cfg.Engine, reg, orch, pricedCache(49750), WithJournal(journal), WithPersister(persister))

	for i := 0; i < 5; i++ {
		sched.Tick(context.Background())
	}

	s, ok := reg.Get("s1")
	require.True(t, ok)
	assert.True(t, s.HasBothPositionsActive())
	assert.Equal(t, trade.ModeHedging, s.CurrentMode)
	require.Len(t, s.Orders, 2)
	assert.Equal(t, trade.HedgeOpen, s.Orders[1].Purpose)
	assert.Equal(t, "s1-m1", s.Orders[1].RelatedHedgeID)

	decisions, _ := journal.Snapshot()
	require.Len(t, decisions, 1)
	assert.Equal(t, "hedge", decisions[0].Rule)
	assert.NotEmpty(t, persister.saved)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	reg := NewRegistry()
	reg.Add(newLongSession(t, "s1"))
	eng := newFakeEngine(noop)
	sched := NewScheduler(engineConfig(), reg, eng, pricedCache(50000))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool { return eng.callCount("s1") >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// Package extraclose is a one-shot secondary stop for a two-leg session whose legs are
// both deep underwater. It arms on the first qualifying tick and fires once the better leg
// has deteriorated further from that baseline.
package extraclose

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/tracking"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Tracker evaluates the rule. Baselines are keyed by session id; independent sessions
// never share state.
type Tracker struct {
	enabled     bool
	bestLoss    decimal.Decimal
	worstLoss   decimal.Decimal
	delta       decimal.Decimal
	maxLifetime time.Duration
	baselines   *tracking.Store
	now         func() time.Time
}

// NewTracker builds a Tracker from config.
func NewTracker(cfg config.ExtraCloseConfig) *Tracker {
	return &Tracker{
		enabled:     bool(cfg.Enabled),
		bestLoss:    decimal.NewFromFloat(cfg.BestLossPct),
		worstLoss:   decimal.NewFromFloat(cfg.WorstLossPct),
		delta:       decimal.NewFromFloat(cfg.DeteriorationDeltaPct),
		maxLifetime: cfg.MaxLifetime(),
		baselines:   tracking.NewStore(),
		now:         time.Now,
	}
}

// Result describes one evaluation.
type Result struct {
	Trigger  bool
	Armed    bool
	Expired  bool
	Baseline decimal.Decimal
	Best     decimal.Decimal
	Worst    decimal.Decimal
}

// Reason renders the audit string for a trigger.
func (r Result) Reason() string {
	return fmt.Sprintf("extra_close best=%s baseline=%s worst=%s",
		r.Best.StringFixed(2), r.Baseline.StringFixed(2), r.Worst.StringFixed(2))
}

// Check evaluates the rule for one tick.
func (t *Tracker) Check(sessionID string, bestPnl, worstPnl decimal.Decimal, bestOrder *trade.Order) Result {
	res := Result{Best: bestPnl, Worst: worstPnl}
	if !t.enabled || bestOrder == nil {
		return res
	}
	now := t.now()
	qualifies := bestPnl.LessThanOrEqual(t.bestLoss) && worstPnl.LessThanOrEqual(t.worstLoss)

	t.baselines.Update(sessionID, func(b tracking.Baseline, ok bool) (tracking.Baseline, bool) {
		if ok && now.Sub(b.Start) > t.maxLifetime {
			res.Expired = true
			return b, false
		}
		if !qualifies {
			return b, false
		}
		if !ok || b.Direction != bestOrder.Direction {
			res.Armed = true
			res.Baseline = bestPnl
			return tracking.Baseline{PnL: bestPnl, Start: now, Direction: bestOrder.Direction}, true
		}
		res.Baseline = b.PnL
		if bestPnl.Sub(b.PnL).LessThanOrEqual(t.delta) {
			res.Trigger = true
			return b, false
		}
		return b, true
	})
	return res
}

// Forget drops any baseline held for the session.
func (t *Tracker) Forget(sessionID string) {
	t.baselines.Delete(sessionID)
}

// Sweep drops baselines past their lifetime.
func (t *Tracker) Sweep() int {
	return t.baselines.Sweep(t.now(), t.maxLifetime)
}

// Baselines exposes the live baselines for inspection.
func (t *Tracker) Baselines() map[string]tracking.Baseline {
	return t.baselines.Snapshot()
}

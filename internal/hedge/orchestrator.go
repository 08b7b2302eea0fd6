// Package hedge implements the per-tick decision state machine for a session.
//
// A session with one live leg runs trailing, then averaging, then the single-position hedge
// rule. A session with two legs runs lock-in, then best-leg trailing, then the extra-close
// safety net. At most one action is taken per tick.
package hedge

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/averaging"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/cooldown"
	"github.com/your-org/hedge-guard-bot/internal/engine"
	"github.com/your-org/hedge-guard-bot/internal/extraclose"
	"github.com/your-org/hedge-guard-bot/internal/pnl"
	"github.com/your-org/hedge-guard-bot/internal/tracking"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/internal/trailing"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

// Action is the kind of order a decision submits.
type Action string

const (
	ActionNone      Action = "NONE"
	ActionClose     Action = "CLOSE"
	ActionAveraging Action = "AVERAGING_OPEN"
	ActionHedge     Action = "HEDGE_OPEN"
)

// Rule names the rule that produced a decision.
type Rule string

const (
	RuleNone         Rule = ""
	RuleTrailing     Rule = "trailing"
	RuleAveraging    Rule = "averaging"
	RuleHedge        Rule = "hedge"
	RuleLockIn       Rule = "lock_in"
	RuleBestTrailing Rule = "best_trailing"
	RuleExtraClose   Rule = "extra_close"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Action    Action
	Rule      Rule
	Mode      trade.Mode
	Direction trade.Direction
	Purpose   trade.Purpose
	OrderID   string
	Price     decimal.Decimal
	PnL       decimal.Decimal
	Reason    string
	// Blocked is set when a rule fired but the cooldown guard held the submission back.
	Blocked bool
}

// Submitted reports whether the decision reached the gateway.
func (d Decision) Submitted() bool {
	return d.Action != ActionNone && !d.Blocked
}

// Orchestrator evaluates sessions and submits the resulting orders.
// Calls for one session must be serialized by the caller.
type Orchestrator struct {
	gateway   engine.Gateway
	trailing  *trailing.Evaluator
	averaging *averaging.Evaluator
	extra     *extraclose.Tracker
	guard     *cooldown.Guard
	followUp  *tracking.Store

	hedgeThreshold decimal.Decimal
	lockIn         decimal.Decimal
	followUpTTL    time.Duration
	now            func() time.Time
}

// New builds an Orchestrator from config.
func New(cfg *config.Config, gateway engine.Gateway) *Orchestrator {
	return &Orchestrator{
		gateway:        gateway,
		trailing:       trailing.NewEvaluator(cfg.Trailing),
		averaging:      averaging.NewEvaluator(cfg.Averaging),
		extra:          extraclose.NewTracker(cfg.ExtraClose),
		guard:          cooldown.NewGuard(cfg.Engine.Cooldown()),
		followUp:       tracking.NewStore(),
		hedgeThreshold: decimal.NewFromFloat(cfg.Hedge.SinglePositionThresholdPct),
		lockIn:         decimal.NewFromFloat(cfg.Hedge.ProfitableActivationPct),
		followUpTTL:    cfg.ExtraClose.MaxLifetime(),
		now:            time.Now,
	}
}

// Evaluate runs one tick for the session at the given price. Trailing state on the orders
// of s is updated in place. The returned session is the gateway's updated copy, or nil when
// nothing was submitted or the gateway reported no change.
func (o *Orchestrator) Evaluate(ctx context.Context, s *trade.Session, price decimal.Decimal) (*trade.Session, Decision, error) {
	if s == nil || s.Status == trade.SessionCompleted {
		return nil, Decision{Action: ActionNone}, nil
	}
	switch dirs := trade.ActiveDirections(s); len(dirs) {
	case 0:
		return nil, Decision{Action: ActionNone}, nil
	case 1:
		return o.evaluateSingle(ctx, s, price)
	default:
		return o.evaluateDual(ctx, s, price)
	}
}

func (o *Orchestrator) evaluateSingle(ctx context.Context, s *trade.Session, price decimal.Decimal) (*trade.Session, Decision, error) {
	active := trade.ActiveOrderForMonitoring(s)
	if active == nil {
		return nil, Decision{Action: ActionNone}, nil
	}
	current, err := pnl.Percent(active.Direction, active.Price, price)
	if err != nil {
		return nil, Decision{Action: ActionNone}, fmt.Errorf("session %s order %s: %w", s.ID, active.ID, err)
	}

	saved := snapshotTrailing(active)
	if res := o.trailing.Check(active, current); res.Close {
		d := o.closeDecision(s, active, RuleTrailing, s.CurrentMode, price, current, res.Reason())
		updated, d, err := o.submitClose(ctx, s, d)
		if !d.Submitted() || err != nil {
			saved.restore(active)
		}
		return updated, d, err
	} else if res.Armed {
		logger.Debugf("[Hedge] session %s order %s trailing armed at %s", s.ID, active.ID, res.High.StringFixed(3))
	}

	if o.averaging.CheckOpen(s, active, decimal.NewNullDecimal(current)) {
		return o.openAveraging(ctx, s, active, price, current)
	}

	if current.LessThanOrEqual(o.hedgeThreshold) {
		return o.openHedge(ctx, s, active, price, current)
	}
	return nil, Decision{Action: ActionNone, PnL: current}, nil
}

func (o *Orchestrator) openAveraging(ctx context.Context, s *trade.Session, active *trade.Order, price, current decimal.Decimal) (*trade.Session, Decision, error) {
	d := Decision{
		Action:    ActionAveraging,
		Rule:      RuleAveraging,
		Mode:      s.CurrentMode,
		Direction: active.Direction,
		Purpose:   trade.AveragingOpen,
		OrderID:   active.ID,
		Price:     price,
		PnL:       current,
		Reason:    o.averaging.Reason(current),
	}
	release, ok := o.guard.TryAcquire(s.ID, active.Direction)
	if !ok {
		d.Blocked = true
		return nil, d, nil
	}
	defer release()

	s.MarkAverageActive(active.Direction)
	updated, err := o.gateway.OpenPosition(ctx, s, engine.OpenRequest{
		Mode:           d.Mode,
		Direction:      d.Direction,
		Purpose:        d.Purpose,
		Price:          price,
		Reason:         d.Reason,
		ParentOrderID:  active.ID,
		RelatedHedgeID: active.RelatedHedgeID,
	})
	if err != nil {
		s.Refresh()
		return nil, d, fmt.Errorf("averaging open for session %s: %w", s.ID, err)
	}
	o.followUp.Put(s.ID, tracking.Baseline{PnL: current, Start: o.now(), Direction: active.Direction})
	return updated, d, nil
}

func (o *Orchestrator) openHedge(ctx context.Context, s *trade.Session, active *trade.Order, price, current decimal.Decimal) (*trade.Session, Decision, error) {
	side := active.Direction.Opposite()
	if trade.IsDirectionActiveByOrders(s, side) {
		logger.Warnf("[Hedge] session %s already holds %s; refusing a second hedge", s.ID, side)
		return nil, Decision{Action: ActionNone, PnL: current}, nil
	}

	anchor := trade.MainOrder(s)
	if !trade.IsMainStillActive(s) {
		anchor = trade.LatestFilledOpening(s, active.Direction)
	}
	if anchor == nil {
		return nil, Decision{Action: ActionNone, PnL: current}, fmt.Errorf("session %s: no anchor order for hedge", s.ID)
	}

	d := Decision{
		Action:    ActionHedge,
		Rule:      RuleHedge,
		Mode:      trade.ModeHedging,
		Direction: side,
		Purpose:   trade.HedgeOpen,
		OrderID:   anchor.ID,
		Price:     price,
		PnL:       current,
		Reason:    fmt.Sprintf("hedge pnl=%s<=%s", current.StringFixed(2), o.hedgeThreshold.StringFixed(2)),
	}
	release, ok := o.guard.TryAcquire(s.ID, side)
	if !ok {
		d.Blocked = true
		return nil, d, nil
	}
	defer release()

	updated, err := o.gateway.OpenPosition(ctx, s, engine.OpenRequest{
		Mode:          d.Mode,
		Direction:     side,
		Purpose:       trade.HedgeOpen,
		Price:         price,
		Reason:        d.Reason,
		ParentOrderID: anchor.ID,
	})
	if err != nil {
		return nil, d, fmt.Errorf("hedge open for session %s: %w", s.ID, err)
	}
	return updated, d, nil
}

func (o *Orchestrator) evaluateDual(ctx context.Context, s *trade.Session, price decimal.Decimal) (*trade.Session, Decision, error) {
	long := trade.LatestActiveOrderByDirection(s, trade.Long)
	short := trade.LatestActiveOrderByDirection(s, trade.Short)
	if long == nil || short == nil {
		return nil, Decision{Action: ActionNone}, nil
	}
	longPnl, err := pnl.Percent(trade.Long, long.Price, price)
	if err != nil {
		return nil, Decision{Action: ActionNone}, fmt.Errorf("session %s order %s: %w", s.ID, long.ID, err)
	}
	shortPnl, err := pnl.Percent(trade.Short, short.Price, price)
	if err != nil {
		return nil, Decision{Action: ActionNone}, fmt.Errorf("session %s order %s: %w", s.ID, short.ID, err)
	}

	best, worst := long, short
	bestPnl, worstPnl := longPnl, shortPnl
	if shortPnl.GreaterThan(longPnl) || (shortPnl.Equal(longPnl) && s.Direction == trade.Short) {
		best, worst = short, long
		bestPnl, worstPnl = shortPnl, longPnl
	}

	if bestPnl.GreaterThanOrEqual(o.lockIn) {
		reason := fmt.Sprintf("lock_in %s pnl=%s>=%s close %s pnl=%s",
			best.Direction, bestPnl.StringFixed(2), o.lockIn.StringFixed(2), worst.Direction, worstPnl.StringFixed(2))
		d := o.closeDecision(s, worst, RuleLockIn, trade.ModePostClose, price, worstPnl, reason)
		updated, d, err := o.submitClose(ctx, s, d)
		if d.Submitted() && err == nil {
			o.extra.Forget(s.ID)
			o.followUp.PutIfAbsent(s.ID, tracking.Baseline{PnL: decimal.Zero, Start: o.now(), Direction: best.Direction})
		}
		return updated, d, err
	}

	saved := snapshotTrailing(best)
	if res := o.trailing.Check(best, bestPnl); res.Close {
		d := o.closeDecision(s, best, RuleBestTrailing, trade.ModeHedging, price, bestPnl, res.Reason())
		updated, d, err := o.submitClose(ctx, s, d)
		if !d.Submitted() || err != nil {
			saved.restore(best)
		} else {
			o.extra.Forget(s.ID)
		}
		return updated, d, err
	}

	if res := o.extra.Check(s.ID, bestPnl, worstPnl, best); res.Trigger {
		d := o.closeDecision(s, best, RuleExtraClose, trade.ModeForcing, price, bestPnl, res.Reason())
		return o.submitClose(ctx, s, d)
	} else if res.Armed {
		logger.Infof("[Hedge] session %s extra_close armed best=%s worst=%s", s.ID, bestPnl.StringFixed(2), worstPnl.StringFixed(2))
	}
	return nil, Decision{Action: ActionNone, PnL: bestPnl}, nil
}

func (o *Orchestrator) closeDecision(s *trade.Session, target *trade.Order, rule Rule, mode trade.Mode, price, current decimal.Decimal, reason string) Decision {
	return Decision{
		Action:    ActionClose,
		Rule:      rule,
		Mode:      mode,
		Direction: target.Direction,
		Purpose:   ResolveClosePurpose(s.ID, target),
		OrderID:   target.ID,
		Price:     price,
		PnL:       current,
		Reason:    reason,
	}
}

func (o *Orchestrator) submitClose(ctx context.Context, s *trade.Session, d Decision) (*trade.Session, Decision, error) {
	release, ok := o.guard.TryAcquire(s.ID, d.Direction)
	if !ok {
		d.Blocked = true
		return nil, d, nil
	}
	defer release()

	target := s.FindOrder(d.OrderID)
	updated, err := o.gateway.ClosePosition(ctx, s, engine.CloseRequest{
		Mode:           d.Mode,
		OrderID:        d.OrderID,
		RelatedHedgeID: target.RelatedHedgeID,
		Direction:      d.Direction,
		Purpose:        d.Purpose,
		Price:          d.Price,
		Reason:         d.Reason,
	})
	if err != nil {
		return nil, d, fmt.Errorf("%s close for session %s: %w", d.Rule, s.ID, err)
	}
	return updated, d, nil
}

// ResolveClosePurpose maps the opening purpose of target to the purpose that closes it.
// Unknown purposes fall back to HEDGE_CLOSE.
func ResolveClosePurpose(sessionID string, target *trade.Order) trade.Purpose {
	if p, ok := target.Purpose.ClosePurpose(); ok {
		return p
	}
	logger.Warnf("[Hedge] session %s order %s has unexpected purpose %q for a close; using %s",
		sessionID, target.ID, target.Purpose, trade.HedgeClose)
	return trade.HedgeClose
}

// Forget drops all per-session state held by the orchestrator.
func (o *Orchestrator) Forget(sessionID string) {
	o.extra.Forget(sessionID)
	o.guard.Forget(sessionID)
	o.followUp.Delete(sessionID)
}

// Sweep expires stale tracking state and returns how many entries were dropped.
func (o *Orchestrator) Sweep() int {
	return o.extra.Sweep() + o.followUp.Sweep(o.now(), o.followUpTTL)
}

// FollowUp returns the follow-up baseline tracked for a session, if any.
func (o *Orchestrator) FollowUp(sessionID string) (tracking.Baseline, bool) {
	return o.followUp.Get(sessionID)
}

// ExtraCloseBaselines exposes the armed extra-close baselines.
func (o *Orchestrator) ExtraCloseBaselines() map[string]tracking.Baseline {
	return o.extra.Baselines()
}

type trailingState struct {
	high   decimal.NullDecimal
	active bool
}

func snapshotTrailing(o *trade.Order) trailingState {
	return trailingState{high: o.PnlHigh, active: o.TrailingActive}
}

// restore puts back the stop so a close that never reached the gateway fires again later.
func (t trailingState) restore(o *trade.Order) {
	o.PnlHigh = t.high
	o.TrailingActive = t.active
}

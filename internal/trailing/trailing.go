// Package trailing implements the amplitude-adaptive trailing stop.
//
// A leg arms once its PnL reaches the activation threshold. From then on the stop sits at
// a fraction of the peak PnL, chosen by tier, minus a buffer that covers round-trip fees.
// The fraction grows with the peak so large moves give back less.
package trailing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Tier keeps Ratio of the peak while the peak is at or below MaxHigh.
// A zero MaxHigh marks the open-ended tier.
type Tier struct {
	MaxHigh decimal.Decimal
	Ratio   decimal.Decimal
}

// Evaluator checks trailing stops. It holds no per-order state of its own: the peak and
// armed flag live on the order.
type Evaluator struct {
	activation decimal.Decimal
	feeBuffer  decimal.Decimal
	tiers      []Tier
}

// NewEvaluator builds an Evaluator from config.
func NewEvaluator(cfg config.TrailingConfig) *Evaluator {
	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, Tier{
			MaxHigh: decimal.NewFromFloat(t.MaxHighPct),
			Ratio:   decimal.NewFromFloat(t.Ratio),
		})
	}
	return &Evaluator{
		activation: decimal.NewFromFloat(cfg.ActivationPct),
		feeBuffer:  decimal.NewFromFloat(cfg.FeeBufferPct),
		tiers:      tiers,
	}
}

// Result describes one trailing check.
type Result struct {
	Close bool
	Armed bool // armed on this tick
	High  decimal.Decimal
	Level decimal.Decimal
}

// Reason renders the audit string for a close.
func (r Result) Reason() string {
	return fmt.Sprintf("trailing high=%s retrace<=%s", r.High.StringFixed(2), r.Level.StringFixed(3))
}

// Ratio returns the retained fraction of the peak for the given peak PnL.
func (e *Evaluator) Ratio(high decimal.Decimal) decimal.Decimal {
	for i, t := range e.tiers {
		last := i == len(e.tiers)-1
		if (last && t.MaxHigh.IsZero()) || high.LessThanOrEqual(t.MaxHigh) {
			return t.Ratio
		}
	}
	if len(e.tiers) == 0 {
		return decimal.NewFromInt(1)
	}
	return e.tiers[len(e.tiers)-1].Ratio
}

// RetraceLevel returns max(0, high*ratio(high) - feeBuffer).
func (e *Evaluator) RetraceLevel(high decimal.Decimal) decimal.Decimal {
	level := high.Mul(e.Ratio(high)).Sub(e.feeBuffer)
	if level.IsNegative() {
		return decimal.Zero
	}
	return level
}

// Check updates the order's trailing state with the current PnL and reports whether
// the leg should be closed now. The arming tick never closes.
func (e *Evaluator) Check(o *trade.Order, currentPnl decimal.Decimal) Result {
	if !o.PnlHigh.Valid || currentPnl.GreaterThan(o.PnlHigh.Decimal) {
		o.PnlHigh = decimal.NewNullDecimal(currentPnl)
	}

	if !o.TrailingActive {
		if currentPnl.GreaterThanOrEqual(e.activation) {
			o.TrailingActive = true
			o.PnlHigh = decimal.NewNullDecimal(currentPnl)
			return Result{Armed: true, High: currentPnl, Level: e.RetraceLevel(currentPnl)}
		}
		return Result{High: o.PnlHigh.Decimal}
	}

	high := o.PnlHigh.Decimal
	level := e.RetraceLevel(high)
	if currentPnl.LessThanOrEqual(level) {
		o.TrailingActive = false
		return Result{Close: true, High: high, Level: level}
	}
	return Result{High: high, Level: level}
}

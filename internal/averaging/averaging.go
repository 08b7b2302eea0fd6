// Package averaging decides when a deep-losing leg gets one cost-averaging order.
package averaging

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Evaluator approves averaging opens.
type Evaluator struct {
	enabled bool
	trigger decimal.Decimal
}

// NewEvaluator builds an Evaluator from config.
func NewEvaluator(cfg config.AveragingConfig) *Evaluator {
	return &Evaluator{
		enabled: bool(cfg.Enabled),
		trigger: decimal.NewFromFloat(cfg.TriggerPct),
	}
}

// CheckOpen reports whether an AVERAGING_OPEN should be chained to the active order.
// At most one averaging order may be open per direction, and an averaging order is never
// itself averaged.
func (e *Evaluator) CheckOpen(s *trade.Session, active *trade.Order, currentPnl decimal.NullDecimal) bool {
	if !e.enabled || s == nil || active == nil || !currentPnl.Valid {
		return false
	}
	if active.Status != trade.StatusFilled || active.Purpose.IsAveraging() {
		return false
	}
	if s.IsAverageActive(active.Direction) || !trade.CanOpenAverageByDirection(s, active.Direction) {
		return false
	}
	return currentPnl.Decimal.LessThanOrEqual(e.trigger)
}

// Reason renders the audit string for an approved open.
func (e *Evaluator) Reason(currentPnl decimal.Decimal) string {
	return fmt.Sprintf("averaging pnl=%s<=%s", currentPnl.StringFixed(2), e.trigger.StringFixed(2))
}

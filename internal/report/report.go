// Package report summarizes completed sessions.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// ErrNoCompletedSessions is returned when there is nothing to analyze.
var ErrNoCompletedSessions = errors.New("no completed sessions to analyze")

// Report holds the performance of a set of completed sessions.
type Report struct {
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	TotalSessions        int             `json:"total_sessions"`
	WinningSessions      int             `json:"winning_sessions"`
	LosingSessions       int             `json:"losing_sessions"`
	WinRate              float64         `json:"win_rate"`
	LongWinningSessions  int             `json:"long_winning_sessions"`
	LongLosingSessions   int             `json:"long_losing_sessions"`
	ShortWinningSessions int             `json:"short_winning_sessions"`
	ShortLosingSessions  int             `json:"short_losing_sessions"`
	HedgedSessions       int             `json:"hedged_sessions"`
	AveragedSessions     int             `json:"averaged_sessions"`
	ClosesByPurpose      map[string]int  `json:"closes_by_purpose"`
	TotalPnL             decimal.Decimal `json:"total_pnl"`
	TotalCommission      decimal.Decimal `json:"total_commission"`
	NetPnL               decimal.Decimal `json:"net_pnl"`
	AverageProfit        decimal.Decimal `json:"average_profit"`
	AverageLoss          decimal.Decimal `json:"average_loss"`
	RiskRewardRatio      float64         `json:"risk_reward_ratio"`
	ProfitFactor         float64         `json:"profit_factor"`
	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	SharpeRatio          float64         `json:"sharpe_ratio"`
	SortinoRatio         float64         `json:"sortino_ratio"`
	MaxConsecutiveWins   int             `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`

	AverageHoldingPeriodSeconds float64 `json:"average_holding_period_seconds"`
}

// Service builds reports from a session store.
type Service struct {
	sessions store.Lister
}

// NewService creates a new report service.
func NewService(sessions store.Lister) *Service {
	return &Service{sessions: sessions}
}

// Generate analyzes the completed sessions created since the given time.
func (s *Service) Generate(ctx context.Context, since time.Time) (Report, error) {
	sessions, err := s.sessions.List(ctx, store.Filter{Status: trade.SessionCompleted, Since: since})
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	return AnalyzeSessions(sessions)
}

// AnalyzeSessions computes a Report. Sessions that are not completed are ignored.
func AnalyzeSessions(sessions []*trade.Session) (Report, error) {
	var done []*trade.Session
	for _, s := range sessions {
		if s.Status == trade.SessionCompleted {
			done = append(done, s)
		}
	}
	if len(done) == 0 {
		return Report{}, ErrNoCompletedSessions
	}
	sort.Slice(done, func(i, j int) bool { return endTime(done[i]).Before(endTime(done[j])) })

	r := Report{
		StartDate:       done[0].CreatedTime,
		EndDate:         endTime(done[len(done)-1]),
		TotalSessions:   len(done),
		ClosesByPurpose: map[string]int{},
	}

	var (
		grossProfit, grossLoss decimal.Decimal
		cumulative, peak       decimal.Decimal
		returns                []float64
		wins, losses           int
		holding                time.Duration
	)
	for _, s := range done {
		net := s.PnL.Sub(s.Commission)
		r.TotalPnL = r.TotalPnL.Add(s.PnL)
		r.TotalCommission = r.TotalCommission.Add(s.Commission)

		switch {
		case net.IsPositive():
			r.WinningSessions++
			grossProfit = grossProfit.Add(net)
			if s.Direction == trade.Long {
				r.LongWinningSessions++
			} else {
				r.ShortWinningSessions++
			}
			wins++
			losses = 0
		case net.IsNegative():
			r.LosingSessions++
			grossLoss = grossLoss.Add(net.Abs())
			if s.Direction == trade.Long {
				r.LongLosingSessions++
			} else {
				r.ShortLosingSessions++
			}
			losses++
			wins = 0
		default:
			wins, losses = 0, 0
		}
		r.MaxConsecutiveWins = max(r.MaxConsecutiveWins, wins)
		r.MaxConsecutiveLosses = max(r.MaxConsecutiveLosses, losses)

		cumulative = cumulative.Add(net)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if dd := peak.Sub(cumulative); dd.GreaterThan(r.MaxDrawdown) {
			r.MaxDrawdown = dd
		}
		returns = append(returns, net.InexactFloat64())
		holding += endTime(s).Sub(s.CreatedTime)

		var hedged, averaged bool
		for _, o := range s.Orders {
			switch {
			case o.Purpose == trade.HedgeOpen:
				hedged = true
			case o.Purpose == trade.AveragingOpen:
				averaged = true
			case o.Purpose.IsClosing():
				r.ClosesByPurpose[string(o.Purpose)]++
			}
		}
		if hedged {
			r.HedgedSessions++
		}
		if averaged {
			r.AveragedSessions++
		}
	}

	r.NetPnL = r.TotalPnL.Sub(r.TotalCommission)
	if decided := r.WinningSessions + r.LosingSessions; decided > 0 {
		r.WinRate = float64(r.WinningSessions) / float64(decided) * 100
	}
	if r.WinningSessions > 0 {
		r.AverageProfit = grossProfit.Div(decimal.NewFromInt(int64(r.WinningSessions)))
	}
	if r.LosingSessions > 0 {
		r.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(r.LosingSessions)))
	}
	if r.AverageLoss.IsPositive() {
		r.RiskRewardRatio = r.AverageProfit.Div(r.AverageLoss).InexactFloat64()
	}
	if grossLoss.IsPositive() {
		r.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	} else if grossProfit.IsPositive() {
		r.ProfitFactor = math.Inf(1)
	}
	r.SharpeRatio = calculateSharpeRatio(returns, 0)
	r.SortinoRatio = calculateSortinoRatio(returns, 0)
	r.AverageHoldingPeriodSeconds = holding.Seconds() / float64(len(done))
	return r, nil
}

func endTime(s *trade.Session) time.Time {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return s.CreatedTime
}

func calculateStandardDeviation(returns []float64, mean float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-mean, 2)
	}
	return math.Sqrt(variance / float64(len(returns)))
}

func calculateDownsideDeviation(returns []float64, target float64) float64 {
	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < target {
			downsideVariance += math.Pow(r-target, 2)
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0.0
	}
	return math.Sqrt(downsideVariance / float64(downsideCount))
}

func mean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// calculateSharpeRatio returns the per-session Sharpe ratio.
func calculateSharpeRatio(returns []float64, riskFreeRate float64) float64 {
	m := mean(returns)
	stdDev := calculateStandardDeviation(returns, m)
	if stdDev == 0 {
		return 0.0
	}
	return (m - riskFreeRate) / stdDev
}

// calculateSortinoRatio returns the per-session Sortino ratio against a zero target.
func calculateSortinoRatio(returns []float64, riskFreeRate float64) float64 {
	m := mean(returns)
	downsideDev := calculateDownsideDeviation(returns, 0)
	if downsideDev == 0 {
		return 0.0
	}
	return (m - riskFreeRate) / downsideDev
}

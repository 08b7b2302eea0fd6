package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/hedge-guard-bot/internal/store"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fill(id string, p trade.Purpose, d trade.Direction, price int64, parent string, at time.Time) *trade.Order {
	return &trade.Order{
		ID: id, Purpose: p, Direction: d, Status: trade.StatusFilled,
		Price: decimal.NewFromInt(price), Count: decimal.NewFromInt(1), ParentOrderID: parent, CreatedTime: at,
	}
}

// completed builds a finished long session; hedge adds a hedge leg closed before the main leg.
func completed(t *testing.T, id string, start time.Time, exit int64, hedge bool) *trade.Session {
	t.Helper()
	s, err := trade.NewSession(id, "BTCUSDT", fill(id+"-m", trade.MainOpen, trade.Long, 100, "", start))
	require.NoError(t, err)
	s.CreatedTime = start
	if hedge {
		require.NoError(t, s.AddOrder(fill(id+"-h", trade.HedgeOpen, trade.Short, 99, "", start.Add(time.Minute))))
		require.NoError(t, s.AddOrder(fill(id+"-hc", trade.HedgeClose, trade.Short, 99, id+"-h", start.Add(2*time.Minute))))
	}
	require.NoError(t, s.AddOrder(fill(id+"-c", trade.MainClose, trade.Long, exit, id+"-m", start.Add(10*time.Minute))))
	require.Equal(t, trade.SessionCompleted, s.Status)
	end := start.Add(10 * time.Minute)
	s.EndTime = &end
	s.PnL = decimal.NewFromInt(exit - 100)
	return s
}

func TestAnalyzeSessions(t *testing.T) {
	sessions := []*trade.Session{
		completed(t, "a", t0, 110, false),
		completed(t, "b", t0.Add(time.Hour), 95, true),
		completed(t, "c", t0.Add(2*time.Hour), 90, false),
		completed(t, "d", t0.Add(3*time.Hour), 120, false),
	}

	r, err := AnalyzeSessions(sessions)
	require.NoError(t, err)

	assert.Equal(t, 4, r.TotalSessions)
	assert.Equal(t, 2, r.WinningSessions)
	assert.Equal(t, 2, r.LosingSessions)
	assert.Equal(t, 2, r.LongWinningSessions)
	assert.Equal(t, 2, r.MaxConsecutiveLosses)
	assert.Equal(t, 1, r.HedgedSessions)
	assert.Equal(t, "15.00", r.TotalPnL.StringFixed(2))
	assert.Equal(t, "15.00", r.MaxDrawdown.StringFixed(2))
	assert.Equal(t, "15.00", r.AverageProfit.StringFixed(2))
	assert.Equal(t, "7.50", r.AverageLoss.StringFixed(2))
	assert.InDelta(t, 2.0, r.ProfitFactor, 1e-9)
	assert.InDelta(t, 50.0, r.WinRate, 1e-9)
	assert.InDelta(t, 600.0, r.AverageHoldingPeriodSeconds, 1e-9)
	assert.Equal(t, map[string]int{"MAIN_CLOSE": 4, "HEDGE_CLOSE": 1}, r.ClosesByPurpose)
	assert.Equal(t, t0, r.StartDate)
}

func TestAnalyzeSessions_NothingCompleted(t *testing.T) {
	s, err := trade.NewSession("open", "BTCUSDT", fill("m", trade.MainOpen, trade.Long, 100, "", t0))
	require.NoError(t, err)

	_, err = AnalyzeSessions([]*trade.Session{s})
	assert.ErrorIs(t, err, ErrNoCompletedSessions)
}

func TestService_Generate(t *testing.T) {
	st := store.NewInMemStore()
	st.Seed(completed(t, "a", t0, 110, false), completed(t, "b", t0.Add(time.Hour), 95, false))

	r, err := NewService(st).Generate(context.Background(), t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalSessions)
	assert.Equal(t, "-5.00", r.TotalPnL.StringFixed(2))
}

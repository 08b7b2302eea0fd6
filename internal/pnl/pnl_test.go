package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPercent(t *testing.T) {
	testCases := []struct {
		name      string
		direction trade.Direction
		entry     string
		current   string
		want      string
	}{
		{"long gain", trade.Long, "50000", "50075", "0.15"},
		{"long loss", trade.Long, "50000", "49750", "-0.5"},
		{"short gain", trade.Short, "50000", "49750", "0.5"},
		{"short loss", trade.Short, "50000", "50125", "-0.25"},
		{"flat", trade.Long, "50000", "50000", "0"},
		// 1/3 = 0.333333333... rounds to 0.33333333
		{"rounds down", trade.Long, "3", "4", "33.333333"},
		// 2/3 = 0.666666666... rounds half-up to 0.66666667
		{"rounds up", trade.Long, "3", "5", "66.666667"},
		// -2/3 rounds away from zero
		{"short rounds away from zero", trade.Short, "3", "5", "-66.666667"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Percent(tc.direction, d(tc.entry), d(tc.current))
			require.NoError(t, err)
			assert.True(t, d(tc.want).Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestPercent_Guards(t *testing.T) {
	_, err := Percent(trade.Long, decimal.Zero, d("1"))
	assert.ErrorIs(t, err, ErrZeroEntry)

	_, err = Percent(trade.Long, d("1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestRealizedAndCalculator(t *testing.T) {
	assert.True(t, d("1").Equal(Realized(trade.Long, d("100"), d("110"), d("0.1"))))
	assert.True(t, d("-1").Equal(Realized(trade.Short, d("100"), d("110"), d("0.1"))))

	c := NewCalculator()
	c.Add(d("1.5"), d("0.1"))
	c.Add(d("-0.5"), d("0.1"))
	realized, fee := c.Totals()
	assert.True(t, d("1").Equal(realized))
	assert.True(t, d("0.2").Equal(fee))
}

// Package pnl computes leg profit and loss.
package pnl

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Scale is the number of fractional digits kept before converting to percent.
const Scale = 8

var (
	// ErrZeroEntry is returned when the entry price is zero.
	ErrZeroEntry = errors.New("entry price is zero")
	// ErrInvalidPrice is returned when the current price is missing or non-positive.
	ErrInvalidPrice = errors.New("current price is not positive")
)

var hundred = decimal.NewFromInt(100)

// Percent returns the direction-aware PnL of a leg in percent.
// The ratio is rounded half-up to Scale digits before scaling by 100.
func Percent(d trade.Direction, entry, current decimal.Decimal) (decimal.Decimal, error) {
	if entry.IsZero() {
		return decimal.Zero, ErrZeroEntry
	}
	if !current.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	diff := current.Sub(entry)
	if d == trade.Short {
		diff = entry.Sub(current)
	}
	return diff.DivRound(entry, Scale).Mul(hundred), nil
}

// Realized returns the quote-currency PnL of closing count units opened at entry.
func Realized(d trade.Direction, entry, exit, count decimal.Decimal) decimal.Decimal {
	diff := exit.Sub(entry)
	if d == trade.Short {
		diff = entry.Sub(exit)
	}
	return diff.Mul(count)
}

// Calculator accumulates realized PnL and commission.
type Calculator struct {
	realized   decimal.Decimal
	commission decimal.Decimal
	mutex      sync.RWMutex
}

// NewCalculator creates a new PnL Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Add books one realized result and its commission.
func (c *Calculator) Add(realized, commission decimal.Decimal) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.realized = c.realized.Add(realized)
	c.commission = c.commission.Add(commission)
}

// Totals returns the realized PnL and commission booked so far.
func (c *Calculator) Totals() (decimal.Decimal, decimal.Decimal) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.realized, c.commission
}

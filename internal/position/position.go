// Package position tracks the size and weighted entry of one leg.
package position

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/trade"
)

// Position holds the state of a trading position. Size is signed: long positive, short negative.
type Position struct {
	Size          decimal.Decimal
	AvgEntryPrice decimal.Decimal
	mutex         sync.RWMutex
}

// NewPosition creates a new Position instance.
func NewPosition() *Position {
	return &Position{}
}

// FromChain rebuilds the open position of a leg from its opening orders.
func FromChain(orders []*trade.Order) *Position {
	p := NewPosition()
	for _, o := range orders {
		if !o.Filled() || !o.Purpose.IsOpening() {
			continue
		}
		size := o.Count
		if o.Direction == trade.Short {
			size = size.Neg()
		}
		p.Update(size, o.Price)
	}
	return p
}

// Update updates the position based on a trade and returns the realized PnL.
func (p *Position) Update(tradeSize, tradePrice decimal.Decimal) (realizedPnL decimal.Decimal) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// If there is no existing position, the trade simply opens a new one.
	if p.Size.IsZero() {
		p.Size = tradeSize
		p.AvgEntryPrice = tradePrice
		return decimal.Zero
	}

	// Same direction adds to the position at a weighted entry.
	if p.Size.Sign() == tradeSize.Sign() {
		currentValue := p.Size.Mul(p.AvgEntryPrice)
		tradeValue := tradeSize.Mul(tradePrice)
		newSize := p.Size.Add(tradeSize)
		p.AvgEntryPrice = currentValue.Add(tradeValue).Div(newSize)
		p.Size = newSize
		return decimal.Zero
	}

	// Opposite direction reduces or closes the position.
	closedSize := decimal.Min(tradeSize.Abs(), p.Size.Abs())
	realizedPnL = tradePrice.Sub(p.AvgEntryPrice).Mul(closedSize)
	if p.Size.IsNegative() {
		realizedPnL = realizedPnL.Neg()
	}

	newSize := p.Size.Add(tradeSize)
	if newSize.IsZero() {
		p.AvgEntryPrice = decimal.Zero
	} else if newSize.Sign() != p.Size.Sign() {
		// flipped through zero: the remainder opens at the trade price
		p.AvgEntryPrice = tradePrice
	}
	p.Size = newSize

	return realizedPnL
}

// Get returns the current size and average entry price of the position.
func (p *Position) Get() (decimal.Decimal, decimal.Decimal) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.Size, p.AvgEntryPrice
}

// String returns a string representation of the position.
func (p *Position) String() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return fmt.Sprintf("Position{Size: %s, AvgEntryPrice: %s}", p.Size.StringFixed(4), p.AvgEntryPrice.StringFixed(2))
}

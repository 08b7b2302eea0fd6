// Package price provides the latest trade price per symbol.
package price

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Oracle returns the latest usable price for a symbol. ok is false when no fresh price is known.
type Oracle interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Quote is one price observation.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Time   time.Time
}

// Cache keeps the latest quote per symbol and hides quotes older than maxAge.
type Cache struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewCache creates a Cache. A zero maxAge disables the staleness check.
func NewCache(maxAge time.Duration) *Cache {
	return &Cache{
		maxAge: maxAge,
		now:    time.Now,
		quotes: make(map[string]Quote),
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Update stores q if it is newer than the quote already held.
func (c *Cache) Update(q Quote) {
	if !q.Price.IsPositive() {
		return
	}
	key := normalize(q.Symbol)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.quotes[key]; ok && q.Time.Before(cur.Time) {
		return
	}
	c.quotes[key] = q
}

// Price implements Oracle.
func (c *Cache) Price(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	q, ok := c.quotes[normalize(symbol)]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	if c.maxAge > 0 && c.now().Sub(q.Time) > c.maxAge {
		return decimal.Zero, false
	}
	return q.Price, true
}

// Last returns the latest quote regardless of age.
func (c *Cache) Last(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[normalize(symbol)]
	return q, ok
}

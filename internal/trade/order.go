package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidOrder is returned when an order violates the model invariants.
var ErrInvalidOrder = errors.New("invalid order")

// Order is one exchange fill record.
type Order struct {
	ID             string          `json:"orderId"`
	Purpose        Purpose         `json:"purpose"`
	Direction      Direction       `json:"direction"`
	Status         OrderStatus     `json:"status"`
	Price          decimal.Decimal `json:"price"`
	Count          decimal.Decimal `json:"count"`
	Commission     decimal.Decimal `json:"commission"`
	ParentOrderID  string          `json:"parentOrderId,omitempty"`
	RelatedHedgeID string          `json:"relatedHedgeId,omitempty"`
	CreatedTime    time.Time       `json:"createdTime"`

	// Trailing stop state, mutated in place by the trailing evaluator only.
	PnlHigh        decimal.NullDecimal `json:"pnlHigh"`
	TrailingActive bool                `json:"trailingActive"`

	// Legacy baseline tracking, kept for stored sessions written by older engines.
	BasePnl      decimal.NullDecimal `json:"basePnl"`
	MaxChangePnl decimal.NullDecimal `json:"maxChangePnl"`
}

// Filled reports whether the order is a completed fill.
func (o *Order) Filled() bool {
	return o != nil && o.Status == StatusFilled
}

// Validate checks the identity, tagging and parent-link invariants.
func (o *Order) Validate() error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	case o.ID == "":
		return fmt.Errorf("%w: missing order id", ErrInvalidOrder)
	case !o.Purpose.Valid():
		return fmt.Errorf("%w: order %s has unknown purpose %q", ErrInvalidOrder, o.ID, o.Purpose)
	case !o.Direction.Valid():
		return fmt.Errorf("%w: order %s has unknown direction %q", ErrInvalidOrder, o.ID, o.Direction)
	case !o.Price.IsPositive():
		return fmt.Errorf("%w: order %s has non-positive price %s", ErrInvalidOrder, o.ID, o.Price)
	}
	if o.Purpose.RequiresParent() && o.ParentOrderID == "" {
		return fmt.Errorf("%w: %s order %s requires a parent order", ErrInvalidOrder, o.Purpose, o.ID)
	}
	if !o.Purpose.RequiresParent() && o.ParentOrderID != "" {
		return fmt.Errorf("%w: %s order %s must not reference a parent", ErrInvalidOrder, o.Purpose, o.ID)
	}
	return nil
}

// Clone returns a copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// String returns a short description for logs.
func (o *Order) String() string {
	if o == nil {
		return "Order{nil}"
	}
	return fmt.Sprintf("Order{%s %s %s @%s x%s parent=%s}", o.ID, o.Purpose, o.Direction, o.Price, o.Count, o.ParentOrderID)
}

// Package trade holds the order and session model of a hedged trading episode
// together with the resolver that derives the live legs from the order history.
package trade

import "fmt"

// Direction is the side of a leg.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Directions lists both sides in a stable order.
var Directions = [...]Direction{Long, Short}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Valid reports whether d is LONG or SHORT.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Purpose tags what an order does to the session.
type Purpose string

const (
	MainOpen          Purpose = "MAIN_OPEN"
	MainClose         Purpose = "MAIN_CLOSE"
	MainPartialClose  Purpose = "MAIN_PARTIAL_CLOSE"
	HedgeOpen         Purpose = "HEDGE_OPEN"
	HedgeClose        Purpose = "HEDGE_CLOSE"
	HedgePartialClose Purpose = "HEDGE_PARTIAL_CLOSE"
	AveragingOpen     Purpose = "AVERAGING_OPEN"
	AveragingClose    Purpose = "AVERAGING_CLOSE"
)

// purposeKind classifies every known purpose. A purpose missing here is unknown.
var purposeKind = map[Purpose]struct {
	opening   bool
	averaging bool
	partial   bool
}{
	MainOpen:          {opening: true},
	HedgeOpen:         {opening: true},
	AveragingOpen:     {opening: true, averaging: true},
	MainClose:         {},
	MainPartialClose:  {partial: true},
	HedgeClose:        {},
	HedgePartialClose: {partial: true},
	AveragingClose:    {averaging: true},
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	_, ok := purposeKind[p]
	return ok
}

// IsOpening is true for purposes that open or extend a leg.
func (p Purpose) IsOpening() bool { return purposeKind[p].opening }

// IsClosing is true for purposes that close or reduce a leg.
func (p Purpose) IsClosing() bool { return p.Valid() && !p.IsOpening() }

// IsAveraging is true for AVERAGING_OPEN and AVERAGING_CLOSE.
func (p Purpose) IsAveraging() bool { return purposeKind[p].averaging }

// IsPartial is true for partial-close purposes. They reduce quantity but never close a leg.
func (p Purpose) IsPartial() bool { return purposeKind[p].partial }

// RequiresParent reports whether an order of this purpose must reference a parent order.
func (p Purpose) RequiresParent() bool {
	return p.IsClosing() || p == AveragingOpen
}

// ClosePurpose maps an opening purpose to the purpose of the order that fully closes it.
// The second return value is false when p has no close counterpart.
func (p Purpose) ClosePurpose() (Purpose, bool) {
	switch p {
	case MainOpen:
		return MainClose, true
	case HedgeOpen:
		return HedgeClose, true
	case AveragingOpen:
		return AveragingClose, true
	case MainClose, MainPartialClose, HedgeClose, HedgePartialClose, AveragingClose:
		return "", false
	default:
		return "", false
	}
}

// closesRoot reports whether a filled order of purpose c fully closes a chain rooted at an
// opening order of purpose root.
func closesRoot(root, c Purpose) bool {
	switch root {
	case MainOpen:
		return c == MainClose
	case HedgeOpen:
		return c == HedgeClose
	default:
		return false
	}
}

// OrderStatus is the exchange state of an order.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Mode labels the session's current regime. POST_CLOSE and FORCING only tag close actions.
type Mode string

const (
	ModeScalping  Mode = "SCALPING"
	ModeHedging   Mode = "HEDGING"
	ModePostClose Mode = "POST_CLOSE"
	ModeForcing   Mode = "FORCING"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

// ParseDirection converts a stored value into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

// ParsePurpose converts a stored value into a Purpose.
func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown purpose %q", s)
	}
	return p, nil
}

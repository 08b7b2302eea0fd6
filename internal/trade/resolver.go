package trade

// chainRoot follows parent links from an opening order through AVERAGING_OPEN records
// back to the MAIN_OPEN or HEDGE_OPEN that started the leg. It returns nil when the chain
// is broken or cyclic.
func chainRoot(s *Session, o *Order) *Order {
	seen := make(map[string]struct{}, 4)
	cur := o
	for cur != nil {
		if _, ok := seen[cur.ID]; ok {
			return nil
		}
		seen[cur.ID] = struct{}{}
		if cur.Purpose != AveragingOpen {
			return cur
		}
		cur = s.FindOrder(cur.ParentOrderID)
	}
	return nil
}

// chainContains reports whether walking parent links from id through AVERAGING_OPEN
// records reaches target.
func chainContains(s *Session, id, target string) bool {
	seen := make(map[string]struct{}, 4)
	for id != "" {
		if id == target {
			return true
		}
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		o := s.FindOrder(id)
		if o == nil || o.Purpose != AveragingOpen {
			return false
		}
		id = o.ParentOrderID
	}
	return false
}

// IsOpenOrderClosed reports whether an opening order has been fully closed.
//
// MAIN_OPEN is closed by a filled MAIN_CLOSE parented to it, HEDGE_OPEN by a filled
// HEDGE_CLOSE. Either is also closed by a filled AVERAGING_CLOSE whose parent chain leads
// back to it. An AVERAGING_OPEN is closed by an AVERAGING_CLOSE covering it, or when the
// leg it extends was closed directly. Partial closes never close.
func IsOpenOrderClosed(s *Session, o *Order) bool {
	if s == nil || o == nil || !o.Purpose.IsOpening() {
		return false
	}
	for _, c := range s.Orders {
		if !c.Filled() || c.Purpose.IsPartial() {
			continue
		}
		switch {
		case c.Purpose == AveragingClose:
			if chainContains(s, c.ParentOrderID, o.ID) {
				return true
			}
		case c.Purpose.IsClosing():
			if c.ParentOrderID == o.ID && closesRoot(o.Purpose, c.Purpose) {
				return true
			}
		}
	}
	if o.Purpose == AveragingOpen {
		if root := chainRoot(s, o); root != nil && root != o {
			return IsOpenOrderClosed(s, root)
		}
	}
	return false
}

// openOrders returns the filled, unclosed opening orders of a direction in history order.
func openOrders(s *Session, d Direction) []*Order {
	var out []*Order
	for _, o := range s.Orders {
		if o.Direction != d || !o.Filled() || !o.Purpose.IsOpening() {
			continue
		}
		if !IsOpenOrderClosed(s, o) {
			out = append(out, o)
		}
	}
	return out
}

// LatestActiveOrderByDirection returns the reference order of a live leg: the most recent
// unclosed AVERAGING_OPEN if any, else the most recent unclosed MAIN_OPEN or HEDGE_OPEN.
func LatestActiveOrderByDirection(s *Session, d Direction) *Order {
	if s == nil {
		return nil
	}
	var latestOpen, latestAvg *Order
	for _, o := range openOrders(s, d) {
		if o.Purpose == AveragingOpen {
			latestAvg = o
		} else {
			latestOpen = o
		}
	}
	if latestAvg != nil {
		return latestAvg
	}
	return latestOpen
}

// IsDirectionActiveByOrders reports whether an unclosed opening order exists for d.
func IsDirectionActiveByOrders(s *Session, d Direction) bool {
	return s != nil && len(openOrders(s, d)) > 0
}

// CanOpenAverageByDirection is false while an averaging order of d is still open.
func CanOpenAverageByDirection(s *Session, d Direction) bool {
	if s == nil {
		return false
	}
	for _, o := range openOrders(s, d) {
		if o.Purpose == AveragingOpen {
			return false
		}
	}
	return true
}

// MainOrder returns the MAIN_OPEN in the session's original direction.
func MainOrder(s *Session) *Order {
	if s == nil {
		return nil
	}
	for _, o := range s.Orders {
		if o.Purpose == MainOpen && o.Direction == s.Direction {
			return o
		}
	}
	return nil
}

// IsMainStillActive reports whether the original main leg is unclosed and the session
// flag for its direction agrees.
func IsMainStillActive(s *Session) bool {
	main := MainOrder(s)
	if main == nil || !main.Filled() {
		return false
	}
	return !IsOpenOrderClosed(s, main) && s.IsActive(main.Direction)
}

// LatestFilledOpening returns the most recent filled opening order of d, closed or not.
func LatestFilledOpening(s *Session, d Direction) *Order {
	if s == nil {
		return nil
	}
	for i := len(s.Orders) - 1; i >= 0; i-- {
		o := s.Orders[i]
		if o.Direction == d && o.Filled() && o.Purpose.IsOpening() {
			return o
		}
	}
	return nil
}

// ActiveOrderForMonitoring picks the single order a tick should evaluate: the leg's order
// when one direction is active, the main order when both are, nil when flat.
func ActiveOrderForMonitoring(s *Session) *Order {
	if s == nil {
		return nil
	}
	long := IsDirectionActiveByOrders(s, Long)
	short := IsDirectionActiveByOrders(s, Short)
	switch {
	case long && short:
		if main := MainOrder(s); main != nil && !IsOpenOrderClosed(s, main) {
			return main
		}
		return LatestActiveOrderByDirection(s, s.Direction)
	case long:
		return LatestActiveOrderByDirection(s, Long)
	case short:
		return LatestActiveOrderByDirection(s, Short)
	default:
		return nil
	}
}

// ActiveDirections returns the directions that currently hold a live leg.
func ActiveDirections(s *Session) []Direction {
	var out []Direction
	for _, d := range Directions {
		if IsDirectionActiveByOrders(s, d) {
			out = append(out, d)
		}
	}
	return out
}

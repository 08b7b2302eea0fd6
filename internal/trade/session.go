package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateOrder is returned when an order id is already in the history.
	ErrDuplicateOrder = errors.New("duplicate order id")
	// ErrSessionCompleted is returned when appending to a frozen session.
	ErrSessionCompleted = errors.New("session completed")
)

// Session is one hedged trading episode.
type Session struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Direction   Direction       `json:"direction"`
	CurrentMode Mode            `json:"currentMode"`
	Status      SessionStatus   `json:"status"`
	Orders      []*Order        `json:"orders"`
	CreatedTime time.Time       `json:"createdTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	PnL         decimal.Decimal `json:"pnl"`
	Commission  decimal.Decimal `json:"commission"`

	ActiveLong         bool `json:"activeLong"`
	ActiveShort        bool `json:"activeShort"`
	ActiveAverageLong  bool `json:"activeAverageLong"`
	ActiveAverageShort bool `json:"activeAverageShort"`
}

// NewSession starts a session from its first MAIN_OPEN fill.
func NewSession(id, symbol string, first *Order) (*Session, error) {
	if err := first.Validate(); err != nil {
		return nil, err
	}
	if first.Purpose != MainOpen {
		return nil, fmt.Errorf("%w: session must start with %s, got %s", ErrInvalidOrder, MainOpen, first.Purpose)
	}
	created := first.CreatedTime
	if created.IsZero() {
		created = time.Now().UTC()
	}
	s := &Session{
		ID:          id,
		Symbol:      symbol,
		Direction:   first.Direction,
		CurrentMode: ModeScalping,
		Status:      SessionActive,
		CreatedTime: created,
	}
	if err := s.AddOrder(first); err != nil {
		return nil, err
	}
	return s, nil
}

// AddOrder appends a fill and recomputes the active flags and mode from the history.
// The session completes the first time no direction is left active.
func (s *Session) AddOrder(o *Order) error {
	if s.Status == SessionCompleted {
		return fmt.Errorf("%w: %s", ErrSessionCompleted, s.ID)
	}
	if err := o.Validate(); err != nil {
		return err
	}
	if s.FindOrder(o.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	if o.CreatedTime.IsZero() {
		o.CreatedTime = time.Now().UTC()
	}
	s.Orders = append(s.Orders, o)
	s.Refresh()

	if !s.ActiveLong && !s.ActiveShort && s.hasFilledOpening() {
		end := o.CreatedTime
		s.Status = SessionCompleted
		s.EndTime = &end
	}
	return nil
}

// Refresh recomputes the denormalized flags and mode without touching status.
func (s *Session) Refresh() {
	s.ActiveLong = IsDirectionActiveByOrders(s, Long)
	s.ActiveShort = IsDirectionActiveByOrders(s, Short)
	s.ActiveAverageLong = !CanOpenAverageByDirection(s, Long)
	s.ActiveAverageShort = !CanOpenAverageByDirection(s, Short)
	if s.ActiveLong && s.ActiveShort {
		s.CurrentMode = ModeHedging
	} else {
		s.CurrentMode = ModeScalping
	}
}

func (s *Session) hasFilledOpening() bool {
	for _, o := range s.Orders {
		if o.Filled() && o.Purpose.IsOpening() {
			return true
		}
	}
	return false
}

// HasBothPositionsActive reports whether the session currently holds two legs.
func (s *Session) HasBothPositionsActive() bool {
	return s.ActiveLong && s.ActiveShort
}

// IsActive reports the denormalized flag for a direction.
func (s *Session) IsActive(d Direction) bool {
	if d == Long {
		return s.ActiveLong
	}
	return s.ActiveShort
}

// IsAverageActive reports the averaging guard flag for a direction.
func (s *Session) IsAverageActive(d Direction) bool {
	if d == Long {
		return s.ActiveAverageLong
	}
	return s.ActiveAverageShort
}

// MarkAverageActive sets the averaging guard flag ahead of the fill arriving.
func (s *Session) MarkAverageActive(d Direction) {
	if d == Long {
		s.ActiveAverageLong = true
	} else {
		s.ActiveAverageShort = true
	}
}

// FindOrder returns the order with the given id, or nil.
func (s *Session) FindOrder(id string) *Order {
	if id == "" {
		return nil
	}
	for _, o := range s.Orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Orders = make([]*Order, len(s.Orders))
	for i, o := range s.Orders {
		c.Orders[i] = o.Clone()
	}
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	return &c
}

// Package engine defines the execution gateway the decision engine submits through.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/hedge-guard-bot/internal/config"
	"github.com/your-org/hedge-guard-bot/internal/pnl"
	"github.com/your-org/hedge-guard-bot/internal/position"
	"github.com/your-org/hedge-guard-bot/internal/trade"
	"github.com/your-org/hedge-guard-bot/pkg/logger"
)

// OpenRequest asks the gateway to open or extend a leg.
type OpenRequest struct {
	Mode           trade.Mode
	Direction      trade.Direction
	Purpose        trade.Purpose
	Price          decimal.Decimal
	Reason         string
	ParentOrderID  string
	RelatedHedgeID string
}

// CloseRequest asks the gateway to close the leg anchored at OrderID.
type CloseRequest struct {
	Mode           trade.Mode
	OrderID        string
	RelatedHedgeID string
	Direction      trade.Direction
	Purpose        trade.Purpose
	Price          decimal.Decimal
	Reason         string
}

// Gateway submits orders and returns the session as updated by the fill.
// A nil session with a nil error means the request was accepted but nothing changed yet.
type Gateway interface {
	OpenPosition(ctx context.Context, s *trade.Session, req OpenRequest) (*trade.Session, error)
	ClosePosition(ctx context.Context, s *trade.Session, req CloseRequest) (*trade.Session, error)
}

// ErrRejected is returned when a request fails basic validation before submission.
var ErrRejected = errors.New("request rejected")

func (r OpenRequest) validate() error {
	switch {
	case !r.Direction.Valid():
		return fmt.Errorf("%w: open direction %q", ErrRejected, r.Direction)
	case !r.Purpose.IsOpening() || r.Purpose == trade.MainOpen:
		return fmt.Errorf("%w: open purpose %q", ErrRejected, r.Purpose)
	case !r.Price.IsPositive():
		return fmt.Errorf("%w: open price %s", ErrRejected, r.Price)
	case r.ParentOrderID == "":
		return fmt.Errorf("%w: %s without parent order", ErrRejected, r.Purpose)
	}
	return nil
}

func (r CloseRequest) validate() error {
	switch {
	case r.OrderID == "":
		return fmt.Errorf("%w: close without order id", ErrRejected)
	case !r.Direction.Valid():
		return fmt.Errorf("%w: close direction %q", ErrRejected, r.Direction)
	case !r.Purpose.IsClosing():
		return fmt.Errorf("%w: close purpose %q", ErrRejected, r.Purpose)
	case !r.Price.IsPositive():
		return fmt.Errorf("%w: close price %s", ErrRejected, r.Price)
	}
	return nil
}

// PaperGateway simulates immediate fills at the requested price.
type PaperGateway struct {
	count   decimal.Decimal
	feeRate decimal.Decimal
	ledger  *pnl.Calculator
	now     func() time.Time
}

// NewPaperGateway creates a PaperGateway.
func NewPaperGateway(cfg config.PaperConfig) *PaperGateway {
	return &PaperGateway{
		count:   decimal.NewFromFloat(cfg.Count),
		feeRate: decimal.NewFromFloat(cfg.FeeRate),
		ledger:  pnl.NewCalculator(),
		now:     time.Now,
	}
}

// Totals returns the realized PnL and commission booked across all sessions.
func (g *PaperGateway) Totals() (decimal.Decimal, decimal.Decimal) {
	return g.ledger.Totals()
}

func (g *PaperGateway) newOrder(purpose trade.Purpose, d trade.Direction, price, count decimal.Decimal) (*trade.Order, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate paper order id: %w", err)
	}
	return &trade.Order{
		ID:          id.String(),
		Purpose:     purpose,
		Direction:   d,
		Status:      trade.StatusFilled,
		Price:       price,
		Count:       count,
		Commission:  price.Mul(count).Mul(g.feeRate),
		CreatedTime: g.now().UTC(),
	}, nil
}

// OpenPosition simulates opening a hedge or averaging order.
// A HEDGE_OPEN keeps its anchor in RelatedHedgeID because opening legs carry no parent.
func (g *PaperGateway) OpenPosition(ctx context.Context, s *trade.Session, req OpenRequest) (*trade.Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	anchor := s.FindOrder(req.ParentOrderID)
	if anchor == nil {
		return nil, fmt.Errorf("%w: parent order %s not in session %s", ErrRejected, req.ParentOrderID, s.ID)
	}

	o, err := g.newOrder(req.Purpose, req.Direction, req.Price, g.count)
	if err != nil {
		return nil, err
	}
	switch req.Purpose {
	case trade.AveragingOpen:
		o.ParentOrderID = req.ParentOrderID
		o.Count = anchor.Count
		o.RelatedHedgeID = req.RelatedHedgeID
	case trade.HedgeOpen:
		o.Count = anchor.Count
		o.RelatedHedgeID = req.ParentOrderID
	}

	next := s.Clone()
	if err := next.AddOrder(o); err != nil {
		return nil, fmt.Errorf("failed to append paper fill: %w", err)
	}
	next.Commission = next.Commission.Add(o.Commission)
	g.ledger.Add(decimal.Zero, o.Commission)

	logger.Infof("[Paper] %s %s %s @%s x%s session=%s reason=%q", req.Mode, req.Purpose, req.Direction, req.Price, o.Count, s.ID, req.Reason)
	return next, nil
}

// ClosePosition simulates closing the chain anchored at req.OrderID.
func (g *PaperGateway) ClosePosition(ctx context.Context, s *trade.Session, req CloseRequest) (*trade.Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	target := s.FindOrder(req.OrderID)
	if target == nil {
		return nil, fmt.Errorf("%w: order %s not in session %s", ErrRejected, req.OrderID, s.ID)
	}
	if trade.IsOpenOrderClosed(s, target) {
		return nil, fmt.Errorf("%w: order %s already closed", ErrRejected, req.OrderID)
	}

	chain := legChain(s, target)
	pos := position.FromChain(chain)
	size, _ := pos.Get()
	realized := pos.Update(size.Neg(), req.Price)

	o, err := g.newOrder(req.Purpose, req.Direction, req.Price, size.Abs())
	if err != nil {
		return nil, err
	}
	o.ParentOrderID = req.OrderID
	o.RelatedHedgeID = req.RelatedHedgeID

	next := s.Clone()
	if err := next.AddOrder(o); err != nil {
		return nil, fmt.Errorf("failed to append paper fill: %w", err)
	}
	next.PnL = next.PnL.Add(realized)
	next.Commission = next.Commission.Add(o.Commission)
	g.ledger.Add(realized, o.Commission)

	logger.Infof("[Paper] %s %s %s @%s x%s realized=%s session=%s reason=%q",
		req.Mode, req.Purpose, req.Direction, req.Price, o.Count, realized.StringFixed(4), s.ID, req.Reason)
	return next, nil
}

// legChain returns the unclosed opening orders that make up target's leg.
func legChain(s *trade.Session, target *trade.Order) []*trade.Order {
	var out []*trade.Order
	for _, o := range s.Orders {
		if o.Direction != target.Direction || !o.Filled() || !o.Purpose.IsOpening() {
			continue
		}
		if trade.IsOpenOrderClosed(s, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Package order holds the order type and its status state machine.
package order

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
)

var (
	ErrInvalidQuantity = errors.New("order quantity must be positive")
	ErrInvalidRequest  = errors.New("invalid order request")
)

// Request is what a strategy submits. Quantity is the unsigned number of
// strategy units; the order signs it by Action.
type Request struct {
	Strategy   *options.Strategy
	Action     Action
	Quantity   int
	Type       Type
	TIF        TIF
	LimitPrice float64
}

func (r Request) Validate() error {
	if err := r.validateShape(); err != nil {
		return err
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity %d: %w", r.Quantity, ErrInvalidQuantity)
	}
	return nil
}

func (r Request) validateShape() error {
	if r.Strategy == nil || len(r.Strategy.Legs) == 0 {
		return fmt.Errorf("%w: strategy is required", ErrInvalidRequest)
	}
	if r.Action != Buy && r.Action != Sell {
		return fmt.Errorf("%w: action %v", ErrInvalidRequest, r.Action)
	}
	if r.Type == Limit && r.LimitPrice <= 0 {
		return fmt.Errorf("%w: limit order needs a positive limit price", ErrInvalidRequest)
	}
	return nil
}

type Order struct {
	Ticket     Ticket
	Date       time.Time
	Strategy   *options.Strategy
	Action     Action
	Quantity   int // signed: negative for sells
	Type       Type
	TIF        TIF
	LimitPrice float64

	Mark          float64
	Commissions   float64
	Margin        float64
	TotalCost     float64
	ExecutedPrice float64
	ExecutedDate  time.Time

	status Status
}

// New creates a CREATED order. The strategy is cloned so later quote
// updates on the order do not leak into the caller's copy.
func New(ticket Ticket, date time.Time, req Request) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return newOrder(ticket, date, req), nil
}

// NewUnsized creates a CREATED order with zero quantity for a request the
// sizer could not afford a single unit of. The broker rejects it.
func NewUnsized(ticket Ticket, date time.Time, req Request) (*Order, error) {
	if err := req.validateShape(); err != nil {
		return nil, err
	}
	req.Quantity = 0
	return newOrder(ticket, date, req), nil
}

func newOrder(ticket Ticket, date time.Time, req Request) *Order {
	o := &Order{
		Ticket:     ticket,
		Date:       market.Day(date),
		Strategy:   req.Strategy.Clone(),
		Action:     req.Action,
		Quantity:   req.Quantity * req.Action.Sign(),
		Type:       req.Type,
		TIF:        req.TIF,
		LimitPrice: req.LimitPrice,
		status:     Created,
	}
	o.reprice()
	return o
}

func (o *Order) Status() Status { return o.status }

func (o *Order) Working() bool { return o.status == Working }

// Transition moves the order along its state machine.
func (o *Order) Transition(to Status) error {
	if !o.status.CanTransition(to) {
		return fmt.Errorf("order %v %s -> %s: %w", o.Ticket, o.status, to, ErrInvalidTransition)
	}
	o.status = to
	return nil
}

// SetCosts records the broker's commission and margin figures and
// recomputes the total cost.
func (o *Order) SetCosts(commissions, margin float64) {
	o.Commissions = commissions
	o.Margin = math.Abs(margin)
	o.reprice()
}

// Update refreshes the strategy legs and the mark from a new chain.
func (o *Order) Update(c *market.Chain) error {
	if err := o.Strategy.Update(c); err != nil {
		return fmt.Errorf("order %v: %w", o.Ticket, err)
	}
	o.reprice()
	return nil
}

func (o *Order) reprice() {
	o.Mark = o.Strategy.Mark()
	o.TotalCost = o.Mark*float64(o.Quantity)*market.Multiplier + o.Commissions
}

// Executable reports whether current market conditions allow a fill.
func (o *Order) Executable() bool {
	if o.Type == Market {
		return true
	}
	if o.Action == Buy {
		return o.LimitPrice >= o.Mark
	}
	return o.LimitPrice <= o.Mark
}

// Fill moves a WORKING order to FILLED at the current mark.
func (o *Order) Fill(date time.Time) error {
	if err := o.Transition(Filled); err != nil {
		return err
	}
	o.ExecutedPrice = o.Mark
	o.ExecutedDate = market.Day(date)
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("%v %s %s %d %s %s mark=%.2f cost=%.2f margin=%.2f",
		o.Ticket, o.status, o.Action, o.Quantity, o.Type, o.Strategy.Symbol,
		o.Mark, o.TotalCost, o.Margin)
}

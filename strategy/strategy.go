// Package strategy defines the callbacks a backtested strategy implements
// and the trading surface it is handed.
package strategy

import (
	"time"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

// Trader is what a strategy may do to the simulation. Calls are only valid
// from inside a callback.
type Trader interface {
	// PlaceOrder submits an order and returns its ticket. A zero
	// Quantity is filled in by the configured sizer. The order reaches
	// the broker through the event queue, so admission is reported later
	// through OnFill or OnRejected.
	PlaceOrder(req order.Request) (order.Ticket, error)
	Cancel(ticket order.Ticket) error

	SetCash(amount float64) error
	Source(symbol string) error

	Date() time.Time
	Account() account.Snapshot
	Positions() []*account.Position
	PositionsTotal() int
	Working() []*order.Order
}

// Strategy receives the simulation's notifications. Returning an error
// aborts the run.
type Strategy interface {
	Name() string
	Init(t Trader) error
	OnData(t Trader, snap market.Snapshot) error
	OnFill(t Trader, o *order.Order) error
	OnRejected(t Trader, o *order.Order) error
	OnExpired(t Trader, o *order.Order) error
}

// Base implements every callback as a no-op. Embed it and override what
// is needed.
type Base struct{}

func (Base) Init(Trader) error                     { return nil }
func (Base) OnData(Trader, market.Snapshot) error  { return nil }
func (Base) OnFill(Trader, *order.Order) error     { return nil }
func (Base) OnRejected(Trader, *order.Order) error { return nil }
func (Base) OnExpired(Trader, *order.Order) error  { return nil }

// Holding reports whether the trader already has a position or a working
// order on the strategy symbol.
func Holding(t Trader, s *options.Strategy) bool {
	for _, p := range t.Positions() {
		if p.Symbol() == s.Symbol {
			return true
		}
	}
	for _, o := range t.Working() {
		if o.Strategy.Symbol == s.Symbol {
			return true
		}
	}
	return false
}

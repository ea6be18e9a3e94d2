package account

import (
	"fmt"
	"time"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

// Position is one held strategy, keyed by its symbol.
type Position struct {
	Strategy   *options.Strategy
	Quantity   int
	TradePrice float64
	Opened     time.Time
	Ticket     order.Ticket // order that opened the position

	Mark                float64
	OpenPL              float64
	NetLiquidatingValue float64

	// Margin is the buying power held against the position.
	Margin float64
}

// NewPosition opens a position from a filled order.
func NewPosition(o *order.Order) *Position {
	p := &Position{
		Strategy:   o.Strategy.Clone(),
		Quantity:   o.Quantity,
		TradePrice: o.ExecutedPrice,
		Opened:     o.ExecutedDate,
		Ticket:     o.Ticket,
		Margin:     o.Margin,
	}
	p.revalue(o.ExecutedPrice)
	return p
}

func (p *Position) Symbol() string { return p.Strategy.Symbol }

func (p *Position) Expiration() time.Time { return p.Strategy.Expiration() }

// Same reports whether both positions hold the same contract.
func (p *Position) Same(other *Position) bool {
	return other != nil && p.Symbol() == other.Symbol()
}

// Update marks the position from a fresh chain. A missing leg is a data
// integrity error.
func (p *Position) Update(c *market.Chain) error {
	if err := p.Strategy.Update(c); err != nil {
		return fmt.Errorf("position %s: %w", p.Symbol(), err)
	}
	p.revalue(p.Strategy.Mark())
	return nil
}

func (p *Position) revalue(mark float64) {
	p.Mark = mark
	p.NetLiquidatingValue = mark * float64(p.Quantity) * market.Multiplier
	p.OpenPL = (mark - p.TradePrice) * float64(p.Quantity) * market.Multiplier
}

// merge folds a filled order on the same symbol into the position and
// returns the buying power that is no longer needed.
func (p *Position) merge(o *order.Order) (released float64) {
	old := p.Quantity
	next := old + o.Quantity

	switch {
	case sameSign(old, o.Quantity):
		// adding: average the entry price
		p.TradePrice = (p.TradePrice*float64(abs(old)) + o.ExecutedPrice*float64(abs(o.Quantity))) /
			float64(abs(next))
		p.Margin += o.Margin
	case next == 0:
		released = p.Margin + o.Margin
		p.Margin = 0
	case sameSign(old, next):
		// reducing: release the offset share, the entry price stays
		share := p.Margin * float64(abs(o.Quantity)) / float64(abs(old))
		released = share + o.Margin
		p.Margin -= share
	default:
		// flipped through zero: the remainder is a new position at the fill
		// and keeps only its share of the order's margin
		kept := o.Margin * float64(abs(next)) / float64(abs(o.Quantity))
		released = p.Margin + o.Margin - kept
		p.Margin = kept
		p.TradePrice = o.ExecutedPrice
		p.Opened = o.ExecutedDate
		p.Ticket = o.Ticket
	}

	p.Quantity = next
	p.Strategy = o.Strategy.Clone()
	p.revalue(o.ExecutedPrice)
	return released
}

func (p *Position) String() string {
	return fmt.Sprintf("%s qty=%d trade=%.2f mark=%.2f pl=%.2f nlv=%.2f",
		p.Symbol(), p.Quantity, p.TradePrice, p.Mark, p.OpenPL, p.NetLiquidatingValue)
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

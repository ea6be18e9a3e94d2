// Package account is the backtest ledger: cash, option buying power and
// the held positions.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

const DefaultCash = 10000.0

var (
	// ErrMissingQuote marks a held position whose legs are absent from the
	// latest chain.
	ErrMissingQuote = options.ErrMissingQuote

	ErrNotFilled   = errors.New("order is not filled")
	ErrHasActivity = errors.New("account already has positions or reserved buying power")
)

type Account struct {
	Cash                float64
	InitialCash         float64
	OptionBuyingPower   float64
	NetLiquidatingValue float64
	Commissions         float64

	positions []*Position
}

func New(cash float64) *Account {
	return &Account{
		Cash:                cash,
		InitialCash:         cash,
		OptionBuyingPower:   cash,
		NetLiquidatingValue: cash,
	}
}

// SetCash resets the balances. It is only allowed before the account has
// traded.
func (a *Account) SetCash(amount float64) error {
	if len(a.positions) > 0 || a.OptionBuyingPower != a.Cash {
		return ErrHasActivity
	}
	a.Cash = amount
	a.InitialCash = amount
	a.OptionBuyingPower = amount
	a.NetLiquidatingValue = amount
	return nil
}

func (a *Account) Positions() []*Position {
	out := make([]*Position, len(a.positions))
	copy(out, a.positions)
	return out
}

func (a *Account) Position(symbol string) (*Position, bool) {
	for _, p := range a.positions {
		if p.Symbol() == symbol {
			return p, true
		}
	}
	return nil, false
}

func (a *Account) PositionsTotal() int { return len(a.positions) }

// Affords is the admission rule: post-trade cash and post-trade buying
// power must both stay strictly positive.
func (a *Account) Affords(totalCost, margin float64) bool {
	return a.Cash-totalCost > 0 && a.OptionBuyingPower-margin > 0
}

// Reserve holds buying power for an admitted order.
func (a *Account) Reserve(margin float64) {
	a.OptionBuyingPower -= margin
}

// Release returns buying power held by an order or position.
func (a *Account) Release(margin float64) {
	a.OptionBuyingPower += margin
}

// ProcessOrder applies a filled order: cash is debited by the total cost,
// commissions are accumulated and the order is merged into the position
// with the same symbol. The order's margin must already be reserved.
// Positions are keyed by the strategy's composite symbol, so a single leg
// traded on its own never nets against the same leg inside a spread.
func (a *Account) ProcessOrder(o *order.Order) error {
	if o.Status() != order.Filled {
		return fmt.Errorf("process order %v (%s): %w", o.Ticket, o.Status(), ErrNotFilled)
	}

	a.Cash -= o.TotalCost
	a.Commissions += o.Commissions

	if p, ok := a.Position(o.Strategy.Symbol); ok {
		a.Release(p.merge(o))
		if p.Quantity == 0 {
			a.remove(p)
		}
	} else {
		a.positions = append(a.positions, NewPosition(o))
	}

	a.revalue()
	return nil
}

// Update marks every live position from the chain and recomputes the net
// liquidating value. Positions whose expiration is already behind the
// chain date keep their last mark until CheckExpiration settles them.
func (a *Account) Update(c *market.Chain) error {
	for _, p := range a.positions {
		if p.Expiration().Before(c.Date) {
			continue
		}
		if err := p.Update(c); err != nil {
			return err
		}
	}
	a.revalue()
	return nil
}

// Settlement is a position closed out at expiration.
type Settlement struct {
	Position *Position
	Date     time.Time
	Amount   float64
}

// CheckExpiration settles every position expiring on or before date into
// cash at its net liquidating value and releases its buying power. An OTM
// position settles at roughly zero.
func (a *Account) CheckExpiration(date time.Time) []Settlement {
	day := market.Day(date)

	var settled []Settlement
	active := a.positions[:0]
	for _, p := range a.positions {
		if p.Expiration().After(day) {
			active = append(active, p)
			continue
		}
		a.Cash += p.NetLiquidatingValue
		a.Release(p.Margin)
		settled = append(settled, Settlement{Position: p, Date: day, Amount: p.NetLiquidatingValue})
	}
	for i := len(active); i < len(a.positions); i++ {
		a.positions[i] = nil
	}
	a.positions = active

	a.revalue()
	return settled
}

func (a *Account) remove(p *Position) {
	for i, q := range a.positions {
		if q == p {
			a.positions = append(a.positions[:i], a.positions[i+1:]...)
			return
		}
	}
}

func (a *Account) revalue() {
	nlv := a.Cash
	for _, p := range a.positions {
		nlv += p.NetLiquidatingValue
	}
	a.NetLiquidatingValue = nlv
}

// Snapshot is a read-only view of the balances.
type Snapshot struct {
	Cash                float64
	OptionBuyingPower   float64
	NetLiquidatingValue float64
	Commissions         float64
	Positions           int
}

func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Cash:                a.Cash,
		OptionBuyingPower:   a.OptionBuyingPower,
		NetLiquidatingValue: a.NetLiquidatingValue,
		Commissions:         a.Commissions,
		Positions:           len(a.positions),
	}
}

// Package sizer picks an order quantity when a strategy does not give one.
package sizer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

const DefaultQuantity = 10

var (
	ErrZeroMark      = errors.New("cannot size a strategy with zero mark")
	ErrUndefinedRisk = errors.New("strategy has no defined maximum loss")
)

// Sizer returns the unsigned number of strategy units to trade.
type Sizer interface {
	Quantity(s *options.Strategy, action order.Action, acct account.Snapshot) (int, error)
}

// FixedQuantity always trades N units.
type FixedQuantity struct {
	N int
}

func (f FixedQuantity) Quantity(*options.Strategy, order.Action, account.Snapshot) (int, error) {
	if f.N <= 0 {
		return DefaultQuantity, nil
	}
	return f.N, nil
}

// DollarAmount trades as many units as Amount buys at the current mark.
type DollarAmount struct {
	Amount float64
}

func (d DollarAmount) Quantity(s *options.Strategy, _ order.Action, _ account.Snapshot) (int, error) {
	mark := math.Abs(s.Mark())
	if mark == 0 {
		return 0, fmt.Errorf("%s: %w", s.Symbol, ErrZeroMark)
	}
	return int(math.Floor(d.Amount / (mark * market.Multiplier))), nil
}

// RiskPercent risks Pct of the net liquidating value on the worst case
// of the trade: the debit paid when buying, the strike width less the
// credit when selling a spread.
type RiskPercent struct {
	Pct float64 // 0.02 risks 2%
}

func (r RiskPercent) Quantity(s *options.Strategy, action order.Action, acct account.Snapshot) (int, error) {
	loss, err := MaxLoss(s, action)
	if err != nil {
		return 0, err
	}
	budget := acct.NetLiquidatingValue * r.Pct
	return int(math.Floor(budget / (loss * market.Multiplier))), nil
}

// MaxLoss is the worst case loss of one unit in price points.
func MaxLoss(s *options.Strategy, action order.Action) (float64, error) {
	mark := math.Abs(s.Mark())
	loss := mark
	if action == order.Sell {
		width := s.MaxStrikeWidth()
		if width == 0 {
			return 0, fmt.Errorf("sell %s: %w", s.Symbol, ErrUndefinedRisk)
		}
		loss = width - mark
	}
	if loss <= 0 {
		return 0, fmt.Errorf("%s: %w", s.Symbol, ErrZeroMark)
	}
	return loss, nil
}

// ByName builds a sizer from its config name.
func ByName(name string, quantity int, amount, riskPct float64) (Sizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fixed":
		return FixedQuantity{N: quantity}, nil
	case "dollar", "dollars", "amount":
		if amount <= 0 {
			return nil, fmt.Errorf("dollar sizer needs a positive amount, got %.2f", amount)
		}
		return DollarAmount{Amount: amount}, nil
	case "risk", "risk-pct":
		if riskPct <= 0 || riskPct > 1 {
			return nil, fmt.Errorf("risk sizer needs a fraction in (0, 1], got %.4f", riskPct)
		}
		return RiskPercent{Pct: riskPct}, nil
	default:
		return nil, fmt.Errorf("unknown sizer %q (supported: fixed, dollar, risk)", name)
	}
}

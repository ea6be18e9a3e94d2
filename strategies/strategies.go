// Package strategies holds the built-in strategies. Each registers itself
// with the strategy package under its config name.
package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
	"github.com/rustyeddy/optsim/strategy"
)

func init() {
	strategy.Register("noop", NewNoop)
	strategy.Register("short-put-vertical", NewShortVertical)
	strategy.Register("iron-condor", NewIronCondor)
}

// entry is the order shape shared by the spread sellers.
type entry struct {
	Symbol string
	Width  float64
	DTE    int
	Price  float64 // target credit

	Quantity int
	Type     order.Type
	TIF      order.TIF
}

func newEntry(cfg config.StrategyConfig) (entry, error) {
	if cfg.Symbol == "" {
		return entry{}, fmt.Errorf("%s: symbol is required", cfg.Name)
	}
	if cfg.Width <= 0 {
		return entry{}, fmt.Errorf("%s: width %.2f: %w", cfg.Name, cfg.Width, options.ErrInvalidWidth)
	}
	if cfg.DTE < 0 {
		return entry{}, fmt.Errorf("%s: dte must not be negative", cfg.Name)
	}
	if cfg.Quantity < 0 {
		return entry{}, fmt.Errorf("%s: quantity %d: %w", cfg.Name, cfg.Quantity, order.ErrInvalidQuantity)
	}
	typ, err := order.ParseType(cfg.OrderType)
	if err != nil {
		return entry{}, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	if typ == order.Limit && cfg.Price <= 0 {
		return entry{}, fmt.Errorf("%s: limit orders need a positive price", cfg.Name)
	}
	tif, err := order.ParseTIF(cfg.TIF)
	if err != nil {
		return entry{}, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	return entry{
		Symbol:   cfg.Symbol,
		Width:    cfg.Width,
		DTE:      cfg.DTE,
		Price:    cfg.Price,
		Quantity: cfg.Quantity,
		Type:     typ,
		TIF:      tif,
	}, nil
}

// expiration picks the expiration nearest DTE that is still ahead of the
// snapshot.
func (e entry) expiration(c *market.Chain) (*market.Chain, bool) {
	c = c.Underlying(e.Symbol)
	exp, ok := c.ClosestExpiration(e.DTE)
	if !ok || !exp.After(c.Date) {
		return nil, false
	}
	return c.Expiring(exp), true
}

// sell places the credit order for s. Limit orders ask for at least the
// target price.
func (e entry) sell(t strategy.Trader, s *options.Strategy) error {
	req := order.Request{
		Strategy: s,
		Action:   order.Sell,
		Quantity: e.Quantity,
		Type:     e.Type,
		TIF:      e.TIF,
	}
	if e.Type == order.Limit {
		req.LimitPrice = e.Price
	}
	_, err := t.PlaceOrder(req)
	return err
}

// closestVertical builds a vertical anchored on every row of c that keep
// accepts and returns the one whose mark is nearest target. Ties go to the
// richer spread. A nil keep accepts every row. Rows without a strike width
// away are skipped.
func closestVertical(c *market.Chain, width, target float64, keep func(market.Quote) bool) (*options.Strategy, bool) {
	var best *options.Strategy
	bestDist := math.Inf(1)
	for _, q := range c.Quotes() {
		if keep != nil && !keep(q) {
			continue
		}
		v, err := options.Vertical(c, q, width)
		if err != nil {
			continue
		}
		d := math.Abs(v.Mark() - target)
		switch {
		case d < bestDist:
		case d == bestDist && v.Mark() > best.Mark():
		default:
			continue
		}
		best, bestDist = v, d
	}
	return best, best != nil
}

// busy reports whether there is anything open or working.
func busy(t strategy.Trader) bool {
	return t.PositionsTotal() > 0 || len(t.Working()) > 0
}

func underlyingPrice(c *market.Chain) (float64, bool) {
	for _, q := range c.Quotes() {
		if q.UnderlyingPrice > 0 {
			return q.UnderlyingPrice, true
		}
	}
	return 0, false
}

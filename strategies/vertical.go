package strategies

import (
	"fmt"

	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/indicators"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/strategy"
)

// ShortVertical sells the credit vertical nearest a target credit at the
// expiration closest to DTE, one position at a time, and holds it to
// expiration. Puts unless the config asks for calls.
//
// With a trend EMA configured, puts are only sold while the underlying
// trades above the average and calls only while it trades below.
type ShortVertical struct {
	strategy.Base
	entry

	OptionType market.OptionType

	trend *indicators.ExponentialMA
}

func NewShortVertical(cfg config.StrategyConfig) (strategy.Strategy, error) {
	e, err := newEntry(cfg)
	if err != nil {
		return nil, err
	}
	typ := market.Put
	if cfg.OptionType != "" {
		if typ, err = market.ParseOptionType(cfg.OptionType); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
	}
	s := &ShortVertical{entry: e, OptionType: typ}
	if cfg.TrendEMA > 0 {
		s.trend = indicators.NewEMA(cfg.TrendEMA)
	}
	return s, nil
}

func (s *ShortVertical) Name() string { return "short-" + s.OptionType.String() + "-vertical" }

func (s *ShortVertical) Init(t strategy.Trader) error {
	return t.Source(s.Symbol)
}

func (s *ShortVertical) OnData(t strategy.Trader, snap market.Snapshot) error {
	trending := s.inTrend(snap.Chain)
	if busy(t) || !trending {
		return nil
	}
	c, ok := s.expiration(snap.Chain)
	if !ok {
		return nil
	}
	v, ok := closestVertical(c.Type(s.OptionType), s.Width, s.Price, nil)
	if !ok {
		return nil
	}
	return s.sell(t, v)
}

// inTrend feeds the underlying price to the trend EMA and reports whether
// the trend favors the side being sold.
func (s *ShortVertical) inTrend(c *market.Chain) bool {
	if s.trend == nil {
		return true
	}
	price, ok := underlyingPrice(c.Underlying(s.Symbol))
	if !ok {
		return false
	}
	s.trend.Update(price)
	if !s.trend.Ready() {
		return false
	}
	if s.OptionType == market.Call {
		return price < s.trend.Value()
	}
	return price > s.trend.Value()
}

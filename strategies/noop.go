package strategies

import (
	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/strategy"
)

// Noop sources its symbol and never trades. Useful to replay a dataset.
type Noop struct {
	strategy.Base
	Symbol string
}

func NewNoop(cfg config.StrategyConfig) (strategy.Strategy, error) {
	return &Noop{Symbol: cfg.Symbol}, nil
}

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Init(t strategy.Trader) error {
	if n.Symbol == "" {
		return nil
	}
	return t.Source(n.Symbol)
}

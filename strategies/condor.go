package strategies

import (
	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/strategy"
)

// IronCondor sells an out of the money put vertical and call vertical,
// each priced nearest half the target credit, and holds to expiration.
type IronCondor struct {
	strategy.Base
	entry
}

func NewIronCondor(cfg config.StrategyConfig) (strategy.Strategy, error) {
	e, err := newEntry(cfg)
	if err != nil {
		return nil, err
	}
	return &IronCondor{entry: e}, nil
}

func (ic *IronCondor) Name() string { return "iron-condor" }

func (ic *IronCondor) Init(t strategy.Trader) error {
	return t.Source(ic.Symbol)
}

func (ic *IronCondor) OnData(t strategy.Trader, snap market.Snapshot) error {
	if busy(t) {
		return nil
	}
	c, ok := ic.expiration(snap.Chain)
	if !ok {
		return nil
	}

	otm := func(q market.Quote) bool { return q.Moneyness() == market.OTM }
	pv, ok := closestVertical(c.Puts(), ic.Width, ic.Price/2, otm)
	if !ok {
		return nil
	}
	cv, ok := closestVertical(c.Calls(), ic.Width, ic.Price/2, otm)
	if !ok {
		return nil
	}

	condor, err := options.IronCondor(c, pv.Legs[0].Quote, cv.Legs[0].Quote, ic.Width)
	if err != nil {
		return err
	}
	return ic.sell(t, condor)
}

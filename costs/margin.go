// Package costs holds the swappable margin and commission calculators the
// broker prices orders with.
package costs

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
)

var ErrUnsupportedStrategy = errors.New("no margin rule for strategy")

// MarginModel returns the initial margin for one unit of a strategy, in
// option price points. The broker scales it by quantity and the contract
// multiplier.
type MarginModel interface {
	InitialMargin(s *options.Strategy, action order.Action) (float64, error)
}

// ZeroMargin is a frictionless model.
type ZeroMargin struct{}

func (ZeroMargin) InitialMargin(*options.Strategy, order.Action) (float64, error) {
	return 0, nil
}

// HouseMargin approximates a retail broker's house rule: premium for single
// options, the debit for debit spreads and width minus credit for credit
// spreads.
type HouseMargin struct{}

func (HouseMargin) InitialMargin(s *options.Strategy, action order.Action) (float64, error) {
	switch s.Name {
	case options.NameSingle:
		return math.Abs(s.Mark()), nil
	case options.NameCalendar, options.NameCombo:
		return 0, fmt.Errorf("%s %s: %w", s.Name, s.Symbol, ErrUnsupportedStrategy)
	}
	if action == order.Buy {
		return s.Mark(), nil
	}
	return s.MaxStrikeWidth() - s.Mark(), nil
}

// MarginByName maps config names onto models.
func MarginByName(name string) (MarginModel, error) {
	switch name {
	case "", "zero", "none":
		return ZeroMargin{}, nil
	case "house", "tos":
		return HouseMargin{}, nil
	}
	return nil, fmt.Errorf("unknown margin model %q", name)
}

package options

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/optsim/market"
)

var (
	ErrInvalidWidth = errors.New("spread width must be positive")
	ErrLegMismatch  = errors.New("legs do not form the requested strategy")
)

// Single is one long option.
func Single(q market.Quote) *Strategy {
	return newStrategy(NameSingle, Leg{Quote: q, Ratio: 1})
}

// Vertical builds the vertical spread that is long anchor and short the
// strike width points further out of the money (higher for calls, lower for
// puts). Bought, it is a debit spread; sold, a credit spread.
func Vertical(c *market.Chain, anchor market.Quote, width float64) (*Strategy, error) {
	if width <= 0 {
		return nil, fmt.Errorf("vertical %s width %.2f: %w", anchor.Symbol, width, ErrInvalidWidth)
	}
	strike := anchor.Strike + width
	if anchor.IsPut() {
		strike = anchor.Strike - width
	}
	other, ok := c.Strike(anchor, strike)
	if !ok {
		return nil, fmt.Errorf("vertical %s: no %s at strike %.2f: %w",
			anchor.Symbol, anchor.Type, strike, ErrMissingQuote)
	}
	return newStrategy(NameVertical,
		Leg{Quote: anchor, Ratio: 1},
		Leg{Quote: other, Ratio: -1},
	), nil
}

// IronCondor joins a put vertical anchored at put and a call vertical
// anchored at call. Selling it is the usual short iron condor.
func IronCondor(c *market.Chain, put, call market.Quote, width float64) (*Strategy, error) {
	if !put.IsPut() || !call.IsCall() || !market.SameDay(put.Expiration, call.Expiration) {
		return nil, fmt.Errorf("iron condor %s/%s: %w", put.Symbol, call.Symbol, ErrLegMismatch)
	}
	if put.Strike >= call.Strike {
		return nil, fmt.Errorf("iron condor put strike %.2f >= call strike %.2f: %w",
			put.Strike, call.Strike, ErrLegMismatch)
	}
	pv, err := Vertical(c, put, width)
	if err != nil {
		return nil, err
	}
	cv, err := Vertical(c, call, width)
	if err != nil {
		return nil, err
	}
	return newStrategy(NameIronCondor, append(pv.Legs, cv.Legs...)...), nil
}

// Calendar is long the far expiration and short the near one at the same
// strike.
func Calendar(near, far market.Quote) (*Strategy, error) {
	if near.Type != far.Type || near.Strike != far.Strike || !near.Expiration.Before(far.Expiration) {
		return nil, fmt.Errorf("calendar %s/%s: %w", near.Symbol, far.Symbol, ErrLegMismatch)
	}
	return newStrategy(NameCalendar,
		Leg{Quote: far, Ratio: 1},
		Leg{Quote: near, Ratio: -1},
	), nil
}

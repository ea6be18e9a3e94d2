package market

type Moneyness int

const (
	ATM Moneyness = iota
	ITM
	OTM
)

func (m Moneyness) String() string {
	switch m {
	case ITM:
		return "ITM"
	case OTM:
		return "OTM"
	}
	return "ATM"
}

// MoneynessOf classifies a strike relative to the underlying price.
func MoneynessOf(t OptionType, underlying, strike float64) Moneyness {
	switch {
	case underlying == strike:
		return ATM
	case t == Call && underlying > strike, t == Put && underlying < strike:
		return ITM
	default:
		return OTM
	}
}

// Package indicators holds streaming indicators fed one price per
// snapshot, usually the underlying's closing price.
package indicators

import "fmt"

// Indicator computes a single streaming value from prices.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready can be true.
	Warmup() int

	Reset()

	// Update consumes the next price.
	Update(price float64)

	// Ready reports whether Value is meaningful.
	Ready() bool

	// Value is 0 until the indicator is ready.
	Value() float64
}

// New builds an indicator by name: "sma" or "ema".
func New(name string, period int) (Indicator, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	switch name {
	case "sma", "ma":
		return NewMA(period), nil
	case "ema":
		return NewEMA(period), nil
	default:
		return nil, fmt.Errorf("unknown indicator %q", name)
	}
}

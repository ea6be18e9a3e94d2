package costs

import (
	"fmt"

	"github.com/rustyeddy/optsim/options"
)

// CommissionModel returns the commission for an order of quantity units of
// a strategy.
type CommissionModel interface {
	Commissions(s *options.Strategy, quantity int) float64
}

type ZeroCommission struct{}

func (ZeroCommission) Commissions(*options.Strategy, int) float64 { return 0 }

// PerContract charges PerContract for every option contract traded plus a
// flat PerOrder ticket charge.
type PerContract struct {
	PerContract float64
	PerOrder    float64
}

func (p PerContract) Commissions(s *options.Strategy, quantity int) float64 {
	if quantity < 0 {
		quantity = -quantity
	}
	return p.PerOrder + p.PerContract*float64(quantity*s.Contracts())
}

// CommissionByName maps config names onto models.
func CommissionByName(name string, perContract, perOrder float64) (CommissionModel, error) {
	switch name {
	case "", "zero", "none":
		return ZeroCommission{}, nil
	case "per-contract", "per_contract":
		if perContract < 0 || perOrder < 0 {
			return nil, fmt.Errorf("commission rates must not be negative")
		}
		return PerContract{PerContract: perContract, PerOrder: perOrder}, nil
	}
	return nil, fmt.Errorf("unknown commission model %q", name)
}

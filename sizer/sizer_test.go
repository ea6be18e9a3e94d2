package sizer

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/options"
	"github.com/rustyeddy/optsim/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(bid, ask float64) *options.Strategy {
	return options.Single(market.Quote{
		Symbol:     "VXX160219C00025000",
		Underlying: "VXX",
		QuoteDate:  time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC),
		Expiration: time.Date(2016, 2, 19, 0, 0, 0, 0, time.UTC),
		Type:       market.Call,
		Strike:     25,
		Bid:        bid,
		Ask:        ask,
	})
}

func TestFixedQuantity(t *testing.T) {
	n, err := FixedQuantity{}.Quantity(single(1, 1.1), order.Buy, account.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, DefaultQuantity, n)

	n, err = FixedQuantity{N: 3}.Quantity(single(1, 1.1), order.Buy, account.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDollarAmount(t *testing.T) {
	tests := []struct {
		amount   float64
		bid, ask float64
		want     int
	}{
		{1000, 0.95, 1.05, 10}, // 1.00 mark
		{999, 0.95, 1.05, 9},
		{1000, 2.45, 2.55, 4},
		{100, 2.45, 2.55, 0},
	}
	for _, tt := range tests {
		n, err := DollarAmount{Amount: tt.amount}.Quantity(single(tt.bid, tt.ask), order.Buy, account.Snapshot{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, "amount %.0f", tt.amount)
	}

	_, err := DollarAmount{Amount: 1000}.Quantity(single(0, 0), order.Buy, account.Snapshot{})
	assert.True(t, errors.Is(err, ErrZeroMark))
}

func TestByName(t *testing.T) {
	s, err := ByName("fixed", 5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, FixedQuantity{N: 5}, s)

	s, err = ByName("", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, FixedQuantity{}, s)

	s, err = ByName("Dollar", 0, 2500, 0)
	require.NoError(t, err)
	assert.Equal(t, DollarAmount{Amount: 2500}, s)

	_, err = ByName("dollar", 0, 0, 0)
	assert.Error(t, err)

	s, err = ByName("risk", 0, 0, 0.02)
	require.NoError(t, err)
	assert.Equal(t, RiskPercent{Pct: 0.02}, s)
	_, err = ByName("risk", 0, 0, 1.5)
	assert.Error(t, err)

	_, err = ByName("kelly", 0, 0, 0)
	assert.Error(t, err)
}

func vertical(t *testing.T) *options.Strategy {
	t.Helper()
	day := time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2016, 2, 19, 0, 0, 0, 0, time.UTC)
	c := market.NewChain(day, []market.Quote{
		{Symbol: "P24", Underlying: "VXX", QuoteDate: day, Expiration: exp, Type: market.Put, Strike: 24, Bid: 2.25, Ask: 2.25},
		{Symbol: "P22", Underlying: "VXX", QuoteDate: day, Expiration: exp, Type: market.Put, Strike: 22, Bid: 1.00, Ask: 1.00},
	})
	anchor, _ := c.Lookup("P24")
	s, err := options.Vertical(c, anchor, 2)
	require.NoError(t, err)
	return s
}

func TestMaxLoss(t *testing.T) {
	v := vertical(t) // mark 1.25 on a 2 point width

	loss, err := MaxLoss(v, order.Buy)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, loss, 1e-9)

	loss, err = MaxLoss(v, order.Sell)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, loss, 1e-9)

	_, err = MaxLoss(single(1, 1.1), order.Sell)
	assert.True(t, errors.Is(err, ErrUndefinedRisk))
}

func TestRiskPercent(t *testing.T) {
	acct := account.Snapshot{NetLiquidatingValue: 10000}
	v := vertical(t)

	// 2% of 10000 is 200; selling risks 75 a unit
	n, err := RiskPercent{Pct: 0.02}.Quantity(v, order.Sell, acct)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// buying risks the 125 debit
	n, err = RiskPercent{Pct: 0.05}.Quantity(v, order.Buy, acct)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

package strategies

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optsim/account"
	"github.com/rustyeddy/optsim/backtest"
	"github.com/rustyeddy/optsim/broker"
	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/costs"
	"github.com/rustyeddy/optsim/event"
	"github.com/rustyeddy/optsim/feed"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/order"
	"github.com/rustyeddy/optsim/sizer"
	"github.com/rustyeddy/optsim/strategy"
)

var (
	today = time.Date(2016, 1, 20, 0, 0, 0, 0, time.UTC)
	feb   = time.Date(2016, 2, 19, 0, 0, 0, 0, time.UTC)
	mar   = time.Date(2016, 3, 18, 0, 0, 0, 0, time.UTC)
)

type fakeTrader struct {
	requests  []order.Request
	sourced   []string
	positions int
}

func (f *fakeTrader) PlaceOrder(r order.Request) (order.Ticket, error) {
	f.requests = append(f.requests, r)
	return order.Ticket(len(f.requests)), nil
}

func (f *fakeTrader) Cancel(order.Ticket) error { return nil }
func (f *fakeTrader) SetCash(float64) error     { return nil }

func (f *fakeTrader) Source(s string) error {
	f.sourced = append(f.sourced, s)
	return nil
}

func (f *fakeTrader) Date() time.Time                { return today }
func (f *fakeTrader) Account() account.Snapshot      { return account.Snapshot{} }
func (f *fakeTrader) Positions() []*account.Position { return nil }
func (f *fakeTrader) PositionsTotal() int            { return f.positions }
func (f *fakeTrader) Working() []*order.Order        { return nil }

func opt(date, exp time.Time, t market.OptionType, strike, mid float64) market.Quote {
	return market.Quote{
		Symbol:     fmt.Sprintf("VXX%s%s%08.0f", exp.Format("060102"), strings.ToUpper(string(t)), strike*1000),
		Underlying: "VXX", Root: "VXX", QuoteDate: date, Expiration: exp,
		Type: t, Strike: strike, Bid: mid, Ask: mid, UnderlyingPrice: 25,
	}
}

// rows quotes puts 20/22/24 and calls 26/28/30 around a 25 underlying, plus
// one deep put that is in the money.
func rows(date time.Time, scale float64) []market.Quote {
	return []market.Quote{
		opt(date, feb, market.Put, 20, 0.25*scale),
		opt(date, feb, market.Put, 22, 1.00*scale),
		opt(date, feb, market.Put, 24, 2.25*scale),
		opt(date, feb, market.Put, 28, 5.00*scale),
		opt(date, feb, market.Call, 26, 1.50*scale),
		opt(date, feb, market.Call, 28, 0.75*scale),
		opt(date, feb, market.Call, 30, 0.25*scale),
		opt(date, mar, market.Put, 22, 1.75*scale),
		opt(date, mar, market.Put, 24, 3.00*scale),
	}
}

func snapshot() market.Snapshot {
	return market.Snapshot{Date: today, Chain: market.NewChain(today, rows(today, 1))}
}

func cfg(name string) config.StrategyConfig {
	return config.StrategyConfig{Name: name, Symbol: "VXX", Width: 2, DTE: 30, Price: 1.00}
}

func TestRegistered(t *testing.T) {
	names := strategy.Names()
	for _, n := range []string{"noop", "short-put-vertical", "iron-condor"} {
		assert.Contains(t, names, n)
	}

	s, err := strategy.New(cfg("iron-condor"))
	require.NoError(t, err)
	assert.IsType(t, &IronCondor{}, s)
}

func TestNewEntryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.StrategyConfig)
	}{
		{"no symbol", func(c *config.StrategyConfig) { c.Symbol = "" }},
		{"zero width", func(c *config.StrategyConfig) { c.Width = 0 }},
		{"negative dte", func(c *config.StrategyConfig) { c.DTE = -1 }},
		{"negative quantity", func(c *config.StrategyConfig) { c.Quantity = -2 }},
		{"bad order type", func(c *config.StrategyConfig) { c.OrderType = "stop" }},
		{"limit without price", func(c *config.StrategyConfig) { c.OrderType = "limit"; c.Price = 0 }},
		{"bad tif", func(c *config.StrategyConfig) { c.TIF = "fok" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg("short-put-vertical")
			tt.mutate(&c)
			_, err := NewShortVertical(c)
			assert.Error(t, err)
			_, err = NewIronCondor(c)
			assert.Error(t, err)
		})
	}

	c := cfg("short-put-vertical")
	c.OptionType = "straddle"
	_, err := NewShortVertical(c)
	assert.Error(t, err)
}

func TestNoopSources(t *testing.T) {
	s, err := NewNoop(cfg("noop"))
	require.NoError(t, err)
	tr := &fakeTrader{}
	require.NoError(t, s.Init(tr))
	require.NoError(t, s.OnData(tr, snapshot()))
	assert.Equal(t, []string{"VXX"}, tr.sourced)
	assert.Empty(t, tr.requests)
}

func TestShortVerticalPicksClosestCredit(t *testing.T) {
	s, err := NewShortVertical(cfg("short-put-vertical"))
	require.NoError(t, err)
	assert.Equal(t, "short-put-vertical", s.Name())

	tr := &fakeTrader{}
	require.NoError(t, s.Init(tr))
	assert.Equal(t, []string{"VXX"}, tr.sourced)

	require.NoError(t, s.OnData(tr, snapshot()))
	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, order.Sell, req.Action)
	assert.Equal(t, order.Market, req.Type)
	assert.Zero(t, req.Quantity)

	// 22/20 marks 0.75 and 24/22 marks 1.25: equally far from 1.00, the
	// richer one wins.
	leg := req.Strategy.Legs
	require.Len(t, leg, 2)
	assert.Equal(t, 24.0, leg[0].Quote.Strike)
	assert.Equal(t, 22.0, leg[1].Quote.Strike)
	assert.True(t, market.SameDay(feb, req.Strategy.Expiration()))
	assert.InDelta(t, 1.25, req.Strategy.Mark(), 1e-9)
}

func TestShortVerticalWaitsWhileHolding(t *testing.T) {
	s, err := NewShortVertical(cfg("short-put-vertical"))
	require.NoError(t, err)
	tr := &fakeTrader{positions: 1}
	require.NoError(t, s.OnData(tr, snapshot()))
	assert.Empty(t, tr.requests)
}

func TestShortVerticalLimitAndCalls(t *testing.T) {
	c := cfg("short-put-vertical")
	c.OptionType = "call"
	c.OrderType = "limit"
	c.TIF = "day"
	c.Price = 0.50
	c.Quantity = 3
	s, err := NewShortVertical(c)
	require.NoError(t, err)
	assert.Equal(t, "short-call-vertical", s.Name())

	tr := &fakeTrader{}
	require.NoError(t, s.OnData(tr, snapshot()))
	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, order.Limit, req.Type)
	assert.Equal(t, order.Day, req.TIF)
	assert.Equal(t, 0.50, req.LimitPrice)
	assert.Equal(t, 3, req.Quantity)
	assert.Equal(t, 28.0, req.Strategy.Legs[0].Quote.Strike)
}

func pricedAt(date time.Time, price float64) market.Snapshot {
	q := rows(date, 1)
	for i := range q {
		q[i].UnderlyingPrice = price
	}
	return market.Snapshot{Date: date, Chain: market.NewChain(date, q)}
}

func TestShortVerticalTrendFilter(t *testing.T) {
	c := cfg("short-put-vertical")
	c.TrendEMA = 2
	s, err := NewShortVertical(c)
	require.NoError(t, err)

	tr := &fakeTrader{}
	require.NoError(t, s.OnData(tr, pricedAt(today, 24)))
	assert.Empty(t, tr.requests, "warming up")

	// EMA(2) seeds at 25 and 26 trades above it
	require.NoError(t, s.OnData(tr, pricedAt(today.AddDate(0, 0, 1), 26)))
	require.Len(t, tr.requests, 1)

	c.OptionType = "call"
	calls, err := NewShortVertical(c)
	require.NoError(t, err)
	tr = &fakeTrader{}
	require.NoError(t, calls.OnData(tr, pricedAt(today, 24)))
	require.NoError(t, calls.OnData(tr, pricedAt(today.AddDate(0, 0, 1), 26)))
	assert.Empty(t, tr.requests, "calls wait for a down trend")

	require.NoError(t, calls.OnData(tr, pricedAt(today.AddDate(0, 0, 2), 20)))
	assert.Len(t, tr.requests, 1)
}

func TestShortVerticalSkipsExpiringToday(t *testing.T) {
	c := cfg("short-put-vertical")
	c.DTE = 0
	s, err := NewShortVertical(c)
	require.NoError(t, err)

	tr := &fakeTrader{}
	snap := market.Snapshot{Date: feb, Chain: market.NewChain(feb, rows(feb, 1)[:4])}
	require.NoError(t, s.OnData(tr, snap))
	assert.Empty(t, tr.requests)
}

func TestIronCondorUsesOutOfTheMoneySides(t *testing.T) {
	c := cfg("iron-condor")
	c.Price = 1.50
	s, err := NewIronCondor(c)
	require.NoError(t, err)

	tr := &fakeTrader{}
	require.NoError(t, s.OnData(tr, snapshot()))
	require.Len(t, tr.requests, 1)
	req := tr.requests[0]
	assert.Equal(t, order.Sell, req.Action)

	legs := req.Strategy.Legs
	require.Len(t, legs, 4)
	assert.Equal(t, []float64{22, 20, 26, 28},
		[]float64{legs[0].Quote.Strike, legs[1].Quote.Strike, legs[2].Quote.Strike, legs[3].Quote.Strike})
	assert.InDelta(t, 1.50, req.Strategy.Mark(), 1e-9)
}

func runShortVertical(t *testing.T, sz sizer.Sizer) backtest.Result {
	t.Helper()
	f := feed.NewMemory()
	f.Add("VXX", rows(today, 1)...)
	f.Add("VXX", rows(feb, 0)[:7]...) // february only

	q := event.NewQueue()
	b, err := broker.New(broker.Config{
		Feed:       f,
		Margin:     costs.HouseMargin{},
		Commission: costs.ZeroCommission{},
		Sink:       q,
		Cash:       10000,
	})
	require.NoError(t, err)

	s, err := strategy.New(cfg("short-put-vertical"))
	require.NoError(t, err)
	bt, err := backtest.New(backtest.Config{Broker: b, Queue: q, Strategy: s, Sizer: sz})
	require.NoError(t, err)

	res, err := bt.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestShortVerticalBacktest(t *testing.T) {
	res := runShortVertical(t, nil)

	// sold 10 of the 24/22 put vertical for 1.25, both legs expire worthless
	assert.Equal(t, 1, res.Stats.Fills)
	assert.Equal(t, 1, res.Stats.Settlements)
	assert.InDelta(t, 11250, res.Account.Cash, 1e-9)
	assert.InDelta(t, 10000, res.Account.OptionBuyingPower, 1e-9)
	assert.Zero(t, res.Account.Positions)
	assert.InDelta(t, 1250, res.NetPL, 1e-9)
}

func TestShortVerticalRiskTooSmall(t *testing.T) {
	// 0.5% of 10000 is 50, less than the 75 a unit of 24/22 risks
	res := runShortVertical(t, sizer.RiskPercent{Pct: 0.005})

	assert.Zero(t, res.Stats.Fills)
	assert.Equal(t, 1, res.Stats.Rejections)
	assert.Zero(t, res.Account.Positions)
	assert.InDelta(t, 10000, res.Account.Cash, 1e-9)
	assert.InDelta(t, 0, res.NetPL, 1e-9)
}

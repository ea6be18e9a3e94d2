package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optsim/market"
)

var (
	d1   = time.Date(2016, 2, 1, 0, 0, 0, 0, time.UTC)
	d2   = time.Date(2016, 2, 2, 0, 0, 0, 0, time.UTC)
	feb  = time.Date(2016, 2, 19, 0, 0, 0, 0, time.UTC)
	mar  = time.Date(2016, 3, 18, 0, 0, 0, 0, time.UTC)
	ctx0 = context.Background()
)

func rows() []market.Quote {
	return []market.Quote{
		{Symbol: "VXX160219C00025000", Underlying: "VXX", Root: "VXX", QuoteDate: d1, Expiration: feb, Strike: 25, Type: market.Call, Bid: 3.05, Ask: 3.15, Volume: 10, UnderlyingPrice: 26.1, Greeks: market.Greeks{Delta: 0.61}},
		{Symbol: "VXX160219P00025000", Underlying: "VXX", Root: "VXX", QuoteDate: d1, Expiration: feb, Strike: 25, Type: market.Put, Bid: 1.95, Ask: 2.05, UnderlyingPrice: 26.1},
		{Symbol: "VXX160318C00025000", Underlying: "VXX", Root: "VXX", QuoteDate: d1, Expiration: mar, Strike: 25, Type: market.Call, Bid: 4.0, Ask: 4.2, UnderlyingPrice: 26.1},
		{Symbol: "VXX1160219C00025000", Underlying: "VXX", Root: "VXX1", QuoteDate: d1, Expiration: feb, Strike: 25, Type: market.Call, Bid: 0.9, Ask: 1.1, UnderlyingPrice: 26.1},
		{Symbol: "VXX160219C00025000", Underlying: "VXX", Root: "VXX", QuoteDate: d2, Expiration: feb, Strike: 25, Type: market.Call, Bid: 3.25, Ask: 3.35, UnderlyingPrice: 26.4},
	}
}

func TestFilterKeep(t *testing.T) {
	all := rows()
	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"none", Filter{}, 5},
		{"splits", Filter{ExcludeSplits: true}, 4},
		{"calls", Filter{OptionType: market.Call}, 4},
		{"puts", Filter{OptionType: market.Put}, 1},
		{"end before march", Filter{End: feb}, 4},
		{"start march", Filter{Start: mar}, 1},
		{"combined", Filter{End: feb, ExcludeSplits: true, OptionType: market.Call}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.f.apply("VXX", all), tt.want)
		})
	}
}

func TestTableName(t *testing.T) {
	n, err := TableName("VXX")
	require.NoError(t, err)
	assert.Equal(t, "vxx_option_chain", n)

	for _, bad := range []string{"", "1ABC", "vxx; drop table x", "a-b"} {
		_, err := TableName(bad)
		assert.Error(t, err, bad)
	}
}

func TestMemoryFeed(t *testing.T) {
	m := NewMemory()
	m.Add("VXX", rows()...)

	got, err := m.Get(ctx0, "VXX", Filter{OptionType: market.Put})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, m.Calls("VXX"))

	_, err = m.Get(ctx0, "SPX", Filter{})
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	m.Err = errors.New("boom")
	_, err = m.Get(ctx0, "VXX", Filter{})
	assert.EqualError(t, err, "boom")
}

func TestStreamMergesByDate(t *testing.T) {
	tables := map[string][]market.Quote{
		"VXX": rows(),
		"SPY": {
			{Symbol: "SPY160219C00190000", Underlying: "SPY", QuoteDate: d2, Expiration: feb, Strike: 190, Type: market.Call},
			{Symbol: "SPY160219C00190000", Underlying: "SPY", QuoteDate: d1.AddDate(0, 0, -3), Expiration: feb, Strike: 190, Type: market.Call},
		},
	}

	s := NewStream(tables, time.Time{})
	assert.Equal(t, 3, s.Remaining())

	var dates []time.Time
	var sizes []int
	for {
		snap, ok := s.Next()
		if !ok {
			break
		}
		dates = append(dates, snap.Date)
		sizes = append(sizes, snap.Chain.Len())
		assert.True(t, snap.Chain.Date.Equal(snap.Date))
	}
	assert.Equal(t, []time.Time{d1.AddDate(0, 0, -3), d1, d2}, dates)
	assert.Equal(t, []int{1, 4, 2}, sizes)

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestStreamResumesAfterDate(t *testing.T) {
	s := NewStream(map[string][]market.Quote{"VXX": rows()}, d1)
	snap, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, d2, snap.Date)
	_, ok = s.Next()
	assert.False(t, ok)
}

func TestSQLiteImportAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.db")

	_, err := NewSQLite(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	w, err := CreateSQLite(path)
	require.NoError(t, err)
	require.NoError(t, w.Import(ctx0, "VXX", rows()))
	require.NoError(t, w.Close())

	f, err := NewSQLite(path)
	require.NoError(t, err)
	defer f.Close()

	all, err := f.Get(ctx0, "VXX", Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, d1, all[0].QuoteDate)
	assert.Equal(t, d2, all[4].QuoteDate)

	var first market.Quote
	for _, q := range all {
		if q.Symbol == "VXX160219C00025000" && q.QuoteDate.Equal(d1) {
			first = q
		}
	}
	assert.Equal(t, feb, first.Expiration)
	assert.Equal(t, market.Call, first.Type)
	assert.InDelta(t, 0.61, first.Delta, 1e-9)
	assert.Equal(t, int64(10), first.Volume)

	calls, err := f.Get(ctx0, "VXX", Filter{ExcludeSplits: true, OptionType: market.Call, End: feb})
	require.NoError(t, err)
	assert.Len(t, calls, 2)

	_, err = f.Get(ctx0, "SPX", Filter{})
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

const sampleCSV = `symbol,underlying_symbol,root,quote_date,expiration,strike,option_type,trade_volume,bid,ask,underlying_price,delta
VXX160219C00025000,VXX,VXX,2016-02-01,2016-02-19,25,c,10,3.05,3.15,26.1,0.61
VXX160219P00025000,VXX,VXX,2016-02-01,2016-02-19,25,p,,1.95,2.05,26.1,
VXX160219C00025000,VXX,VXX,2016-02-02,2016-02-19,25,c,3,3.25,3.35,26.4,0.64
`

func TestCSVFeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vxx.csv"), []byte(sampleCSV), 0o644))

	f, err := NewCSV(dir)
	require.NoError(t, err)

	got, err := f.Get(ctx0, "VXX", Filter{OptionType: market.Call})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, d2, got[1].QuoteDate)
	assert.InDelta(t, 3.30, got[1].Mid(), 1e-9)
	assert.InDelta(t, 0.64, got[1].Delta, 1e-9)

	_, err = f.Get(ctx0, "SPX", Filter{})
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	_, err = NewCSV(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(ctx0, strings.NewReader("symbol,bid\nX,1\n"))
	assert.ErrorContains(t, err, "missing column")

	bad := "symbol,quote_date,expiration,strike,option_type,bid,ask\nX,2016-02-01,2016-02-19,25,c,abc,1\n"
	_, err = ReadCSV(ctx0, strings.NewReader(bad))
	assert.ErrorContains(t, err, "line 2")
}

type flakyFeed struct {
	err   error
	calls int
}

func (f *flakyFeed) Get(ctx context.Context, symbol string, _ Filter) ([]market.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return rows(), nil
}

func TestBreakerOpensOnUnavailable(t *testing.T) {
	src := &flakyFeed{err: unavailable("VXX", errors.New("connection refused"))}
	b := NewBreaker(src, BreakerSettings{MaxFailures: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.Get(ctx0, "VXX", Filter{})
		assert.True(t, errors.Is(err, ErrDataUnavailable))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Get(ctx0, "VXX", Filter{})
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.Equal(t, 2, src.calls, "open circuit must not reach the source")
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	src := &flakyFeed{err: errors.New("invalid symbol")}
	b := NewBreaker(src, BreakerSettings{MaxFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Get(ctx0, "VXX", Filter{})
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	src.err = nil
	got, err := b.Get(ctx0, "VXX", Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestBreakerIgnoresMissingTables(t *testing.T) {
	b := NewBreaker(NewMemory(), BreakerSettings{MaxFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Get(ctx0, "SPY", Filter{})
		assert.True(t, errors.Is(err, ErrDataUnavailable))
		assert.True(t, errors.Is(err, ErrNoTable))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestMissingTablesClassified(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCSV(dir)
	require.NoError(t, err)
	_, err = c.Get(ctx0, "VXX", Filter{})
	assert.True(t, errors.Is(err, ErrNoTable))

	s, err := CreateSQLite(filepath.Join(dir, "chains.db"))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(ctx0, "VXX", Filter{})
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.True(t, errors.Is(err, ErrNoTable))
}

func TestOpen(t *testing.T) {
	f, closeFn, err := Open(ctx0, "memory", "", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryFeed{}, f)
	assert.NoError(t, closeFn())

	_, _, err = Open(ctx0, "mongo", "", "", nil)
	assert.Error(t, err)

	_, _, err = Open(ctx0, "sqlite", filepath.Join(t.TempDir(), "none.db"), "", nil)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestPostgresFeed(t *testing.T) {
	dsn := os.Getenv("OPTSIM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("OPTSIM_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(ctx0, 10*time.Second)
	defer cancel()

	f, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.pool.Exec(ctx, `
		CREATE TABLE optsimtest_option_chain (
			symbol TEXT, underlying_symbol TEXT, root TEXT, quote_date DATE, expiration DATE,
			strike DOUBLE PRECISION, option_type TEXT, trade_volume BIGINT, bid DOUBLE PRECISION,
			ask DOUBLE PRECISION, underlying_price DOUBLE PRECISION, delta DOUBLE PRECISION,
			gamma DOUBLE PRECISION, theta DOUBLE PRECISION, vega DOUBLE PRECISION, rho DOUBLE PRECISION)`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = f.pool.Exec(context.Background(), "DROP TABLE optsimtest_option_chain")
	})
	_, err = f.pool.Exec(ctx, `INSERT INTO optsimtest_option_chain VALUES
		('OPTSIMTEST160219C00025000','OPTSIMTEST','OPTSIMTEST','2016-02-01','2016-02-19',25,'c',10,3.05,3.15,26.1,0.61,NULL,NULL,NULL,NULL)`)
	require.NoError(t, err)

	got, err := f.Get(ctx, "OPTSIMTEST", Filter{ExcludeSplits: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d1, got[0].QuoteDate)
	assert.InDelta(t, 0.61, got[0].Delta, 1e-9)
}

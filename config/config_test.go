package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 10000.0, cfg.Account.Cash)
	assert.Equal(t, "short-put-vertical", cfg.Strategy.Name)
	assert.Equal(t, 10, cfg.Strategy.Sizer.Quantity)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero cash", func(c *Config) { c.Account.Cash = 0 }, "account.cash must be positive"},
		{"bad data type", func(c *Config) { c.Data.Type = "mongo" }, "data.type"},
		{"sqlite without path", func(c *Config) { c.Data.Path = "" }, "data.path required"},
		{"postgres without dsn", func(c *Config) { c.Data.Type = "postgres" }, "data.dsn required"},
		{"memory", func(c *Config) { c.Data.Type = "memory"; c.Data.Path = "" }, ""},
		{"bad start", func(c *Config) { c.Data.Start = "Feb 1" }, "data.start"},
		{"end before start", func(c *Config) { c.Data.Start = "2016-03-01"; c.Data.End = "2016-02-01" }, "before data.start"},
		{"bad option type", func(c *Config) { c.Data.OptionType = "x" }, "data.option_type"},
		{"no strategy", func(c *Config) { c.Strategy.Name = "" }, "strategy.name is required"},
		{"no symbol", func(c *Config) { c.Strategy.Symbol = "" }, "strategy.symbol is required"},
		{"zero width", func(c *Config) { c.Strategy.Width = 0 }, "strategy.width must be positive"},
		{"negative quantity", func(c *Config) { c.Strategy.Quantity = -1 }, "strategy.quantity must be positive"},
		{"negative trend", func(c *Config) { c.Strategy.TrendEMA = -5 }, "strategy.trend_ema"},
		{"dollar sizer without amount", func(c *Config) { c.Strategy.Sizer = SizerConfig{Type: "dollar"} }, "strategy.sizer.amount"},
		{"risk sizer without pct", func(c *Config) { c.Strategy.Sizer = SizerConfig{Type: "risk"} }, "strategy.sizer.risk_pct"},
		{"risk sizer", func(c *Config) { c.Strategy.Sizer = SizerConfig{Type: "risk", RiskPct: 0.02} }, ""},
		{"unknown sizer", func(c *Config) { c.Strategy.Sizer.Type = "kelly" }, "strategy.sizer.type"},
		{"unknown margin", func(c *Config) { c.Models.Margin = "portfolio" }, "unknown margin model"},
		{"unknown commission", func(c *Config) { c.Models.Commission = "flat" }, "unknown commission model"},
		{"negative rate", func(c *Config) { c.Models.PerContract = -0.65 }, "must not be negative"},
		{"csv journal without files", func(c *Config) { c.Journal.Type = "csv" }, "orders_file and equity_file"},
		{"sqlite journal without path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRange(t *testing.T) {
	start, end, err := DataConfig{Start: "2016-01-04", End: "2016-03-31"}.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2016, 3, 31, 0, 0, 0, 0, time.UTC), end)

	start, end, err = DataConfig{}.Range()
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())
}

func TestSaveAndLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Strategy.Name = "iron-condor"
	cfg.Data.Symbols = []string{"SPX", "VXX"}
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveAndLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := Default()
	cfg.Models.Commission = "per-contract"
	cfg.Models.PerContract = 0.65
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  cash: 25000\nstrategy:\n  name: noop\n  symbol: SPY\n  width: 5\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, cfg.Account.Cash)
	assert.Equal(t, "noop", cfg.Strategy.Name)
	assert.Equal(t, "house", cfg.Models.Margin)
	assert.Equal(t, "sqlite", cfg.Data.Type)
}

func TestLoadInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(tmpDir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("account: [1, 2"), 0644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("account:\n  cash: -5\n"), 0644))
	_, err = LoadFromFile(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

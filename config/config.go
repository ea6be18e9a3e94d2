package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/optsim/market"
)

// Config represents one backtest run.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Models   ModelsConfig   `json:"models" yaml:"models"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID   string  `json:"id" yaml:"id"`
	Cash float64 `json:"cash" yaml:"cash"`
}

// DataConfig selects the quote source. Start and End bound option
// expirations and are YYYY-MM-DD.
type DataConfig struct {
	Type          string   `json:"type" yaml:"type"` // sqlite, csv, postgres, memory
	Path          string   `json:"path,omitempty" yaml:"path,omitempty"`
	DSN           string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Symbols       []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Start         string   `json:"start,omitempty" yaml:"start,omitempty"`
	End           string   `json:"end,omitempty" yaml:"end,omitempty"`
	ExcludeSplits bool     `json:"exclude_splits" yaml:"exclude_splits"`
	OptionType    string   `json:"option_type,omitempty" yaml:"option_type,omitempty"`
}

// Range parses Start and End. Empty values are zero times.
func (d DataConfig) Range() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = market.ParseDate(d.Start); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = market.ParseDate(d.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	return start, end, nil
}

// StrategyConfig enumerates every option a built-in strategy reads.
type StrategyConfig struct {
	Name       string      `json:"name" yaml:"name"`
	Symbol     string      `json:"symbol" yaml:"symbol"`
	OptionType string      `json:"option_type,omitempty" yaml:"option_type,omitempty"`
	Width      float64     `json:"width" yaml:"width"`
	DTE        int         `json:"dte" yaml:"dte"`
	Price      float64     `json:"price" yaml:"price"` // target spread mark
	Quantity   int         `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	OrderType  string      `json:"order_type,omitempty" yaml:"order_type,omitempty"`
	TIF        string      `json:"tif,omitempty" yaml:"tif,omitempty"`
	TrendEMA   int         `json:"trend_ema,omitempty" yaml:"trend_ema,omitempty"` // 0 disables the filter
	Sizer      SizerConfig `json:"sizer" yaml:"sizer"`
}

type SizerConfig struct {
	Type     string  `json:"type" yaml:"type"` // fixed, dollar or risk
	Quantity int     `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Amount   float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	RiskPct  float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"` // fraction of NLV
}

type ModelsConfig struct {
	Margin      string  `json:"margin" yaml:"margin"`         // zero or house
	Commission  string  `json:"commission" yaml:"commission"` // zero or per-contract
	PerContract float64 `json:"per_contract,omitempty" yaml:"per_contract,omitempty"`
	PerOrder    float64 `json:"per_order,omitempty" yaml:"per_order,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	OrdersFile string `json:"orders_file,omitempty" yaml:"orders_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath    string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}

	switch c.Data.Type {
	case "sqlite", "csv":
		if c.Data.Path == "" {
			return fmt.Errorf("data.path required for %s data", c.Data.Type)
		}
	case "postgres":
		if c.Data.DSN == "" {
			return fmt.Errorf("data.dsn required for postgres data")
		}
	case "memory":
	default:
		return fmt.Errorf("data.type must be 'sqlite', 'csv', 'postgres' or 'memory'")
	}
	start, end, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("data.end %s is before data.start %s", c.Data.End, c.Data.Start)
	}
	if c.Data.OptionType != "" {
		if _, err := market.ParseOptionType(c.Data.OptionType); err != nil {
			return fmt.Errorf("data.option_type: %w", err)
		}
	}

	s := c.Strategy
	if s.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if s.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required")
	}
	if s.Width <= 0 {
		return fmt.Errorf("strategy.width must be positive")
	}
	if s.DTE < 0 {
		return fmt.Errorf("strategy.dte must not be negative")
	}
	if s.Quantity < 0 {
		return fmt.Errorf("strategy.quantity must be positive")
	}
	if s.TrendEMA < 0 {
		return fmt.Errorf("strategy.trend_ema must not be negative")
	}
	switch s.Sizer.Type {
	case "", "fixed":
		if s.Sizer.Quantity < 0 {
			return fmt.Errorf("strategy.sizer.quantity must be positive")
		}
	case "dollar":
		if s.Sizer.Amount <= 0 {
			return fmt.Errorf("strategy.sizer.amount must be positive")
		}
	case "risk":
		if s.Sizer.RiskPct <= 0 || s.Sizer.RiskPct > 1 {
			return fmt.Errorf("strategy.sizer.risk_pct must be in (0, 1]")
		}
	default:
		return fmt.Errorf("strategy.sizer.type must be 'fixed', 'dollar' or 'risk'")
	}

	switch c.Models.Margin {
	case "", "zero", "none", "house", "tos":
	default:
		return fmt.Errorf("unknown margin model %q", c.Models.Margin)
	}
	switch c.Models.Commission {
	case "", "zero", "none", "per-contract", "per_contract":
	default:
		return fmt.Errorf("unknown commission model %q", c.Models.Commission)
	}
	if c.Models.PerContract < 0 || c.Models.PerOrder < 0 {
		return fmt.Errorf("commission rates must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.OrdersFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal orders_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:   "SIM-001",
			Cash: 10000,
		},
		Data: DataConfig{
			Type:          "sqlite",
			Path:          "./data/options.db",
			Symbols:       []string{"VXX"},
			ExcludeSplits: true,
		},
		Strategy: StrategyConfig{
			Name:   "short-put-vertical",
			Symbol: "VXX",
			Width:  2,
			DTE:    30,
			Price:  1.00,
			Sizer:  SizerConfig{Type: "fixed", Quantity: 10},
		},
		Models: ModelsConfig{
			Margin:     "house",
			Commission: "zero",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

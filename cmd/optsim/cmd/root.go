package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/config"
)

var rootCmd = &cobra.Command{
	Use:   "optsim",
	Short: "An options strategy backtester",
	Long: `Optsim replays historical option chains one quote date at a time and
runs a strategy against a simulated broker.

It provides tools for:
  - Backtesting spread strategies against SQLite, CSV or Postgres chains
  - Margin and commission models
  - Journaling orders, equity and run summaries
  - Importing chain CSV files into SQLite`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel, logFormat)
	},
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	log = logrus.New()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON, default settings when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text|json")
}

func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// loadConfig reads --config, or returns the defaults. Log flags given on
// the command line win over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, err
		}
	}

	level, format := cfg.Log.Level, cfg.Log.Format
	if cmd.Flags().Changed("log-level") || level == "" {
		level = logLevel
	}
	if cmd.Flags().Changed("log-format") || format == "" {
		format = logFormat
	}
	if err := setupLogging(level, format); err != nil {
		return nil, err
	}
	return cfg, nil
}

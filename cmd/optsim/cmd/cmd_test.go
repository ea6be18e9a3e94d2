package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/internal/id"
	"github.com/rustyeddy/optsim/journal"
)

const chainCSV = `symbol,underlying_symbol,root,quote_date,expiration,strike,option_type,bid,ask,underlying_price
VXX160219P00020000,VXX,VXX,2016-01-20,2016-02-19,20,p,0.20,0.30,25
VXX160219P00022000,VXX,VXX,2016-01-20,2016-02-19,22,p,0.95,1.05,25
VXX160219P00024000,VXX,VXX,2016-01-20,2016-02-19,24,p,2.20,2.30,25
VXX160219P00020000,VXX,VXX,2016-02-19,2016-02-19,20,p,0,0,31
VXX160219P00022000,VXX,VXX,2016-02-19,2016-02-19,22,p,0,0,31
VXX160219P00024000,VXX,VXX,2016-02-19,2016-02-19,24,p,0,0,31
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestImportBacktestAndQueryJournal(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "vxx.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(chainCSV), 0644))
	dataDB := filepath.Join(dir, "options.db")
	journalDB := filepath.Join(dir, "journal.db")
	orgPath := filepath.Join(dir, "run.org")

	execute(t, "data", "import", "vxx", csvPath, "--db", dataDB)

	execute(t, "backtest", "--log-level", "warn",
		"--data-type", "sqlite", "--data", dataDB, "--symbol", "VXX",
		"--strategy", "short-put-vertical", "--db", journalDB, "--org", orgPath)

	report, err := os.ReadFile(orgPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "* BACKTEST: short-put-vertical VXX")
	assert.Contains(t, string(report), ":NET_PL:      1250.00")
	assert.Contains(t, string(report), "SETTLED")

	out := execute(t, "journal", "runs", "--db", journalDB)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "short-put-vertical")
	assert.Contains(t, lines[1], "1250.00")
}

func TestRunCreated(t *testing.T) {
	at := time.Date(2016, 3, 1, 14, 30, 0, 0, time.UTC)
	r := journal.BacktestRun{RunID: id.At(at), Created: time.Now()}
	assert.Equal(t, "2016-03-01 14:30", runCreated(r).Format(createdLayout))

	r = journal.BacktestRun{RunID: "TEST", Created: at}
	assert.Equal(t, at, runCreated(r))
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bt.yaml")
	execute(t, "config", "init", "-o", path)

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	execute(t, "config", "validate", "-f", path)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", "json"))
	assert.Error(t, setupLogging("loud", "text"))
	assert.Error(t, setupLogging("info", "xml"))
	require.NoError(t, setupLogging("info", "text"))
}

package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time
	Dataset string

	Symbols  string
	Strategy string
	Config   []byte // strategy config

	Start time.Time
	End   time.Time
	Ticks int

	// Order outcomes
	Orders      int
	Fills       int
	Rejections  int
	Expirations int
	Settlements int

	StartBalance float64
	EndBalance   float64
	Commissions  float64

	// Derived
	NetPL     float64
	ReturnPct float64
	MaxDDPct  float64

	OrgPath string
	Notes   []string
}

// Derive fills NetPL, ReturnPct and MaxDDPct from the balances and the
// equity curve.
func (r *BacktestRun) Derive(equity []EquitySnapshot) {
	r.NetPL = r.EndBalance - r.StartBalance
	if r.StartBalance != 0 {
		r.ReturnPct = r.NetPL / r.StartBalance * 100
	}
	peak, dd := r.StartBalance, 0.0
	for _, e := range equity {
		v := e.NetLiquidatingValue
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if d := (peak - v) / peak * 100; d > dd {
				dd = d
			}
		}
	}
	r.MaxDDPct = dd
}

var backtestOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run as an Org-mode block.
func (r *BacktestRun) Org() (string, error) {
	var buf bytes.Buffer
	if err := backtestOrg.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render run %s: %w", r.RunID, err)
	}
	return buf.String(), nil
}

func (r *BacktestRun) WriteBacktestOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", r.RunID)
	}
	s, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.Symbols}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOLS:     {{.Symbols}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:TICKS:       {{.Ticks}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:COMMISSIONS: {{printf "%.2f" .Commissions}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
{{- if .Config }}
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src
{{- else }}
# (no config recorded)
{{- end }}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Commissions:      *{{printf "%.2f" .Commissions}}*

** Order Outcomes
| Outcome     | Count |
|-------------+-------|
| Orders      | {{.Orders}} |
| Fills       | {{.Fills}} |
| Rejections  | {{.Rejections}} |
| Expirations | {{.Expirations}} |
| Settlements | {{.Settlements}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

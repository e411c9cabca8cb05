package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/pkg/utils"
)

const generatedLayout = "2006-01-02 15:04:05"

// Document is one exportable dataset rendered on demand in any Format.
type Document struct {
	Name     string
	Table    Table
	Data     any
	Markdown string
	// parquet is nil for datasets without a columnar form.
	parquet func(w io.Writer) error
}

// Write renders d in format f.
func (d Document) Write(w io.Writer, f Format) error {
	switch f {
	case CSV:
		return d.Table.WriteCSV(w)
	case JSON:
		return WriteJSON(w, d.Data)
	case Excel:
		return d.Table.WriteExcel(w)
	case Markdown:
		_, err := io.WriteString(w, d.Markdown)
		return err
	case Parquet:
		if d.parquet == nil {
			return fmt.Errorf("%s cannot be exported as parquet", d.Name)
		}
		return d.parquet(w)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// FileName is "<name>_<YYYYmmdd_HHMMSS>.<format>".
func (d Document) FileName(f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", d.Name, now.Format("20060102_150405"), f)
}

// Save renders d into dir and returns the written path.
func (d Document) Save(dir string, f Format, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf, f); err != nil {
		return "", err
	}
	return utils.WriteFile(dir, d.FileName(f, now), buf.Bytes())
}

// Money formats v as "$1,234.56".
func Money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + frac
}

type positionRecord struct {
	Ticker       string  `parquet:"ticker"`
	Shares       float64 `parquet:"shares"`
	AvgPrice     float64 `parquet:"avg_price"`
	CostBasis    float64 `parquet:"cost_basis"`
	CurrentPrice float64 `parquet:"current_price"`
	CurrentValue float64 `parquet:"current_value"`
	PurchaseDate string  `parquet:"purchase_date"`
}

func Portfolio(positions []portfolio.Position, m portfolio.Metrics, now time.Time) Document {
	table := Table{
		Sheet:   "Portfolio",
		Columns: []string{"ticker", "shares", "avg_price", "cost_basis", "current_price", "current_value", "purchase_date"},
	}
	records := make([]positionRecord, 0, len(positions))
	for _, p := range positions {
		table.Rows = append(table.Rows, []any{p.Ticker, p.Shares, p.AvgPrice, p.CostBasis, p.CurrentPrice, p.CurrentValue, p.PurchaseDate})
		records = append(records, positionRecord{
			Ticker:       p.Ticker,
			Shares:       p.Shares.InexactFloat64(),
			AvgPrice:     p.AvgPrice.InexactFloat64(),
			CostBasis:    p.CostBasis.InexactFloat64(),
			CurrentPrice: p.CurrentPrice.InexactFloat64(),
			CurrentValue: p.CurrentValue.InexactFloat64(),
			PurchaseDate: p.PurchaseDate,
		})
	}

	var b strings.Builder
	b.WriteString("# Portfolio Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(generatedLayout))
	b.WriteString("## Portfolio Summary\n\n")
	fmt.Fprintf(&b, "- **Total Value:** %s\n", Money(m.TotalValue.InexactFloat64()))
	fmt.Fprintf(&b, "- **Total Cost:** %s\n", Money(m.TotalCost.InexactFloat64()))
	fmt.Fprintf(&b, "- **Gain/Loss:** %s\n", Money(m.GainLoss.InexactFloat64()))
	fmt.Fprintf(&b, "- **Total Return:** %.2f%%\n", m.TotalReturn)
	fmt.Fprintf(&b, "- **Number of Positions:** %d\n\n", m.NumPositions)
	if len(positions) > 0 {
		b.WriteString("## Position Details\n\n")
		b.WriteString("| Ticker | Shares | Avg Price | Current Price | Cost Basis | Current Value | Gain/Loss | Return (%) |\n")
		b.WriteString("|--------|--------|-----------|---------------|------------|---------------|-----------|------------|\n")
		for _, p := range positions {
			fmt.Fprintf(&b, "| %s | %s | $%s | $%s | $%s | $%s | $%s | %.2f%% |\n",
				p.Ticker, p.Shares.StringFixed(2), p.AvgPrice.StringFixed(2), p.CurrentPrice.StringFixed(2),
				p.CostBasis.StringFixed(2), p.CurrentValue.StringFixed(2), p.GainLoss().StringFixed(2), p.ReturnPct())
		}
	}

	return Document{
		Name:     "portfolio",
		Table:    table,
		Data:     positions,
		Markdown: b.String(),
		parquet:  func(w io.Writer) error { return parquet.Write(w, records) },
	}
}

type tradeRecord struct {
	Ticker string  `parquet:"ticker"`
	Date   string  `parquet:"date"`
	Action string  `parquet:"action"`
	Shares int64   `parquet:"shares"`
	Price  float64 `parquet:"price"`
	Value  float64 `parquet:"value"`
}

func Backtest(r backtest.Result, m backtest.Metrics, now time.Time) Document {
	table := Table{Sheet: "Trades", Columns: []string{"date", "action", "shares", "price", "value"}}
	records := make([]tradeRecord, 0, len(r.Trades))
	for _, t := range r.Trades {
		table.Rows = append(table.Rows, []any{t.Date, t.Action, t.Shares, t.Price, t.Value})
		records = append(records, tradeRecord{Ticker: r.Ticker, Date: t.Date, Action: string(t.Action), Shares: t.Shares, Price: t.Price, Value: t.Value})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest Report: %s\n\n", r.Ticker)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(generatedLayout))
	b.WriteString("## Strategy Performance\n\n")
	fmt.Fprintf(&b, "- **Initial Capital:** %s\n", Money(r.InitialCapital))
	fmt.Fprintf(&b, "- **Final Value:** %s\n", Money(r.FinalValue))
	fmt.Fprintf(&b, "- **Total Return:** %.2f%%\n", r.TotalReturn)
	fmt.Fprintf(&b, "- **Number of Trades:** %d\n\n", r.NumTrades)
	b.WriteString("## Risk Metrics\n\n")
	fmt.Fprintf(&b, "- **Sharpe Ratio:** %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "- **Max Drawdown:** %.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(&b, "- **Win Rate:** %.1f%%\n\n", m.WinRate)
	if len(r.Trades) > 0 {
		b.WriteString("## Trade History\n\n")
		b.WriteString("| Date | Action | Shares | Price | Value |\n")
		b.WriteString("|------|--------|--------|-------|-------|\n")
		for _, t := range r.Trades {
			fmt.Fprintf(&b, "| %s | %s | %d | $%.2f | $%.2f |\n", t.Date, t.Action, t.Shares, t.Price, t.Value)
		}
	}

	return Document{
		Name:  "backtest_" + r.Ticker,
		Table: table,
		Data: struct {
			backtest.Result
			Metrics backtest.Metrics `json:"metrics"`
		}{r, m},
		Markdown: b.String(),
		parquet:  func(w io.Writer) error { return parquet.Write(w, records) },
	}
}

// ComparisonRow pairs a ticker summary with its backtest metrics when a
// backtest could be run.
type ComparisonRow struct {
	reports.TickerSummary
	Metrics *backtest.Metrics `json:"metrics,omitempty"`
}

func Comparison(rows []ComparisonRow, now time.Time) Document {
	table := Table{
		Sheet:   "Comparison",
		Columns: []string{"Ticker", "Latest Date", "Latest Decision", "Total Analyses", "Total Return (%)", "Sharpe Ratio", "Max Drawdown (%)", "Win Rate (%)"},
	}
	tickers := make([]string, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, r.Ticker)
		row := []any{r.Ticker, r.LatestDate, r.LatestDecision, r.TotalAnalyses}
		if r.Metrics != nil {
			row = append(row, r.Metrics.TotalReturn, r.Metrics.SharpeRatio, r.Metrics.MaxDrawdown, r.Metrics.WinRate)
		} else {
			row = append(row, "", "", "", "")
		}
		table.Rows = append(table.Rows, row)
	}

	var b strings.Builder
	b.WriteString("# Multi-Ticker Comparison Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(generatedLayout))
	fmt.Fprintf(&b, "**Tickers Analyzed:** %s\n\n", strings.Join(tickers, ", "))
	b.WriteString("## Performance Comparison\n\n")
	b.WriteString("| Ticker | Latest Date | Latest Decision | Total Analyses |\n")
	b.WriteString("|--------|-------------|-----------------|----------------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", r.Ticker, orNA(r.LatestDate), r.LatestDecision, r.TotalAnalyses)
	}

	var backtested []ComparisonRow
	for _, r := range rows {
		if r.Metrics != nil {
			backtested = append(backtested, r)
		}
	}
	if len(backtested) > 0 {
		b.WriteString("\n## Backtest Comparison\n\n")
		b.WriteString("| Ticker | Total Return | Sharpe Ratio | Max Drawdown | Win Rate |\n")
		b.WriteString("|--------|--------------|--------------|--------------|----------|\n")
		for _, r := range backtested {
			fmt.Fprintf(&b, "| %s | %.2f%% | %.2f | %.2f%% | %.1f%% |\n",
				r.Ticker, r.Metrics.TotalReturn, r.Metrics.SharpeRatio, r.Metrics.MaxDrawdown, r.Metrics.WinRate)
		}
	}

	return Document{Name: "comparison", Table: table, Data: rows, Markdown: b.String()}
}

// Alerts exports the fired alert history as a table and every alert as JSON.
func Alerts(list, triggered []alerts.Alert, now time.Time) Document {
	table := Table{
		Sheet:   "Alerts",
		Columns: []string{"id", "ticker", "type", "condition", "created_at", "triggered_at", "trigger_value"},
	}
	for _, a := range triggered {
		table.Rows = append(table.Rows, []any{a.ID, a.Ticker, string(a.Type), a.Condition(), a.CreatedAt, a.TriggeredAt, a.TriggerValue})
	}

	active := alerts.ActiveOnly(list)
	var b strings.Builder
	b.WriteString("# Trading Alerts Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format(generatedLayout))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Active Alerts:** %d\n", len(active))
	fmt.Fprintf(&b, "- **Triggered Alerts:** %d\n\n", len(triggered))
	if len(active) > 0 {
		b.WriteString("## Active Alerts\n\n")
		b.WriteString("| Ticker | Type | Created At | Status |\n")
		b.WriteString("|--------|------|------------|--------|\n")
		for _, a := range active {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", a.Ticker, a.Type, a.CreatedAt, a.Status())
		}
	}
	if len(triggered) > 0 {
		b.WriteString("\n## Triggered Alerts History\n\n")
		b.WriteString("| Ticker | Type | Triggered At | Trigger Value |\n")
		b.WriteString("|--------|------|--------------|---------------|\n")
		for _, a := range triggered {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", a.Ticker, a.Type, orNA(a.TriggeredAt), orNA(a.TriggerValue))
		}
	}

	return Document{Name: "alerts", Table: table, Data: list, Markdown: b.String()}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

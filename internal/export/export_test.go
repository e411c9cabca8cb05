package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

var exportNow = time.Date(2024, 6, 1, 8, 5, 9, 0, time.UTC)

func sampleResult() (backtest.Result, backtest.Metrics) {
	r := backtest.Result{
		Ticker: "AAPL",
		Trades: []backtest.Trade{
			{Date: "2024-01-02", Action: mdparse.DecisionBuy, Shares: 10, Price: 100, Value: 1000},
			{Date: "2024-01-09", Action: mdparse.DecisionSell, Shares: 10, Price: 120, Value: 1200},
		},
		PortfolioHistory: []backtest.Snapshot{
			{Date: "2024-01-02", PortfolioValue: 10000, Cash: 9000, Shares: 10, StockValue: 1000},
			{Date: "2024-01-09", PortfolioValue: 10200, Cash: 10200},
		},
		InitialCapital: 10000,
		FinalValue:     10200,
		TotalReturn:    2,
		NumTrades:      2,
	}
	return r, backtest.ComputeMetrics(r)
}

func samplePositions(t *testing.T) []portfolio.Position {
	t.Helper()
	p, err := portfolio.NewPosition("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), "2024-01-02")
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	return []portfolio.Position{p.WithPrice(decimal.NewFromInt(150))}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"CSV": CSV, "excel": Excel, "xlsx": Excel, "report": Markdown, "json": JSON, "parquet": Parquet}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("expected error for pdf")
	}
}

func TestMoney(t *testing.T) {
	cases := map[float64]string{0: "$0.00", 999.5: "$999.50", 1234.567: "$1,234.57", 1234567: "$1,234,567.00", -2500: "-$2,500.00"}
	for in, want := range cases {
		if got := Money(in); got != want {
			t.Fatalf("Money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTableCSV(t *testing.T) {
	r, m := sampleResult()
	doc := Backtest(r, m, exportNow)

	var buf bytes.Buffer
	if err := doc.Write(&buf, CSV); err != nil {
		t.Fatalf("Write csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 || strings.Join(records[0], ",") != "date,action,shares,price,value" {
		t.Fatalf("unexpected csv %v", records)
	}
	if strings.Join(records[2], ",") != "2024-01-09,SELL,10,120,1200" {
		t.Fatalf("unexpected row %v", records[2])
	}

	buf.Reset()
	if err := (Table{Columns: []string{"a"}}).WriteCSV(&buf); err != nil || buf.Len() != 0 {
		t.Fatalf("empty table should write nothing, got %q %v", buf.String(), err)
	}
}

func TestExcelHeaderStyle(t *testing.T) {
	doc := Portfolio(samplePositions(t), portfolio.ComputeMetrics(samplePositions(t)), exportNow)

	var buf bytes.Buffer
	if err := doc.Write(&buf, Excel); err != nil {
		t.Fatalf("Write xlsx: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("Portfolio", "A1"); v != "ticker" {
		t.Fatalf("unexpected header %q", v)
	}
	if v, _ := f.GetCellValue("Portfolio", "F2"); v != "1500" {
		t.Fatalf("unexpected current value cell %q", v)
	}
	styleID, err := f.GetCellStyle("Portfolio", "A1")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("GetStyle: %v", err)
	}
	if style.Font == nil || !style.Font.Bold || len(style.Fill.Color) == 0 || !strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), "4472C4") {
		t.Fatalf("header not styled: %+v", style)
	}
}

func TestJSONAndParquet(t *testing.T) {
	r, m := sampleResult()
	doc := Backtest(r, m, exportNow)

	var buf bytes.Buffer
	if err := doc.Write(&buf, JSON); err != nil {
		t.Fatalf("Write json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded["ticker"] != "AAPL" || decoded["metrics"] == nil {
		t.Fatalf("unexpected json %v", decoded)
	}

	buf.Reset()
	if err := doc.Write(&buf, Parquet); err != nil {
		t.Fatalf("Write parquet: %v", err)
	}
	rows, err := parquet.Read[tradeRecord](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 2 || rows[1].Action != "SELL" || rows[1].Value != 1200 {
		t.Fatalf("unexpected parquet rows %+v", rows)
	}

	alertsDoc := Alerts(nil, nil, exportNow)
	if err := alertsDoc.Write(&buf, Parquet); err == nil {
		t.Fatal("alerts should not support parquet")
	}
}

func TestMarkdownReports(t *testing.T) {
	r, m := sampleResult()
	md := Backtest(r, m, exportNow).Markdown
	for _, want := range []string{
		"# Backtest Report: AAPL",
		"**Generated:** 2024-06-01 08:05:09",
		"- **Initial Capital:** $10,000.00",
		"- **Win Rate:** 100.0%",
		"| 2024-01-02 | BUY | 10 | $100.00 | $1000.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("backtest report missing %q:\n%s", want, md)
		}
	}

	positions := samplePositions(t)
	md = Portfolio(positions, portfolio.ComputeMetrics(positions), exportNow).Markdown
	if !strings.Contains(md, "- **Total Return:** 50.00%") || !strings.Contains(md, "| AAPL | 10.00 | $100.00 | $150.00 | $1000.00 | $1500.00 | $500.00 | 50.00% |") {
		t.Fatalf("unexpected portfolio report:\n%s", md)
	}

	rows := []ComparisonRow{
		{TickerSummary: reports.TickerSummary{Ticker: "AAPL", TotalAnalyses: 2, LatestDate: "2024-01-09", LatestDecision: mdparse.DecisionSell}, Metrics: &m},
		{TickerSummary: reports.TickerSummary{Ticker: "MSFT"}},
	}
	md = Comparison(rows, exportNow).Markdown
	if !strings.Contains(md, "**Tickers Analyzed:** AAPL, MSFT") || !strings.Contains(md, "| MSFT | N/A | N/A | 0 |") {
		t.Fatalf("unexpected comparison report:\n%s", md)
	}
	if !strings.Contains(md, "## Backtest Comparison") {
		t.Fatalf("comparison report missing backtest section:\n%s", md)
	}

	a, _ := alerts.New(alerts.PriceAbove, "AAPL", alerts.Params{TargetPrice: 100}, exportNow)
	fired := a
	fired.Triggered = true
	fired.TriggeredAt = "2024-06-01 09:00:00"
	fired.TriggerValue = "101.00"
	md = Alerts([]alerts.Alert{a}, []alerts.Alert{fired}, exportNow).Markdown
	if !strings.Contains(md, "- **Active Alerts:** 1") || !strings.Contains(md, "| AAPL | price_above | 2024-06-01 09:00:00 | 101.00 |") {
		t.Fatalf("unexpected alerts report:\n%s", md)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	positions := samplePositions(t)
	path, err := Portfolio(positions, portfolio.ComputeMetrics(positions), exportNow).Save(dir, Markdown, exportNow)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "portfolio_20240601_080509.md" {
		t.Fatalf("unexpected file name %s", path)
	}
	if data, _ := os.ReadFile(path); !bytes.HasPrefix(data, []byte("# Portfolio Report")) {
		t.Fatalf("unexpected saved content %q", data)
	}
}

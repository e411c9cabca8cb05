package backtest

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

func rec(date string, d mdparse.Decision) reports.DecisionRecord {
	return reports.DecisionRecord{Date: date, Ticker: "TEST", Decision: d}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRunBuyThenSell(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{"2024-01-02": 10, "2024-01-03": 12})
	history := []reports.DecisionRecord{
		rec("2024-01-02", mdparse.DecisionBuy),
		rec("2024-01-03", mdparse.DecisionSell),
	}

	r := Run("TEST", history, 100, prices)

	if r.NumTrades != 2 || len(r.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", r.NumTrades)
	}
	buy, sell := r.Trades[0], r.Trades[1]
	if buy.Action != mdparse.DecisionBuy || buy.Shares != 10 || buy.Price != 10 || buy.Value != 100 {
		t.Fatalf("unexpected buy: %+v", buy)
	}
	if sell.Action != mdparse.DecisionSell || sell.Shares != 10 || sell.Value != 120 {
		t.Fatalf("unexpected sell: %+v", sell)
	}
	if r.PortfolioHistory[0].Cash != 0 || r.PortfolioHistory[0].StockValue != 100 {
		t.Fatalf("unexpected first snapshot: %+v", r.PortfolioHistory[0])
	}
	if r.FinalValue != 120 || !almostEqual(r.TotalReturn, 20) {
		t.Fatalf("final=%v return=%v, want 120 and 20", r.FinalValue, r.TotalReturn)
	}
}

func TestRunInsufficientCash(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{"2024-01-02": 10, "2024-01-03": 10})
	history := []reports.DecisionRecord{
		rec("2024-01-02", mdparse.DecisionBuy),
		rec("2024-01-03", mdparse.DecisionHold),
	}

	r := Run("TEST", history, 5, prices)

	if r.NumTrades != 0 {
		t.Fatalf("expected no trades, got %+v", r.Trades)
	}
	for _, s := range r.PortfolioHistory {
		if s.Cash != 5 || s.Shares != 0 {
			t.Fatalf("cash should stay 5, got %+v", s)
		}
	}
	if r.FinalValue != 5 {
		t.Fatalf("final value = %v", r.FinalValue)
	}
}

func TestRunSortsInputAndIsIdempotent(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{
		"2024-01-02": 10, "2024-01-03": 12, "2024-01-04": 9, "2024-01-05": 11,
	})
	newestFirst := []reports.DecisionRecord{
		rec("2024-01-05", mdparse.DecisionSell),
		rec("2024-01-04", mdparse.DecisionBuy),
		rec("2024-01-03", mdparse.DecisionSell),
		rec("2024-01-02", mdparse.DecisionBuy),
	}

	first := Run("TEST", newestFirst, 1000, prices)
	second := Run("TEST", newestFirst, 1000, prices)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different results")
	}
	if !reflect.DeepEqual(ComputeMetrics(first), ComputeMetrics(second)) {
		t.Fatal("identical inputs produced different metrics")
	}
	if first.Trades[0].Date != "2024-01-02" || first.Trades[0].Action != mdparse.DecisionBuy {
		t.Fatalf("decisions not replayed oldest first: %+v", first.Trades)
	}
	if newestFirst[0].Date != "2024-01-05" {
		t.Fatal("Run must not reorder the caller's slice")
	}
}

func TestRunNeverGoesNegative(t *testing.T) {
	closes := map[string]float64{}
	var history []reports.DecisionRecord
	decisions := []mdparse.Decision{
		mdparse.DecisionSell, mdparse.DecisionBuy, mdparse.DecisionBuy, mdparse.DecisionSell,
		mdparse.DecisionSell, mdparse.DecisionHold, mdparse.DecisionBuy, mdparse.DecisionNone,
	}
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, d := range decisions {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		closes[date] = 7.5 + float64(i%3)
		history = append(history, rec(date, d))
	}

	r := Run("TEST", history, 100, NewPriceSeries(closes))
	for _, s := range r.PortfolioHistory {
		if s.Shares < 0 || s.Cash < 0 {
			t.Fatalf("invalid snapshot %+v", s)
		}
	}
	if len(r.PortfolioHistory) != len(decisions) {
		t.Fatalf("expected a snapshot per record, got %d", len(r.PortfolioHistory))
	}
}

func TestRunTooFewDecisions(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{"2024-01-02": 10, "2024-01-03": 12})
	cases := [][]reports.DecisionRecord{
		nil,
		{rec("2024-01-02", mdparse.DecisionBuy)},
		{rec("2024-01-02", mdparse.DecisionBuy), rec("2024-01-03", mdparse.DecisionNone)},
	}
	for i, history := range cases {
		r := Run("TEST", history, 100, prices)
		if r.NumTrades != 0 || len(r.Trades) != 0 {
			t.Fatalf("case %d: expected zero trades, got %+v", i, r.Trades)
		}
		if r.FinalValue != 100 || r.TotalReturn != 0 {
			t.Fatalf("case %d: capital should be untouched, got %+v", i, r)
		}
	}
}

func TestRunMarksOpenPositionAtLastClose(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{"2024-01-02": 10, "2024-01-03": 11, "2024-01-10": 15})
	history := []reports.DecisionRecord{
		rec("2024-01-02", mdparse.DecisionBuy),
		rec("2024-01-03", mdparse.DecisionHold),
	}
	r := Run("TEST", history, 100, prices)
	if r.FinalValue != 150 || !almostEqual(r.TotalReturn, 50) {
		t.Fatalf("final=%v return=%v, want 150 and 50", r.FinalValue, r.TotalReturn)
	}
}

func TestRunSkipsUnresolvableDates(t *testing.T) {
	history := []reports.DecisionRecord{
		rec("2024-01-02", mdparse.DecisionBuy),
		rec("2024-01-03", mdparse.DecisionSell),
	}
	r := Run("TEST", history, 100, NewPriceSeries(nil))
	if len(r.PortfolioHistory) != 0 || r.NumTrades != 0 || r.FinalValue != 100 {
		t.Fatalf("expected an empty run, got %+v", r)
	}
}

func TestResolveNearest(t *testing.T) {
	ps := NewPriceSeries(map[string]float64{"2024-01-02": 10, "2024-01-05": 20, "2024-01-09": 30})
	cases := map[string]float64{
		"2024-01-02": 10,
		"2024-01-03": 10,
		"2024-01-04": 20,
		"2024-01-07": 30, // tie between 01-05 and 01-09 goes to the later day
		"2023-12-01": 10,
		"2024-03-01": 30,
	}
	for date, want := range cases {
		got, ok := ps.Resolve(date)
		if !ok || got != want {
			t.Fatalf("Resolve(%s) = %v, %v; want %v", date, got, ok, want)
		}
	}
	if _, ok := ps.Resolve("not-a-date"); ok {
		t.Fatal("expected unparseable date to be unresolved")
	}

	// Independence Day falls between two trading days.
	holiday := NewPriceSeries(map[string]float64{"2024-07-03": 100, "2024-07-05": 200})
	if got, _ := holiday.Resolve("2024-07-04"); got != 200 {
		t.Fatalf("Resolve(2024-07-04) = %v, want the next close 200", got)
	}
}

func TestRunTradesAtNextCloseOnTie(t *testing.T) {
	prices := NewPriceSeries(map[string]float64{"2024-07-03": 100, "2024-07-05": 200, "2024-07-08": 250})
	history := []reports.DecisionRecord{
		rec("2024-07-04", mdparse.DecisionBuy),
		rec("2024-07-08", mdparse.DecisionSell),
	}
	r := Run("AAPL", history, 1000, prices)
	if len(r.Trades) != 2 || r.Trades[0].Price != 200 || r.Trades[0].Shares != 5 {
		t.Fatalf("unexpected trades %+v", r.Trades)
	}
	if r.FinalValue != 1250 {
		t.Fatalf("final value = %v, want 1250", r.FinalValue)
	}
}

func TestSharpeRatio(t *testing.T) {
	returns := PctChanges([]float64{100, 110, 104.5})
	want := 0.025 / math.Sqrt(0.01125) * math.Sqrt(252)
	if got := SharpeRatio(returns); math.Abs(got-want) > 1e-9 {
		t.Fatalf("SharpeRatio = %v, want %v", got, want)
	}
	if got := SharpeRatio([]float64{0.5, 0.5, 0.5}); got != 0 {
		t.Fatalf("flat returns Sharpe = %v", got)
	}
	if got := SharpeRatio([]float64{0.1}); got != 0 {
		t.Fatalf("single return Sharpe = %v", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	if got := MaxDrawdown([]float64{100, 120, 90, 130, 117}); !almostEqual(got, 25) {
		t.Fatalf("MaxDrawdown = %v, want 25", got)
	}
	if got := MaxDrawdown([]float64{100, 101, 102}); got != 0 {
		t.Fatalf("MaxDrawdown rising = %v", got)
	}
}

func TestWinRate(t *testing.T) {
	buy := func(v float64) Trade { return Trade{Action: mdparse.DecisionBuy, Value: v} }
	sell := func(v float64) Trade { return Trade{Action: mdparse.DecisionSell, Value: v} }

	cases := []struct {
		name   string
		trades []Trade
		want   float64
	}{
		{"none", nil, 0},
		{"single", []Trade{buy(100)}, 0},
		{"one win one loss", []Trade{buy(100), sell(120), buy(120), sell(110)}, 50},
		{"open position ignored", []Trade{buy(100), sell(120), buy(100)}, 100},
		{"misaligned pair", []Trade{buy(100), buy(50), sell(200)}, 0},
	}
	for _, c := range cases {
		if got := WinRate(c.trades); !almostEqual(got, c.want) {
			t.Fatalf("%s: WinRate = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestComputeMetricsEmpty(t *testing.T) {
	if m := ComputeMetrics(Result{}); m != (Metrics{}) {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
}

type stubProvider struct {
	bars []dataflows.Bar
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Quote(ctx context.Context, symbol string) (*dataflows.Quote, error) {
	return dataflows.QuoteFromBars(symbol, s.bars)
}

func (s stubProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]dataflows.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return dataflows.FilterBars(s.bars, start, end), nil
}

func stubBar(date string, price float64) dataflows.Bar {
	d, _ := time.Parse(dateLayout, date)
	return dataflows.Bar{Symbol: "TEST", Date: d, Close: decimal.NewFromFloat(price)}
}

func TestBacktesterRunTicker(t *testing.T) {
	bt := NewBacktester(stubProvider{bars: []dataflows.Bar{
		stubBar("2024-01-02", 10), stubBar("2024-01-03", 12),
	}})
	bt.Now = func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }

	history := []reports.DecisionRecord{
		rec("2024-01-03", mdparse.DecisionSell),
		rec("2024-01-02", mdparse.DecisionBuy),
	}
	r, m, err := bt.RunTicker(context.Background(), "TEST", history, 100)
	if err != nil {
		t.Fatalf("RunTicker: %v", err)
	}
	if r.FinalValue != 120 || m.WinRate != 100 || m.NumTrades != 2 {
		t.Fatalf("unexpected result %+v metrics %+v", r, m)
	}

	_, _, err = bt.RunTicker(context.Background(), "TEST", history[:1], 100)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestCompareTickers(t *testing.T) {
	bt := NewBacktester(stubProvider{bars: []dataflows.Bar{
		stubBar("2024-01-02", 10), stubBar("2024-01-03", 12),
	}})
	bt.Now = func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }

	histories := map[string][]reports.DecisionRecord{
		"WIN":  {rec("2024-01-02", mdparse.DecisionBuy), rec("2024-01-03", mdparse.DecisionSell)},
		"FLAT": {rec("2024-01-02", mdparse.DecisionHold), rec("2024-01-03", mdparse.DecisionHold)},
		"TINY": {rec("2024-01-02", mdparse.DecisionBuy)},
	}
	rows, failures := bt.CompareTickers(context.Background(), histories, 100)
	if len(rows) != 2 || rows[0].Ticker != "WIN" || rows[1].Ticker != "FLAT" {
		t.Fatalf("unexpected comparison rows: %+v", rows)
	}
	if !errors.Is(failures["TINY"], ErrInsufficientHistory) {
		t.Fatalf("expected TINY to fail, got %v", failures)
	}
}

package backtest

import (
	"math"
	"sort"

	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

const tradingDaysPerYear = 252

type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	NumTrades   int     `json:"num_trades"`
	FinalValue  float64 `json:"final_value"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
}

// ComputeMetrics derives strategy statistics from a run. A run without
// snapshots has all-zero metrics.
func ComputeMetrics(r Result) Metrics {
	if len(r.PortfolioHistory) == 0 {
		return Metrics{}
	}
	values := make([]float64, len(r.PortfolioHistory))
	for i, s := range r.PortfolioHistory {
		values[i] = s.PortfolioValue
	}
	return Metrics{
		TotalReturn: r.TotalReturn,
		NumTrades:   r.NumTrades,
		FinalValue:  r.FinalValue,
		SharpeRatio: SharpeRatio(PctChanges(values)),
		MaxDrawdown: MaxDrawdown(values),
		WinRate:     WinRate(r.Trades),
	}
}

// PctChanges returns the successive fractional changes of values. Steps from
// a zero value are dropped.
func PctChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStdDev is the n-1 standard deviation; 0 for fewer than two values.
func SampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// SharpeRatio annualises mean/stdev of daily returns; 0 when stdev is 0.
func SharpeRatio(returns []float64) float64 {
	sd := SampleStdDev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown is the largest peak-to-trough fall of values, in percent.
func MaxDrawdown(values []float64) float64 {
	var peak, worst float64
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return worst * 100
}

// WinRate pairs trades two at a time in emission order. A pair is a win when
// it is a BUY followed by a SELL of greater value. The denominator is every
// complete pair, matched or not.
func WinRate(trades []Trade) float64 {
	pairs := len(trades) / 2
	if pairs == 0 {
		return 0
	}
	wins := 0
	for i := 0; i+1 < len(trades); i += 2 {
		buy, sell := trades[i], trades[i+1]
		if buy.Action == mdparse.DecisionBuy && sell.Action == mdparse.DecisionSell && sell.Value > buy.Value {
			wins++
		}
	}
	return float64(wins) / float64(pairs) * 100
}

// Comparison is one row of a multi-ticker comparison.
type Comparison struct {
	Ticker  string  `json:"ticker"`
	Metrics Metrics `json:"metrics"`
	Result  Result  `json:"result"`
}

// Compare builds comparison rows ordered by total return, best first.
func Compare(results []Result) []Comparison {
	rows := make([]Comparison, 0, len(results))
	for _, r := range results {
		rows = append(rows, Comparison{Ticker: r.Ticker, Metrics: ComputeMetrics(r), Result: r})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Result.TotalReturn > rows[j].Result.TotalReturn
	})
	return rows
}

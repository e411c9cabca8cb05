package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

type Position struct {
	Ticker       string          `json:"ticker"`
	Shares       decimal.Decimal `json:"shares"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	PurchaseDate string          `json:"purchase_date"`
}

// NewPosition values a fresh position at its purchase price.
func NewPosition(ticker string, shares, avgPrice decimal.Decimal, purchaseDate string) (Position, error) {
	ticker = dataflows.NormalizeSymbol(ticker)
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return Position{}, err
	}
	if !shares.IsPositive() {
		return Position{}, errors.New("shares must be positive")
	}
	if avgPrice.IsNegative() {
		return Position{}, errors.New("avg_price cannot be negative")
	}
	if purchaseDate != "" {
		if _, err := time.Parse(dateLayout, purchaseDate); err != nil {
			return Position{}, fmt.Errorf("invalid purchase_date %q: want YYYY-MM-DD", purchaseDate)
		}
	}
	p := Position{
		Ticker:       ticker,
		Shares:       shares,
		AvgPrice:     avgPrice,
		CostBasis:    shares.Mul(avgPrice),
		PurchaseDate: purchaseDate,
	}
	return p.WithPrice(avgPrice), nil
}

// WithPrice revalues p at price.
func (p Position) WithPrice(price decimal.Decimal) Position {
	p.CurrentPrice = price
	p.CurrentValue = p.Shares.Mul(price)
	return p
}

func (p Position) GainLoss() decimal.Decimal {
	return p.CurrentValue.Sub(p.CostBasis)
}

// ReturnPct is the gain or loss relative to cost, in percent; 0 without cost.
func (p Position) ReturnPct() float64 {
	if !p.CostBasis.IsPositive() {
		return 0
	}
	return p.GainLoss().Div(p.CostBasis).Mul(hundred).InexactFloat64()
}

// Merge adds more shares of the same ticker at a new price. The average
// price becomes the cost-weighted mean; the earlier purchase date is kept.
func (p Position) Merge(add Position) Position {
	shares := p.Shares.Add(add.Shares)
	cost := p.CostBasis.Add(add.CostBasis)
	out := p
	out.Shares = shares
	out.CostBasis = cost
	if shares.IsPositive() {
		out.AvgPrice = cost.Div(shares).Round(4)
	}
	if out.PurchaseDate == "" || (add.PurchaseDate != "" && add.PurchaseDate < out.PurchaseDate) {
		out.PurchaseDate = add.PurchaseDate
	}
	price := p.CurrentPrice
	if !add.CurrentPrice.IsZero() {
		price = add.CurrentPrice
	}
	return out.WithPrice(price)
}

type Metrics struct {
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	GainLoss     decimal.Decimal `json:"total_gain_loss"`
	TotalReturn  float64         `json:"total_return"`
	NumPositions int             `json:"num_positions"`
}

func ComputeMetrics(positions []Position) Metrics {
	var m Metrics
	for _, p := range positions {
		m.TotalValue = m.TotalValue.Add(p.CurrentValue)
		m.TotalCost = m.TotalCost.Add(p.CostBasis)
	}
	m.GainLoss = m.TotalValue.Sub(m.TotalCost)
	if m.TotalCost.IsPositive() {
		m.TotalReturn = m.GainLoss.Div(m.TotalCost).Mul(hundred).InexactFloat64()
	}
	m.NumPositions = len(positions)
	return m
}

type RiskMetrics struct {
	Volatility  float64 `json:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// ComputeRisk pools the daily returns of every series, in order, and derives
// annualised volatility and Sharpe plus the worst fall of the cumulative
// return sum. All three are percentages except Sharpe.
func ComputeRisk(series [][]float64) RiskMetrics {
	var returns []float64
	for _, closes := range series {
		returns = append(returns, backtest.PctChanges(closes)...)
	}
	if len(returns) == 0 {
		return RiskMetrics{}
	}
	return RiskMetrics{
		Volatility:  backtest.SampleStdDev(returns) * math.Sqrt(252) * 100,
		SharpeRatio: backtest.SharpeRatio(returns),
		MaxDrawdown: cumulativeDrawdown(returns) * 100,
	}
}

func cumulativeDrawdown(returns []float64) float64 {
	var sum, peak, worst float64
	for i, r := range returns {
		sum += r
		if i == 0 || sum > peak {
			peak = sum
		}
		if dd := peak - sum; dd > worst {
			worst = dd
		}
	}
	return worst
}

// Refresh revalues positions at their latest quote. Positions whose quote
// fails keep their previous price and produce a warning.
func Refresh(ctx context.Context, market dataflows.MarketDataProvider, positions []Position) ([]Position, []string) {
	out := make([]Position, len(positions))
	var warnings []string
	for i, p := range positions {
		out[i] = p
		q, err := market.Quote(ctx, p.Ticker)
		if err != nil {
			log.Printf("[portfolio] quote %s: %v", p.Ticker, err)
			warnings = append(warnings, fmt.Sprintf("%s: price unavailable", p.Ticker))
			continue
		}
		out[i] = p.WithPrice(q.Price)
	}
	return out, warnings
}

// Risk loads period history for every position and computes RiskMetrics.
func Risk(ctx context.Context, market dataflows.MarketDataProvider, positions []Position, period string) (RiskMetrics, []string) {
	var (
		series   [][]float64
		warnings []string
	)
	for _, p := range positions {
		bars, err := dataflows.HistoryForPeriod(ctx, market, p.Ticker, period)
		if err != nil || len(bars) == 0 {
			log.Printf("[portfolio] history %s: %v", p.Ticker, err)
			warnings = append(warnings, fmt.Sprintf("%s: history unavailable", p.Ticker))
			continue
		}
		closes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close.InexactFloat64()
		}
		series = append(series, closes)
	}
	return ComputeRisk(series), warnings
}

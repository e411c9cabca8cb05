package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

const (
	DefaultInitialCapital = 10000.0
	// MinUsableDecisions is the shortest decision history worth simulating.
	MinUsableDecisions = 2
)

// ErrInsufficientHistory is returned by callers that refuse to simulate fewer
// than MinUsableDecisions decisions.
var ErrInsufficientHistory = errors.New("not enough decision history to run a backtest")

type Trade struct {
	Date   string           `json:"date"`
	Action mdparse.Decision `json:"action"`
	Shares int64            `json:"shares"`
	Price  float64          `json:"price"`
	Value  float64          `json:"value"`
}

type Snapshot struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolio_value"`
	Cash           float64 `json:"cash"`
	Shares         int64   `json:"shares"`
	StockValue     float64 `json:"stock_value"`
}

type Result struct {
	Ticker           string     `json:"ticker"`
	Trades           []Trade    `json:"trades"`
	PortfolioHistory []Snapshot `json:"portfolio_history"`
	InitialCapital   float64    `json:"initial_capital"`
	FinalValue       float64    `json:"final_value"`
	TotalReturn      float64    `json:"total_return"`
	NumTrades        int        `json:"num_trades"`
}

// state is the mutable position of one simulation run.
type state struct {
	cash   float64
	shares int64
}

func (s *state) buy(price float64) (Trade, bool) {
	if price <= 0 || s.cash < price {
		return Trade{}, false
	}
	n := int64(math.Floor(s.cash / price))
	if n <= 0 {
		return Trade{}, false
	}
	value := float64(n) * price
	s.shares += n
	s.cash -= value
	return Trade{Action: mdparse.DecisionBuy, Shares: n, Price: price, Value: value}, true
}

func (s *state) sell(price float64) (Trade, bool) {
	if s.shares <= 0 {
		return Trade{}, false
	}
	n := s.shares
	value := float64(n) * price
	s.cash += value
	s.shares = 0
	return Trade{Action: mdparse.DecisionSell, Shares: n, Price: price, Value: value}, true
}

// Run replays history oldest first against prices. A BUY spends as much cash
// as buys whole shares, a SELL liquidates the whole position, anything else
// holds. Records whose date has no resolvable price are skipped. Open shares
// are marked at the last close of the series. A history with fewer than
// MinUsableDecisions decisions yields an empty run that keeps the capital.
func Run(ticker string, history []reports.DecisionRecord, initialCapital float64, prices *PriceSeries) Result {
	st := state{cash: initialCapital}
	result := Result{
		Ticker:           ticker,
		Trades:           []Trade{},
		PortfolioHistory: []Snapshot{},
		InitialCapital:   initialCapital,
		FinalValue:       initialCapital,
	}
	if len(reports.Usable(history)) < MinUsableDecisions {
		return result
	}

	records := make([]reports.DecisionRecord, len(history))
	copy(records, history)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })

	for _, rec := range records {
		price, ok := prices.Resolve(rec.Date)
		if !ok {
			continue
		}

		var (
			trade  Trade
			traded bool
		)
		switch rec.Decision {
		case mdparse.DecisionBuy:
			trade, traded = st.buy(price)
		case mdparse.DecisionSell:
			trade, traded = st.sell(price)
		}
		if traded {
			trade.Date = rec.Date
			result.Trades = append(result.Trades, trade)
		}

		stockValue := float64(st.shares) * price
		result.PortfolioHistory = append(result.PortfolioHistory, Snapshot{
			Date:           rec.Date,
			PortfolioValue: st.cash + stockValue,
			Cash:           st.cash,
			Shares:         st.shares,
			StockValue:     stockValue,
		})
	}

	result.FinalValue = st.cash
	if st.shares > 0 {
		if last, ok := prices.Last(); ok {
			result.FinalValue = st.cash + float64(st.shares)*last
		}
	}
	if initialCapital != 0 {
		result.TotalReturn = (result.FinalValue - initialCapital) / initialCapital * 100
	}
	result.NumTrades = len(result.Trades)
	return result
}

// Backtester runs simulations against prices from a market data provider.
type Backtester struct {
	Provider dataflows.MarketDataProvider
	// Now is the end of the fetched price window; defaults to time.Now.
	Now func() time.Time
}

func NewBacktester(provider dataflows.MarketDataProvider) *Backtester {
	return &Backtester{Provider: provider, Now: time.Now}
}

// Prices fetches daily closes from a week before the first decision up to now.
func (b *Backtester) Prices(ctx context.Context, ticker string, history []reports.DecisionRecord) (*PriceSeries, error) {
	if len(history) == 0 {
		return NewPriceSeries(nil), nil
	}
	var start time.Time
	for _, rec := range history {
		d, err := time.Parse(dateLayout, rec.Date)
		if err != nil {
			continue
		}
		if start.IsZero() || d.Before(start) {
			start = d
		}
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%s: no parseable decision dates", ticker)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	bars, err := b.Provider.History(ctx, ticker, start.AddDate(0, 0, -7), now())
	if err != nil {
		return nil, fmt.Errorf("price history %s: %w", ticker, err)
	}
	return PriceSeriesFromBars(bars), nil
}

// RunTicker simulates history and computes its metrics. It returns
// ErrInsufficientHistory when fewer than MinUsableDecisions records carry a decision.
func (b *Backtester) RunTicker(ctx context.Context, ticker string, history []reports.DecisionRecord, initialCapital float64) (Result, Metrics, error) {
	usable := reports.Usable(history)
	if len(usable) < MinUsableDecisions {
		return Result{}, Metrics{}, fmt.Errorf("%s: %w", ticker, ErrInsufficientHistory)
	}
	prices, err := b.Prices(ctx, ticker, history)
	if err != nil {
		return Result{}, Metrics{}, err
	}
	result := Run(ticker, history, initialCapital, prices)
	log.Printf("[backtest] %s: %d decisions, %d trades, return %.2f%%", ticker, len(usable), result.NumTrades, result.TotalReturn)
	return result, ComputeMetrics(result), nil
}

// CompareTickers runs every ticker of histories and compares those that could
// be simulated. Per-ticker failures are returned alongside.
func (b *Backtester) CompareTickers(ctx context.Context, histories map[string][]reports.DecisionRecord, initialCapital float64) ([]Comparison, map[string]error) {
	tickers := make([]string, 0, len(histories))
	for t := range histories {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	failures := make(map[string]error)
	results := make([]Result, 0, len(tickers))
	for _, t := range tickers {
		r, _, err := b.RunTicker(ctx, t, histories[t], initialCapital)
		if err != nil {
			failures[t] = err
			continue
		}
		results = append(results, r)
	}
	return Compare(results), failures
}

package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

// VolatilityPeriod is the price window of volatility alerts.
const VolatilityPeriod = "1mo"

var ErrNoDecision = errors.New("no analysis available")

// DecisionSource is satisfied by *reports.Store.
type DecisionSource interface {
	LatestDate(ticker string) (string, bool)
	Decision(ticker, date string) mdparse.Decision
}

// Observation is the current reading of an alert's subject.
type Observation struct {
	Value string `json:"value"`
	Met   bool   `json:"met"`
}

type Evaluator struct {
	market    dataflows.MarketDataProvider
	decisions DecisionSource
	now       func() time.Time
}

func NewEvaluator(market dataflows.MarketDataProvider, decisions DecisionSource) *Evaluator {
	return &Evaluator{market: market, decisions: decisions, now: time.Now}
}

// Evaluate reads the current value behind a and reports whether its
// condition holds.
func (e *Evaluator) Evaluate(ctx context.Context, a Alert) (Observation, error) {
	switch a.Type {
	case PriceAbove, PriceBelow:
		q, err := e.market.Quote(ctx, a.Ticker)
		if err != nil {
			return Observation{}, fmt.Errorf("quote %s: %w", a.Ticker, err)
		}
		price := q.Price.InexactFloat64()
		met := price >= a.Params.TargetPrice
		if a.Type == PriceBelow {
			met = price <= a.Params.TargetPrice
		}
		return Observation{Value: fmt.Sprintf("%.2f", price), Met: met}, nil

	case DecisionChange:
		date, ok := e.decisions.LatestDate(a.Ticker)
		if !ok {
			return Observation{}, fmt.Errorf("%s: %w", a.Ticker, ErrNoDecision)
		}
		d := e.decisions.Decision(a.Ticker, date)
		return Observation{Value: d.String(), Met: d.Valid() && d == a.Params.TargetDecision}, nil

	case Volatility:
		start, end, err := dataflows.PeriodRange(VolatilityPeriod, e.now())
		if err != nil {
			return Observation{}, err
		}
		bars, err := e.market.History(ctx, a.Ticker, start, end)
		if err != nil {
			return Observation{}, fmt.Errorf("history %s: %w", a.Ticker, err)
		}
		if len(bars) == 0 {
			return Observation{}, fmt.Errorf("history %s: %w", a.Ticker, dataflows.ErrNoData)
		}
		vol := AnnualizedVolatility(closes(bars))
		return Observation{Value: fmt.Sprintf("%.2f", vol), Met: vol >= a.Params.Threshold}, nil
	}
	return Observation{}, fmt.Errorf("unknown alert type %q", a.Type)
}

// Check evaluates every active alert that has not fired yet. Fired alerts are
// flagged in the returned list and a stamped copy of each is returned in
// fired. Alerts whose data could not be read are reported in errs by id and
// left untouched.
func (e *Evaluator) Check(ctx context.Context, list []Alert) (updated, fired []Alert, errs map[string]error) {
	updated = make([]Alert, len(list))
	copy(updated, list)
	errs = make(map[string]error)

	for i, a := range updated {
		if !a.Active || a.Triggered {
			continue
		}
		obs, err := e.Evaluate(ctx, a)
		if err != nil {
			log.Printf("[alerts] %s %s: %v", a.Type, a.Ticker, err)
			errs[a.ID] = err
			continue
		}
		if !obs.Met {
			continue
		}
		updated[i].Triggered = true
		hit := updated[i]
		hit.TriggeredAt = e.now().Format(TimeLayout)
		hit.TriggerValue = obs.Value
		fired = append(fired, hit)
		log.Printf("[alerts] triggered %s %s at %s", a.Type, a.Ticker, obs.Value)
	}
	return updated, fired, errs
}

// AnnualizedVolatility is the sample stdev of daily returns scaled to a
// trading year, in percent.
func AnnualizedVolatility(closes []float64) float64 {
	return backtest.SampleStdDev(backtest.PctChanges(closes)) * math.Sqrt(252) * 100
}

func closes(bars []dataflows.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

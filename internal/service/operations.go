package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/export"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/storage"
)

// Export kinds accepted by Export.
const (
	ExportPortfolio  = "portfolio"
	ExportBacktest   = "backtest"
	ExportComparison = "comparison"
	ExportAlerts     = "alerts"
)

var ExportKinds = []string{ExportPortfolio, ExportBacktest, ExportComparison, ExportAlerts}

// ErrInvalidRequest marks requests the caller has to correct.
var ErrInvalidRequest = errors.New("invalid request")

// CheckResult is the outcome of one pass over the active alerts.
type CheckResult struct {
	Checked int               `json:"checked"`
	Fired   []alerts.Alert    `json:"triggered"`
	Errors  map[string]string `json:"errors"`
}

// CheckAlerts evaluates every active alert and persists the ones that fired.
func (a *App) CheckAlerts(ctx context.Context) (CheckResult, error) {
	active, err := a.State.Alerts(ctx, true)
	if err != nil {
		return CheckResult{}, err
	}
	updated, fired, errs := a.Clients().Alerts.Check(ctx, active)
	if err := a.State.RecordCheck(ctx, updated, fired); err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{Checked: len(active), Fired: fired, Errors: make(map[string]string, len(errs))}
	if res.Fired == nil {
		res.Fired = []alerts.Alert{}
	}
	for id, e := range errs {
		res.Errors[id] = e.Error()
	}
	return res, nil
}

// AddPosition stores p, merging it into an existing position of the same ticker.
func (a *App) AddPosition(ctx context.Context, p portfolio.Position) (portfolio.Position, error) {
	existing, err := a.State.Position(ctx, p.Ticker)
	switch {
	case err == nil:
		p = existing.Merge(p)
	case !errors.Is(err, storage.ErrNotFound):
		return portfolio.Position{}, err
	}
	if err := a.State.SavePosition(ctx, p); err != nil {
		return portfolio.Position{}, err
	}
	return p, nil
}

// PortfolioView is the repriced portfolio with its totals.
type PortfolioView struct {
	Positions []portfolio.Position   `json:"positions"`
	Metrics   portfolio.Metrics      `json:"metrics"`
	Risk      *portfolio.RiskMetrics `json:"risk,omitempty"`
	Warnings  []string               `json:"warnings"`
}

// Portfolio reprices the stored positions. Risk metrics are computed over
// period when it is not empty.
func (a *App) Portfolio(ctx context.Context, period string) (PortfolioView, error) {
	positions, err := a.State.Positions(ctx)
	if err != nil {
		return PortfolioView{}, err
	}
	market := a.Clients().Market
	positions, warnings := portfolio.Refresh(ctx, market, positions)

	view := PortfolioView{
		Positions: positions,
		Metrics:   portfolio.ComputeMetrics(positions),
		Warnings:  warnings,
	}
	if view.Positions == nil {
		view.Positions = []portfolio.Position{}
	}
	if period != "" && len(positions) > 0 {
		risk, riskWarnings := portfolio.Risk(ctx, market, positions, period)
		view.Risk = &risk
		view.Warnings = append(view.Warnings, riskWarnings...)
	}
	if view.Warnings == nil {
		view.Warnings = []string{}
	}
	return view, nil
}

// ExportRequest selects the dataset of an export.
type ExportRequest struct {
	Kind    string
	Ticker  string
	Tickers []string
	Capital float64
}

// Export builds the document for req. Data problems that still leave a
// document to render are returned as warnings.
func (a *App) Export(ctx context.Context, req ExportRequest, now time.Time) (export.Document, []string, error) {
	if req.Capital <= 0 {
		req.Capital = 10000
	}

	switch strings.ToLower(req.Kind) {
	case ExportPortfolio:
		view, err := a.Portfolio(ctx, "")
		if err != nil {
			return export.Document{}, nil, err
		}
		return export.Portfolio(view.Positions, view.Metrics, now), view.Warnings, nil

	case ExportBacktest:
		if req.Ticker == "" {
			return export.Document{}, nil, fmt.Errorf("%w: backtest export needs a ticker", ErrInvalidRequest)
		}
		result, metrics, err := a.Backtest(ctx, req.Ticker, req.Capital)
		if err != nil {
			return export.Document{}, nil, err
		}
		return export.Backtest(result, metrics, now), nil, nil

	case ExportComparison:
		tickers := req.Tickers
		if len(tickers) == 0 {
			all, err := a.Reports.ListTickers()
			if err != nil {
				return export.Document{}, nil, err
			}
			tickers = all
		}
		sort.Strings(tickers)
		var warnings []string
		rows := make([]export.ComparisonRow, 0, len(tickers))
		for _, t := range tickers {
			row := export.ComparisonRow{TickerSummary: a.Reports.Summary(t)}
			_, m, err := a.Clients().Backtester.RunTicker(ctx, t, a.Reports.History(t), req.Capital)
			if err != nil {
				warnings = append(warnings, err.Error())
			} else {
				row.Metrics = &m
			}
			rows = append(rows, row)
		}
		return export.Comparison(rows, now), warnings, nil

	case ExportAlerts:
		list, err := a.State.Alerts(ctx, false)
		if err != nil {
			return export.Document{}, nil, err
		}
		triggered, err := a.State.TriggeredAlerts(ctx)
		if err != nil {
			return export.Document{}, nil, err
		}
		return export.Alerts(list, triggered, now), nil, nil
	}
	return export.Document{}, nil, fmt.Errorf("%w: unknown export kind %q (want one of %s)", ErrInvalidRequest, req.Kind, strings.Join(ExportKinds, ", "))
}

// Backtest runs the decision history of ticker.
func (a *App) Backtest(ctx context.Context, ticker string, capital float64) (backtest.Result, backtest.Metrics, error) {
	history := a.Reports.History(ticker)
	if len(history) == 0 {
		return backtest.Result{}, backtest.Metrics{}, &reports.NotFoundError{What: "ticker", Path: ticker}
	}
	return a.Clients().Backtester.RunTicker(ctx, ticker, history, capital)
}

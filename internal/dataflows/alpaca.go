package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	// Feed is "iex" for free accounts, "sip" for paid ones.
	Feed string
}

// AlpacaClient serves daily bars from the Alpaca market-data API.
type AlpacaClient struct {
	client *marketdata.Client
	feed   string
}

func NewAlpacaClient(cfg AlpacaConfig) (*AlpacaClient, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: alpaca API credentials not configured", config.ErrMissingCredential)
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	feed := cfg.Feed
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaClient{
		client: marketdata.NewClient(opts),
		feed:   feed,
	}, nil
}

func (a *AlpacaClient) Name() string {
	return "alpaca"
}

func (a *AlpacaClient) History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	alpacaBars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      a.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		c := decimal.NewFromFloat(ab.Close)
		bars = append(bars, Bar{
			Symbol:   symbol,
			Date:     ab.Timestamp.UTC(),
			Open:     decimal.NewFromFloat(ab.Open),
			High:     decimal.NewFromFloat(ab.High),
			Low:      decimal.NewFromFloat(ab.Low),
			Close:    c,
			AdjClose: c,
			Volume:   int64(ab.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history %s: %w", symbol, ErrNoData)
	}
	sortBars(bars)
	return bars, nil
}

func (a *AlpacaClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	end := time.Now()
	bars, err := a.History(ctx, symbol, end.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}
	return QuoteFromBars(NormalizeSymbol(symbol), bars)
}

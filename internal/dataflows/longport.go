package dataflows

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/config"
	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
)

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient serves daily candlesticks from the Longport quote API.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: longport API credentials not configured", config.ErrMissingCredential)
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

func (lpc *LongportClient) Name() string {
	return "longport"
}

// longportSymbol maps a bare US ticker to Longport's "<SYMBOL>.US" form.
func longportSymbol(symbol string) string {
	for i := len(symbol) - 1; i >= 0; i-- {
		if symbol[i] == '.' {
			return symbol
		}
	}
	return symbol + ".US"
}

func (lpc *LongportClient) sticks(ctx context.Context, symbol string, count int) ([]*quote.Candlestick, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	return lpc.quoteCtx.Candlesticks(ctx, longportSymbol(symbol), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
}

func (lpc *LongportClient) History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	// Candlesticks counts back from today, so request enough days to reach start.
	days := int(math.Ceil(time.Since(start).Hours()/24)) + 1
	if days > 1000 {
		days = 1000
	}
	sticks, err := lpc.sticks(ctx, symbol, days)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(sticks))
	for _, stick := range sticks {
		if stick == nil {
			continue
		}
		open, _ := stick.Open.Float64()
		high, _ := stick.High.Float64()
		low, _ := stick.Low.Float64()
		closePrice, _ := stick.Close.Float64()
		c := decimal.NewFromFloat(closePrice)
		bars = append(bars, Bar{
			Symbol:   symbol,
			Date:     time.Unix(stick.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(open),
			High:     decimal.NewFromFloat(high),
			Low:      decimal.NewFromFloat(low),
			Close:    c,
			AdjClose: c,
			Volume:   stick.Volume,
		})
	}
	sortBars(bars)
	bars = FilterBars(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("history %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func (lpc *LongportClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	end := time.Now()
	bars, err := lpc.History(ctx, symbol, end.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}
	return QuoteFromBars(NormalizeSymbol(symbol), bars)
}

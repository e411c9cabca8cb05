package dataflows

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

// MarketDataProvider returns daily history and point quotes for a symbol.
type MarketDataProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*Quote, error)
	History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// NewMarketDataProvider builds the provider named by the settings data_source,
// wrapped with the response cache and the parquet archive.
func NewMarketDataProvider(source string, cfg *config.Config, cacheTTL time.Duration) (MarketDataProvider, error) {
	var (
		base MarketDataProvider
		err  error
	)
	switch strings.ToLower(source) {
	case "", "yahoo":
		base = NewYahooFinanceClient()
	case "longport":
		base, err = NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
	case "alpaca":
		base, err = NewAlpacaClient(AlpacaConfig{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			BaseURL:   cfg.AlpacaDataURL,
		})
	default:
		return nil, fmt.Errorf("unknown data source %q", source)
	}
	if err != nil {
		return nil, err
	}

	cache := NewCacheManager(filepath.Join(cfg.DataCacheDir, base.Name()), cacheTTL, cfg.CacheEnabled)
	archive := NewPriceArchive(filepath.Join(cfg.DataDir, "market_data", "price_data"))
	return &CachedProvider{
		Provider: base,
		Cache:    cache,
		Archive:  archive,
	}, nil
}

// CachedProvider serves history from the file cache, records fresh history in
// the archive and falls back to the archive when the live provider fails.
type CachedProvider struct {
	Provider MarketDataProvider
	Cache    *CacheManager
	Archive  *PriceArchive
}

func (c *CachedProvider) Name() string {
	return c.Provider.Name()
}

func (c *CachedProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeSymbol(symbol)
	var cached Quote
	if c.Cache.Get(c.Name(), "quote", symbol, &cached) {
		return &cached, nil
	}
	q, err := c.Provider.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(c.Name(), "quote", symbol, q); err != nil {
		log.Printf("[dataflows] cache quote %s: %v", symbol, err)
	}
	return q, nil
}

func (c *CachedProvider) History(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = NormalizeSymbol(symbol)
	key := map[string]string{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []Bar
	if c.Cache.Get(c.Name(), "history", key, &cached) {
		return cached, nil
	}

	bars, err := c.Provider.History(ctx, symbol, start, end)
	if err != nil {
		if c.Archive == nil {
			return nil, err
		}
		archived, archErr := c.Archive.Load(symbol)
		if archErr != nil {
			return nil, err
		}
		offline := FilterBars(archived, start, end)
		if len(offline) == 0 {
			return nil, err
		}
		log.Printf("[dataflows] %s live history failed (%v), using %d archived bars", symbol, err, len(offline))
		return offline, nil
	}

	if err := c.Cache.Set(c.Name(), "history", key, bars); err != nil {
		log.Printf("[dataflows] cache history %s: %v", symbol, err)
	}
	if c.Archive != nil {
		if err := c.Archive.Merge(symbol, bars); err != nil {
			log.Printf("[dataflows] archive %s: %v", symbol, err)
		}
	}
	return bars, nil
}

// HistoryForPeriod fetches bars for a period string such as "1mo" or "1y".
func HistoryForPeriod(ctx context.Context, p MarketDataProvider, symbol, period string) ([]Bar, error) {
	start, end, err := PeriodRange(period, time.Now())
	if err != nil {
		return nil, err
	}
	return p.History(ctx, symbol, start, end)
}

func sortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}

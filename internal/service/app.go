package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/storage"
)

// Clients are the data clients derived from the current settings.
type Clients struct {
	Market     dataflows.MarketDataProvider
	News       *dataflows.NewsClient
	Reddit     *dataflows.RedditClient
	Backtester *backtest.Backtester
	Alerts     *alerts.Evaluator
}

// App wires configuration, settings, stores and data clients for the CLI and
// the HTTP API.
type App struct {
	Config   *config.Config
	Settings *config.SettingsManager
	Reports  *reports.Store
	State    *storage.Store
	Logos    *dataflows.LogoResolver

	mu      sync.RWMutex
	clients Clients
}

func New(cfg *config.Config) (*App, error) {
	settings, err := config.NewSettingsManager(config.WithSettingsPath(cfg.SettingsPath))
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	state, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	app := &App{
		Config:   cfg,
		Settings: settings,
		Reports:  reports.NewStore(cfg.ResultsDir),
		State:    state,
		Logos:    dataflows.NewLogoResolver(""),
	}
	if err := app.Reload(settings.Get()); err != nil {
		_ = state.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) Close() error {
	return a.State.Close()
}

// Secrets resolves credentials from the environment first, then the settings file.
func (a *App) Secrets() config.SecretStore {
	return config.ChainSecrets{a.Config.Secrets(), a.Settings}
}

// Clients returns the clients built from the latest settings.
func (a *App) Clients() Clients {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.clients
}

// Reload rebuilds the data clients for s. It is the settings watcher callback.
func (a *App) Reload(s config.Settings) error {
	ttl := time.Duration(s.CacheDuration) * time.Minute
	market, err := dataflows.NewMarketDataProvider(s.DataSource, a.Config, ttl)
	if err != nil {
		return fmt.Errorf("market data source %s: %w", s.DataSource, err)
	}

	secrets := a.Secrets()
	clients := Clients{
		Market: market,
		News: dataflows.NewNewsClient(dataflows.NewsConfig{
			NewsAPIKey:      config.SecretOr(secrets, config.KeyNewsAPI, ""),
			AlphaVantageKey: config.SecretOr(secrets, config.KeyAlphaVantage, ""),
			CacheDir:        a.Config.DataCacheDir,
			CacheTTL:        ttl,
			CacheEnabled:    a.Config.CacheEnabled,
		}),
		Reddit: dataflows.NewRedditClient(dataflows.RedditConfig{
			ClientID:        config.SecretOr(secrets, config.KeyRedditClientID, ""),
			ClientSecret:    config.SecretOr(secrets, config.KeyRedditClientSecret, ""),
			UserAgent:       config.SecretOr(secrets, config.KeyRedditUserAgent, ""),
			SentimentMethod: s.Reddit.SentimentMethod,
			CacheDir:        a.Config.DataCacheDir,
			CacheEnabled:    a.Config.CacheEnabled,
		}),
		Backtester: backtest.NewBacktester(market),
		Alerts:     alerts.NewEvaluator(market, a.Reports),
	}

	a.mu.Lock()
	a.clients = clients
	a.mu.Unlock()
	if a.Config.Debug {
		log.Printf("[service] clients reloaded (data_source=%s, cache=%dm)", s.DataSource, s.CacheDuration)
	}
	return nil
}

// SetClients replaces the data clients, for callers that supply their own.
func (a *App) SetClients(c Clients) {
	a.mu.Lock()
	a.clients = c
	a.mu.Unlock()
}

// UpdateSettings persists s and rebuilds the clients from it.
func (a *App) UpdateSettings(s config.Settings) error {
	if err := a.Settings.Update(s); err != nil {
		return err
	}
	return a.Reload(a.Settings.Get())
}

func (a *App) ResetSettings() error {
	return a.UpdateSettings(config.DefaultSettings())
}

// WatchSettings reloads the clients whenever the settings file changes on disk.
func (a *App) WatchSettings(ctx context.Context) error {
	return a.Settings.Watch(ctx, func(s config.Settings) {
		if err := a.Reload(s); err != nil {
			log.Printf("[service] reload settings: %v", err)
		}
	})
}

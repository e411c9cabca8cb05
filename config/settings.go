package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Well known keys of Settings.APIKeys.
const (
	KeyAlphaVantage       = "alpha_vantage"
	KeyNewsAPI            = "news_api"
	KeyRedditClientID     = "reddit_client_id"
	KeyRedditClientSecret = "reddit_client_secret"
	KeyRedditUserAgent    = "reddit_user_agent"
)

type Colors struct {
	Buy  string `json:"buy"`
	Hold string `json:"hold"`
	Sell string `json:"sell"`
}

type RedditSettings struct {
	Subreddits      []string `json:"subreddits"`
	SentimentMethod string   `json:"sentiment_method"`
	TimeFilter      string   `json:"time_filter"`
	PostLimit       int      `json:"post_limit"`
}

// Settings is the dashboard preferences document. It is read and written wholesale.
type Settings struct {
	Theme                   string            `json:"theme"`
	RefreshInterval         int               `json:"refresh_interval"`
	DefaultCurrency         string            `json:"default_currency"`
	DefaultPeriod           string            `json:"default_period"`
	ShowNews                bool              `json:"show_news"`
	ShowTechnicalIndicators bool              `json:"show_technical_indicators"`
	MaxTickersDisplay       int               `json:"max_tickers_display"`
	EnableNotifications     bool              `json:"enable_notifications"`
	APIKeys                 map[string]string `json:"api_keys"`
	Colors                  Colors            `json:"colors"`
	DataSource              string            `json:"data_source"`
	CacheDuration           int               `json:"cache_duration"`
	ExportFormat            string            `json:"export_format"`
	IncludeMetadata         bool              `json:"include_metadata"`
	PriceChangeThreshold    float64           `json:"price_change_threshold"`
	VolumeSpikeThreshold    float64           `json:"volume_spike_threshold"`
	NotificationEmail       string            `json:"notification_email"`
	NotificationWebhook     string            `json:"notification_webhook"`
	Reddit                  RedditSettings    `json:"reddit"`
}

var (
	validThemes     = []string{"light", "dark"}
	validCurrencies = []string{"USD", "EUR", "GBP", "BRL"}
	validPeriods    = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y"}
	validSources    = []string{"yahoo", "longport", "alpaca"}
	validFormats    = []string{"csv", "json", "excel"}
	validSentiment  = []string{"simple", "vader", "textblob", "hybrid"}
)

func DefaultSettings() Settings {
	return Settings{
		Theme:                   "light",
		RefreshInterval:         60,
		DefaultCurrency:         "USD",
		DefaultPeriod:           "1mo",
		ShowNews:                true,
		ShowTechnicalIndicators: true,
		MaxTickersDisplay:       10,
		EnableNotifications:     false,
		APIKeys: map[string]string{
			KeyAlphaVantage: "",
			KeyNewsAPI:      "",
		},
		Colors: Colors{
			Buy:  "#10b981",
			Hold: "#f59e0b",
			Sell: "#ef4444",
		},
		DataSource:           "yahoo",
		CacheDuration:        15,
		ExportFormat:         "csv",
		IncludeMetadata:      true,
		PriceChangeThreshold: 5.0,
		VolumeSpikeThreshold: 2.0,
		Reddit: RedditSettings{
			Subreddits:      []string{"wallstreetbets", "stocks", "investing"},
			SentimentMethod: "simple",
			TimeFilter:      "week",
			PostLimit:       50,
		},
	}
}

// ParseSettings decodes data on top of the defaults so missing keys keep their default value.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings json: %w", err)
	}
	if s.APIKeys == nil {
		s.APIKeys = map[string]string{}
	}
	s.DataSource = strings.ToLower(s.DataSource)
	s.ExportFormat = strings.ToLower(s.ExportFormat)
	s.Reddit.SentimentMethod = strings.ToLower(s.Reddit.SentimentMethod)
	return s, nil
}

func (s Settings) Validate() error {
	if !contains(validThemes, s.Theme) {
		return fmt.Errorf("invalid theme %q", s.Theme)
	}
	if !contains(validCurrencies, s.DefaultCurrency) {
		return fmt.Errorf("invalid default_currency %q", s.DefaultCurrency)
	}
	if !contains(validPeriods, s.DefaultPeriod) {
		return fmt.Errorf("invalid default_period %q", s.DefaultPeriod)
	}
	if !contains(validSources, s.DataSource) {
		return fmt.Errorf("invalid data_source %q", s.DataSource)
	}
	if !contains(validFormats, s.ExportFormat) {
		return fmt.Errorf("invalid export_format %q", s.ExportFormat)
	}
	if !contains(validSentiment, s.Reddit.SentimentMethod) {
		return fmt.Errorf("invalid reddit.sentiment_method %q", s.Reddit.SentimentMethod)
	}
	if s.RefreshInterval < 10 || s.RefreshInterval > 300 {
		return fmt.Errorf("refresh_interval must be between 10 and 300, got %d", s.RefreshInterval)
	}
	if s.MaxTickersDisplay < 5 || s.MaxTickersDisplay > 50 {
		return fmt.Errorf("max_tickers_display must be between 5 and 50, got %d", s.MaxTickersDisplay)
	}
	if s.CacheDuration < 5 || s.CacheDuration > 60 {
		return fmt.Errorf("cache_duration must be between 5 and 60, got %d", s.CacheDuration)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate maps and slices freely.
func (s Settings) Clone() Settings {
	out := s
	out.APIKeys = make(map[string]string, len(s.APIKeys))
	for k, v := range s.APIKeys {
		out.APIKeys[k] = v
	}
	out.Reddit.Subreddits = append([]string(nil), s.Reddit.Subreddits...)
	return out
}

// Masked hides API key values for display.
func (s Settings) Masked() Settings {
	out := s.Clone()
	for k, v := range out.APIKeys {
		out.APIKeys[k] = MaskSecret(v)
	}
	return out
}

func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

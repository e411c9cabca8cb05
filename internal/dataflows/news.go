package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultNewsAPIURL      = "https://newsapi.org/v2/everything"
	DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

	newsLookbackDays = 7
	newsPageSize     = 10
	alphaNewsLimit   = 50
)

var companyNames = map[string]string{
	"AAPL": "Apple", "MSFT": "Microsoft", "GOOGL": "Google", "GOOG": "Google",
	"AMZN": "Amazon", "META": "Meta", "TSLA": "Tesla", "NVDA": "NVIDIA",
	"AVGO": "Broadcom", "IBM": "IBM", "ORCL": "Oracle", "INTC": "Intel",
	"AMD": "AMD", "NFLX": "Netflix", "DIS": "Disney", "BA": "Boeing",
	"JPM": "JPMorgan", "V": "Visa", "MA": "Mastercard", "WMT": "Walmart",
	"KO": "Coca-Cola", "PFE": "Pfizer", "JNJ": "Johnson", "PG": "Procter",
	"BAC": "Bank of America", "CSCO": "Cisco", "ADBE": "Adobe", "CRM": "Salesforce",
	"PETR4.SA": "Petrobras", "VALE3": "Vale", "ITUB4": "Itau", "BBDC4": "Bradesco",
}

// CompanyName returns the search name for a ticker, or the ticker itself.
func CompanyName(ticker string) string {
	ticker = NormalizeSymbol(ticker)
	if name, ok := companyNames[ticker]; ok {
		return name
	}
	return ticker
}

type NewsConfig struct {
	NewsAPIKey      string
	AlphaVantageKey string
	NewsAPIURL      string
	AlphaVantageURL string
	CacheDir        string
	CacheTTL        time.Duration
	CacheEnabled    bool
}

// NewsClient aggregates headlines from NewsAPI and Alpha Vantage.
type NewsClient struct {
	client *resty.Client
	cache  *CacheManager
	cfg    NewsConfig
	now    func() time.Time
}

func NewNewsClient(cfg NewsConfig) *NewsClient {
	if cfg.NewsAPIURL == "" {
		cfg.NewsAPIURL = DefaultNewsAPIURL
	}
	if cfg.AlphaVantageURL == "" {
		cfg.AlphaVantageURL = DefaultAlphaVantageURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}

	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("User-Agent", "TradingAgents-Dashboard/1.0")

	var cache *CacheManager
	if cfg.CacheDir != "" {
		cache = NewCacheManager(filepath.Join(cfg.CacheDir, "news"), cfg.CacheTTL, cfg.CacheEnabled)
	}

	return &NewsClient{
		client: client,
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
	}
}

// HasSources reports whether at least one news provider has a key.
func (nc *NewsClient) HasSources() bool {
	return nc.cfg.NewsAPIKey != "" || nc.cfg.AlphaVantageKey != ""
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// FetchNewsAPI searches NewsAPI for the last week of English articles.
func (nc *NewsClient) FetchNewsAPI(ctx context.Context, ticker string) ([]NewsArticle, error) {
	if nc.cfg.NewsAPIKey == "" {
		return nil, fmt.Errorf("newsapi: missing API key")
	}
	ticker = NormalizeSymbol(ticker)
	from := nc.now().AddDate(0, 0, -newsLookbackDays).Format("2006-01-02")

	resp, err := nc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        fmt.Sprintf("%s OR %s", CompanyName(ticker), ticker),
			"from":     from,
			"sortBy":   "publishedAt",
			"language": "en",
			"pageSize": fmt.Sprint(newsPageSize),
			"apiKey":   nc.cfg.NewsAPIKey,
		}).
		Get(nc.cfg.NewsAPIURL)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}

	var body newsAPIResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("newsapi decode (HTTP %d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != 200 || body.Status != "ok" {
		return nil, fmt.Errorf("newsapi HTTP %d: %s", resp.StatusCode(), body.Message)
	}

	articles := make([]NewsArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		description := StripHTML(a.Description)
		articles = append(articles, NewsArticle{
			Title:       a.Title,
			Description: description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: published,
			ImageURL:    a.URLToImage,
			Sentiment:   NewsSentiment(a.Title + " " + description),
			Provider:    "newsapi",
		})
	}
	return articles, nil
}

type alphaNewsResponse struct {
	Feed []struct {
		Title                 string  `json:"title"`
		URL                   string  `json:"url"`
		TimePublished         string  `json:"time_published"`
		Summary               string  `json:"summary"`
		BannerImage           string  `json:"banner_image"`
		Source                string  `json:"source"`
		OverallSentimentScore float64 `json:"overall_sentiment_score"`
	} `json:"feed"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// FetchAlphaVantage reads the NEWS_SENTIMENT feed, which scores articles itself.
func (nc *NewsClient) FetchAlphaVantage(ctx context.Context, ticker string) ([]NewsArticle, error) {
	if nc.cfg.AlphaVantageKey == "" {
		return nil, fmt.Errorf("alphavantage: missing API key")
	}
	ticker = NormalizeSymbol(ticker)

	resp, err := nc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "NEWS_SENTIMENT",
			"tickers":  ticker,
			"apikey":   nc.cfg.AlphaVantageKey,
			"limit":    fmt.Sprint(alphaNewsLimit),
		}).
		Get(nc.cfg.AlphaVantageURL)
	if err != nil {
		return nil, fmt.Errorf("alphavantage request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("alphavantage HTTP %d", resp.StatusCode())
	}

	var body alphaNewsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	if len(body.Feed) == 0 {
		if msg := body.Note + body.Information; msg != "" {
			return nil, fmt.Errorf("alphavantage: %s", msg)
		}
		return nil, nil
	}

	articles := make([]NewsArticle, 0, len(body.Feed))
	for _, item := range body.Feed {
		published, _ := time.Parse("20060102T150405", item.TimePublished)
		articles = append(articles, NewsArticle{
			Title:          item.Title,
			Description:    item.Summary,
			URL:            item.URL,
			Source:         item.Source,
			PublishedAt:    published,
			ImageURL:       item.BannerImage,
			Sentiment:      ScoreToNewsSentiment(item.OverallSentimentScore),
			SentimentScore: item.OverallSentimentScore,
			Provider:       "alphavantage",
		})
	}
	return articles, nil
}

// FetchAll queries every configured provider, drops duplicate headlines and
// returns the articles newest first. A failing provider is logged and skipped.
func (nc *NewsClient) FetchAll(ctx context.Context, ticker string) ([]NewsArticle, error) {
	ticker = NormalizeSymbol(ticker)
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}

	var cached []NewsArticle
	if nc.cache.Get("news", "all", ticker, &cached) {
		return cached, nil
	}

	var all []NewsArticle
	if nc.cfg.NewsAPIKey != "" {
		articles, err := nc.FetchNewsAPI(ctx, ticker)
		if err != nil {
			log.Printf("[news] %s newsapi: %v", ticker, err)
		}
		all = append(all, articles...)
	}
	if nc.cfg.AlphaVantageKey != "" {
		articles, err := nc.FetchAlphaVantage(ctx, ticker)
		if err != nil {
			log.Printf("[news] %s alphavantage: %v", ticker, err)
		}
		all = append(all, articles...)
	}

	all = RemoveDuplicateNews(all)
	sort.SliceStable(all, func(i, j int) bool { return all[i].PublishedAt.After(all[j].PublishedAt) })

	if len(all) > 0 {
		if err := nc.cache.Set("news", "all", ticker, all); err != nil {
			log.Printf("[news] cache %s: %v", ticker, err)
		}
	}
	return all, nil
}

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

func normalizeTitle(title string) string {
	return nonWordPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "")
}

// RemoveDuplicateNews keeps the first article of each normalized title and
// drops articles without a title.
func RemoveDuplicateNews(articles []NewsArticle) []NewsArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]NewsArticle, 0, len(articles))
	for _, a := range articles {
		key := normalizeTitle(a.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// StripHTML returns the visible text of an HTML fragment.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(doc.Text(), " "))
}

// FormatPublished renders an article timestamp relative to now.
func FormatPublished(t, now time.Time) string {
	if t.IsZero() {
		return "Unknown date"
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "Yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 02, 2006")
	}
}

// FormatTimeAgo renders a post timestamp as "3d ago", "2h ago", "5m ago" or "just now".
func FormatTimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff >= time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff >= time.Minute:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	default:
		return "just now"
	}
}

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
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

const (
	DefaultRedditAuthURL = "https://www.reddit.com/api/v1/access_token"
	DefaultRedditAPIURL  = "https://oauth.reddit.com"

	maxSearchTerms   = 2
	trendingPostsCap = 100
	trendingTopN     = 20
)

var tickerTerms = map[string][]string{
	"AAPL":     {"Apple", "AAPL", "$AAPL"},
	"MSFT":     {"Microsoft", "MSFT", "$MSFT"},
	"GOOGL":    {"Google", "Alphabet", "GOOGL", "$GOOGL"},
	"GOOG":     {"Google", "Alphabet", "GOOG", "$GOOG"},
	"AMZN":     {"Amazon", "AMZN", "$AMZN"},
	"META":     {"Meta", "Facebook", "META", "$META"},
	"TSLA":     {"Tesla", "TSLA", "$TSLA"},
	"NVDA":     {"NVIDIA", "Nvidia", "NVDA", "$NVDA"},
	"AMD":      {"AMD", "$AMD"},
	"INTC":     {"Intel", "INTC", "$INTC"},
	"NFLX":     {"Netflix", "NFLX", "$NFLX"},
	"DIS":      {"Disney", "DIS", "$DIS"},
	"AVGO":     {"Broadcom", "AVGO", "$AVGO"},
	"JPM":      {"JPMorgan", "JP Morgan", "JPM", "$JPM"},
	"V":        {"Visa", "V", "$V"},
	"MA":       {"Mastercard", "MA", "$MA"},
	"WMT":      {"Walmart", "WMT", "$WMT"},
	"BAC":      {"Bank of America", "BofA", "BAC", "$BAC"},
	"PETR4.SA": {"Petrobras", "PETR4", "$PETR4"},
	"VALE3":    {"Vale", "VALE3", "$VALE3"},
}

// SearchTerms returns the names a ticker is discussed under, most specific first.
func SearchTerms(ticker string) []string {
	ticker = NormalizeSymbol(ticker)
	if terms, ok := tickerTerms[ticker]; ok {
		out := make([]string, len(terms))
		copy(out, terms)
		return out
	}
	return []string{ticker}
}

// termPattern matches term as a whole word, case-insensitively.
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^\w$])` + regexp.QuoteMeta(term) + `($|\W)`)
}

var (
	termPatternsOnce sync.Once
	termPatterns     map[string][]*regexp.Regexp
	dollarTicker     = regexp.MustCompile(`\$([A-Z]{1,5})\b`)
)

func compiledTerms() map[string][]*regexp.Regexp {
	termPatternsOnce.Do(func() {
		termPatterns = make(map[string][]*regexp.Regexp, len(tickerTerms))
		for ticker, terms := range tickerTerms {
			for _, term := range terms {
				termPatterns[ticker] = append(termPatterns[ticker], termPattern(term))
			}
		}
	})
	return termPatterns
}

// tickerMatchers caches the compiled patterns of each ticker seen by
// ContainsTicker: its names or symbol, then $SYMBOL.
var tickerMatchers sync.Map

func tickerPatterns(ticker string) []*regexp.Regexp {
	if cached, ok := tickerMatchers.Load(ticker); ok {
		return cached.([]*regexp.Regexp)
	}
	var patterns []*regexp.Regexp
	if named, ok := compiledTerms()[ticker]; ok {
		patterns = append(patterns, named...)
	} else {
		patterns = append(patterns, termPattern(ticker))
	}
	patterns = append(patterns, regexp.MustCompile(`(?i)\$`+regexp.QuoteMeta(ticker)+`\b`))
	actual, _ := tickerMatchers.LoadOrStore(ticker, patterns)
	return actual.([]*regexp.Regexp)
}

// ContainsTicker reports whether text mentions ticker by name, symbol or $SYMBOL.
// Names are matched as whole words so one-letter symbols such as V do not
// match every post.
func ContainsTicker(text, ticker string) bool {
	for _, p := range tickerPatterns(NormalizeSymbol(ticker)) {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractTickers returns the distinct tickers mentioned in text, sorted.
func ExtractTickers(text string) []string {
	found := make(map[string]struct{})
	for _, m := range dollarTicker.FindAllStringSubmatch(text, -1) {
		found[m[1]] = struct{}{}
	}
	for ticker, patterns := range compiledTerms() {
		for _, p := range patterns {
			if p.MatchString(text) {
				found[ticker] = struct{}{}
				break
			}
		}
	}
	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

type TickerMentions struct {
	Ticker   string `json:"ticker"`
	Mentions int    `json:"mentions"`
}

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	AuthURL      string
	APIURL       string
	CacheDir     string
	CacheEnabled bool

	// SentimentMethod selects the post scorer, see SocialSentimentWith.
	SentimentMethod string
}

// RedditClient reads subreddit listings through Reddit's application-only OAuth API.
type RedditClient struct {
	client *resty.Client
	cache  *CacheManager
	cfg    RedditConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewRedditClient(cfg RedditConfig) *RedditClient {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultRedditAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultRedditAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "TradingAgents-Dashboard/1.0"
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", cfg.UserAgent)

	var cache *CacheManager
	if cfg.CacheDir != "" {
		cache = NewCacheManager(filepath.Join(cfg.CacheDir, "reddit"), 15*time.Minute, cfg.CacheEnabled)
	}

	return &RedditClient{
		client: client,
		cache:  cache,
		cfg:    cfg,
	}
}

// Configured reports whether client credentials are present.
func (rc *RedditClient) Configured() bool {
	return rc.cfg.ClientID != "" && rc.cfg.ClientSecret != ""
}

type redditToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

func (rc *RedditClient) accessToken(ctx context.Context) (string, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.token != "" && time.Now().Before(rc.expires) {
		return rc.token, nil
	}

	resp, err := rc.client.R().
		SetContext(ctx).
		SetBasicAuth(rc.cfg.ClientID, rc.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(rc.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("reddit auth HTTP %d", resp.StatusCode())
	}

	var tok redditToken
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return "", fmt.Errorf("reddit auth decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit auth: %s", tok.Error)
	}

	rc.token = tok.AccessToken
	// Refresh a minute early.
	rc.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return rc.token, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPostData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPostData struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Selftext            string  `json:"selftext"`
	Permalink           string  `json:"permalink"`
	Subreddit           string  `json:"subreddit"`
	Author              string  `json:"author"`
	Score               int     `json:"score"`
	UpvoteRatio         float64 `json:"upvote_ratio"`
	NumComments         int     `json:"num_comments"`
	TotalAwardsReceived int     `json:"total_awards_received"`
	CreatedUTC          float64 `json:"created_utc"`
}

func (d redditPostData) toPost(subreddit string) RedditPost {
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}
	return RedditPost{
		ID:          d.ID,
		Title:       d.Title,
		Text:        d.Selftext,
		Author:      author,
		Subreddit:   subreddit,
		Score:       d.Score,
		NumComments: d.NumComments,
		UpvoteRatio: d.UpvoteRatio,
		Awards:      d.TotalAwardsReceived,
		CreatedAt:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		URL:         "https://reddit.com" + d.Permalink,
		Permalink:   d.Permalink,
	}
}

func (rc *RedditClient) listing(ctx context.Context, path string, params map[string]string) ([]redditPostData, error) {
	token, err := rc.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := rc.client.R().
		SetContext(ctx).
		SetAuthScheme("bearer").
		SetAuthToken(token).
		SetQueryParams(params).
		Get(strings.TrimRight(rc.cfg.APIURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("reddit %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit %s HTTP %d", path, resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("reddit %s decode: %w", path, err)
	}
	out := make([]redditPostData, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		out = append(out, c.Data)
	}
	return out, nil
}

type RedditSearch struct {
	Ticker     string   `json:"ticker"`
	Subreddits []string `json:"subreddits"`
	Limit      int      `json:"limit"`
	// TimeFilter is one of hour, day, week, month, year, all.
	TimeFilter string `json:"time_filter"`
}

// FetchPosts searches each subreddit for the ticker's top search terms and
// returns the distinct posts that really mention it, scored for sentiment.
// A failing subreddit is logged and skipped.
func (rc *RedditClient) FetchPosts(ctx context.Context, q RedditSearch) ([]RedditPost, error) {
	if !rc.Configured() {
		return nil, fmt.Errorf("reddit: %w: client credentials not configured", config.ErrMissingCredential)
	}
	q.Ticker = NormalizeSymbol(q.Ticker)
	if err := ValidateSymbol(q.Ticker); err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	if q.TimeFilter == "" {
		q.TimeFilter = "day"
	}

	var cached []RedditPost
	if rc.cache.Get("reddit", "posts", q, &cached) {
		return ScorePosts(cached, rc.cfg.SentimentMethod), nil
	}

	terms := SearchTerms(q.Ticker)
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}

	seen := make(map[string]struct{})
	var posts []RedditPost
	for _, sub := range q.Subreddits {
		for _, term := range terms {
			items, err := rc.listing(ctx, "/r/"+sub+"/search", map[string]string{
				"q":           term,
				"restrict_sr": "1",
				"t":           q.TimeFilter,
				"limit":       fmt.Sprint(q.Limit),
				"sort":        "relevance",
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Printf("[reddit] r/%s search %q: %v", sub, term, err)
				break
			}
			for _, item := range items {
				if !ContainsTicker(item.Title+" "+item.Selftext, q.Ticker) {
					continue
				}
				if _, dup := seen[item.ID]; dup {
					continue
				}
				seen[item.ID] = struct{}{}
				posts = append(posts, item.toPost(sub))
			}
		}
	}

	posts = ScorePosts(posts, rc.cfg.SentimentMethod)
	if err := rc.cache.Set("reddit", "posts", q, posts); err != nil {
		log.Printf("[reddit] cache %s: %v", q.Ticker, err)
	}
	return posts, nil
}

// TrendingTickers counts ticker mentions across the hot listing of each
// subreddit and returns the most mentioned.
func (rc *RedditClient) TrendingTickers(ctx context.Context, subreddits []string, limit int) ([]TickerMentions, error) {
	if !rc.Configured() {
		return nil, fmt.Errorf("reddit: %w: client credentials not configured", config.ErrMissingCredential)
	}
	if limit <= 0 || limit > trendingPostsCap {
		limit = trendingPostsCap
	}

	counts := make(map[string]int)
	for _, sub := range subreddits {
		items, err := rc.listing(ctx, "/r/"+sub+"/hot", map[string]string{"limit": fmt.Sprint(limit)})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[reddit] r/%s hot: %v", sub, err)
			continue
		}
		for _, item := range items {
			for _, t := range ExtractTickers(item.Title + " " + item.Selftext) {
				counts[t]++
			}
		}
	}
	return TopMentions(counts, trendingTopN), nil
}

// TopMentions orders counts by mentions, then ticker, and keeps the first n.
func TopMentions(counts map[string]int, n int) []TickerMentions {
	out := make([]TickerMentions, 0, len(counts))
	for t, c := range counts {
		out = append(out, TickerMentions{Ticker: t, Mentions: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Ticker < out[j].Ticker
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

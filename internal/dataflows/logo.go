package dataflows

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const DefaultLogoURL = "https://logo.clearbit.com"

var tickerDomains = map[string]string{
	"aapl": "apple.com", "msft": "microsoft.com", "googl": "google.com", "goog": "google.com",
	"amzn": "amazon.com", "meta": "meta.com", "tsla": "tesla.com", "nvda": "nvidia.com",
	"avgo": "broadcom.com", "ibm": "ibm.com", "orcl": "oracle.com", "intc": "intel.com",
	"amd": "amd.com", "nflx": "netflix.com", "dis": "disney.com", "ba": "boeing.com",
	"jpm": "jpmorganchase.com", "v": "visa.com", "ma": "mastercard.com", "wmt": "walmart.com",
	"ko": "coca-cola.com", "pfe": "pfizer.com", "jnj": "jnj.com", "pg": "pg.com",
	"bac": "bankofamerica.com", "csco": "cisco.com", "adbe": "adobe.com", "crm": "salesforce.com",
	"petr4": "petrobras.com.br", "vale3": "vale.com", "itub4": "itau.com.br", "bbdc4": "bb.com.br",
}

// TickerDomain guesses the company web domain of a ticker.
func TickerDomain(ticker string) string {
	clean := strings.ReplaceAll(NormalizeSymbol(ticker), ".SA", "")
	clean = strings.ToLower(strings.ReplaceAll(clean, "-", ""))
	if d, ok := tickerDomains[clean]; ok {
		return d
	}
	return clean + ".com"
}

// LogoResolver finds a logo URL for a ticker: the logo service first, then the
// icon declared on the company home page. Results are memoised for a day.
type LogoResolver struct {
	client  *resty.Client
	baseURL string
	// homeURL builds the home page URL for a domain; tests override it.
	homeURL func(domain string) string

	mu    sync.Mutex
	cache map[string]logoEntry
}

type logoEntry struct {
	url     string
	fetched time.Time
}

func NewLogoResolver(baseURL string) *LogoResolver {
	if baseURL == "" {
		baseURL = DefaultLogoURL
	}
	client := resty.New()
	client.SetTimeout(2 * time.Second)
	return &LogoResolver{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		homeURL: func(domain string) string { return "https://" + domain },
		cache:   make(map[string]logoEntry),
	}
}

// Resolve returns the logo URL for ticker, or "" when none is reachable.
func (lr *LogoResolver) Resolve(ctx context.Context, ticker string) string {
	ticker = NormalizeSymbol(ticker)

	lr.mu.Lock()
	if e, ok := lr.cache[ticker]; ok && time.Since(e.fetched) < 24*time.Hour {
		lr.mu.Unlock()
		return e.url
	}
	lr.mu.Unlock()

	domain := TickerDomain(ticker)
	logo := lr.baseURL + "/" + domain
	resp, err := lr.client.R().SetContext(ctx).Head(logo)
	if err != nil || resp.StatusCode() != 200 {
		logo = lr.homepageIcon(ctx, domain)
	}

	lr.mu.Lock()
	lr.cache[ticker] = logoEntry{url: logo, fetched: time.Now()}
	lr.mu.Unlock()
	return logo
}

func (lr *LogoResolver) homepageIcon(ctx context.Context, domain string) string {
	home := lr.homeURL(domain)
	resp, err := lr.client.R().SetContext(ctx).Get(home)
	if err != nil || resp.StatusCode() != 200 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return ""
	}

	var href string
	for _, sel := range []string{`link[rel="apple-touch-icon"]`, `link[rel="icon"]`, `link[rel="shortcut icon"]`} {
		if v, ok := doc.Find(sel).First().Attr("href"); ok && v != "" {
			href = v
			break
		}
	}
	if href == "" {
		return ""
	}

	base, err := url.Parse(home)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

package dataflows

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData is returned when a provider answered but had nothing for the request.
var ErrNoData = errors.New("no data available")

// Bar is one daily OHLCV candle.
type Bar struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// Day returns the bar's calendar date as YYYY-MM-DD.
func (b Bar) Day() string {
	return b.Date.Format("2006-01-02")
}

// Quote is a point-in-time price snapshot.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `json:"timestamp"`
}

// QuoteFromBars derives a quote from the last two bars of a daily series.
func QuoteFromBars(symbol string, bars []Bar) (*Quote, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	last := bars[len(bars)-1]
	q := &Quote{
		Symbol:        symbol,
		Price:         last.Close,
		PreviousClose: last.Open,
		Volume:        last.Volume,
		Timestamp:     last.Date,
	}
	if len(bars) > 1 {
		q.PreviousClose = bars[len(bars)-2].Close
	}
	q.Change = q.Price.Sub(q.PreviousClose)
	if !q.PreviousClose.IsZero() {
		q.ChangePercent = q.Change.Div(q.PreviousClose).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return q, nil
}

type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ImageURL    string    `json:"image_url,omitempty"`
	Sentiment   string    `json:"sentiment"`
	// SentimentScore is only set by providers that score articles themselves.
	SentimentScore float64 `json:"sentiment_score,omitempty"`
	Provider       string  `json:"provider"`
}

type RedditPost struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	Author         string    `json:"author"`
	Subreddit      string    `json:"subreddit"`
	Score          int       `json:"score"`
	NumComments    int       `json:"num_comments"`
	UpvoteRatio    float64   `json:"upvote_ratio"`
	Awards         int       `json:"awards"`
	CreatedAt      time.Time `json:"created_at"`
	URL            string    `json:"url"`
	Permalink      string    `json:"permalink"`
	Sentiment      string    `json:"sentiment,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	Weight         float64   `json:"weight"`
}

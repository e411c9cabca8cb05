package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

func symbolParam(c *gin.Context) (string, bool) {
	ticker := dataflows.NormalizeSymbol(c.Param("ticker"))
	if err := dataflows.ValidateSymbol(ticker); err != nil || strings.ContainsAny(ticker, `/\`) || ticker == ".." {
		badRequest(c, fmt.Errorf("invalid ticker %q", c.Param("ticker")))
		return "", false
	}
	return ticker, true
}

// transportFailure answers with empty data and a warning unless err is a
// configuration or validation problem the caller has to fix.
func transportFailure(c *gin.Context, err error, body gin.H) {
	if errors.Is(err, config.ErrMissingCredential) {
		respondError(c, err)
		return
	}
	body["warnings"] = []string{err.Error()}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleBacktest(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	capital, err := capitalParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, metrics, err := s.app.Backtest(c.Request.Context(), ticker, capital)
	if err != nil {
		if errors.Is(err, backtest.ErrInsufficientHistory) || reports.IsNotFound(err) {
			respondError(c, err)
			return
		}
		transportFailure(c, err, gin.H{"ticker": ticker, "result": nil, "metrics": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker":   ticker,
		"result":   result,
		"metrics":  metrics,
		"warnings": []string{},
	})
}

func (s *Server) handleCompare(c *gin.Context) {
	capital, err := capitalParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	var tickers []string
	for _, t := range strings.Split(c.Query("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		all, err := s.app.Reports.ListTickers()
		if err != nil {
			respondError(c, err)
			return
		}
		tickers = all
	}

	histories := make(map[string][]reports.DecisionRecord, len(tickers))
	for _, t := range tickers {
		histories[t] = s.app.Reports.History(t)
	}
	rows, failures := s.app.Clients().Backtester.CompareTickers(c.Request.Context(), histories, capital)

	var warns []string
	for _, t := range tickers {
		if err, ok := failures[t]; ok {
			warns = append(warns, err.Error())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"capital":     capital,
		"comparisons": rows,
		"warnings":    warnings(warns),
	})
}

func (s *Server) handleQuote(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	market := s.app.Clients().Market
	quote, err := market.Quote(c.Request.Context(), ticker)
	if err != nil {
		transportFailure(c, err, gin.H{"ticker": ticker, "source": market.Name(), "quote": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "source": market.Name(), "quote": quote, "warnings": []string{}})
}

func (s *Server) handleMarketHistory(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	period := c.DefaultQuery("period", s.app.Settings.Get().DefaultPeriod)
	start, end, err := dataflows.PeriodRange(period, s.now())
	if err != nil {
		badRequest(c, err)
		return
	}

	market := s.app.Clients().Market
	bars, err := market.History(c.Request.Context(), ticker, start, end)
	if err != nil {
		transportFailure(c, err, gin.H{"ticker": ticker, "period": period, "bars": []dataflows.Bar{}})
		return
	}
	if bars == nil {
		bars = []dataflows.Bar{}
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "period": period, "bars": bars, "warnings": []string{}})
}

func (s *Server) handleNews(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	news := s.app.Clients().News
	if !news.HasSources() {
		respondError(c, fmt.Errorf("news: %w: set news_api or alpha_vantage", config.ErrMissingCredential))
		return
	}
	articles, err := news.FetchAll(c.Request.Context(), ticker)
	if err != nil {
		transportFailure(c, err, gin.H{"ticker": ticker, "articles": []dataflows.NewsArticle{}})
		return
	}
	if articles == nil {
		articles = []dataflows.NewsArticle{}
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "articles": articles, "warnings": []string{}})
}

func (s *Server) handleReddit(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	rs := s.app.Settings.Get().Reddit
	q := dataflows.RedditSearch{
		Ticker:     ticker,
		Subreddits: rs.Subreddits,
		Limit:      rs.PostLimit,
		TimeFilter: c.DefaultQuery("time_filter", rs.TimeFilter),
	}
	posts, err := s.app.Clients().Reddit.FetchPosts(c.Request.Context(), q)
	if err != nil {
		transportFailure(c, err, gin.H{"ticker": ticker, "posts": []dataflows.RedditPost{}, "sentiment": dataflows.Aggregate(nil)})
		return
	}
	if posts == nil {
		posts = []dataflows.RedditPost{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker":    ticker,
		"posts":     posts,
		"sentiment": dataflows.Aggregate(posts),
		"warnings":  []string{},
	})
}

func (s *Server) handleRedditTrending(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}
	trending, err := s.app.Clients().Reddit.TrendingTickers(c.Request.Context(), s.app.Settings.Get().Reddit.Subreddits, limit)
	if err != nil {
		transportFailure(c, err, gin.H{"trending": []dataflows.TickerMentions{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trending": trending, "warnings": []string{}})
}

func (s *Server) handleLogo(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "url": s.app.Logos.Resolve(c.Request.Context(), ticker)})
}

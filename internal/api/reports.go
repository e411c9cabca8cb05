package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

type reportView struct {
	Type    reports.ReportType `json:"type"`
	Title   string             `json:"title"`
	Content string             `json:"content"`
}

// reportFields are the structured values pulled out of an analysis.
type reportFields struct {
	Decision         mdparse.Decision     `json:"decision"`
	Indicators       *mdparse.Fields      `json:"indicators"`
	NewsSources      []mdparse.NewsSource `json:"news_sources"`
	FinancialMetrics *mdparse.Fields      `json:"financial_metrics"`
}

func pathSegment(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		badRequest(c, fmt.Errorf("invalid %s %q", name, v))
		return "", false
	}
	return v, true
}

func language(c *gin.Context) (string, bool) {
	lang := strings.TrimSpace(c.Query("lang"))
	if lang == "" {
		return reports.DefaultLanguage, true
	}
	if err := reports.ValidateLanguage(lang); err != nil {
		badRequest(c, err)
		return "", false
	}
	return lang, true
}

func (s *Server) handleTickers(c *gin.Context) {
	tickers, err := s.app.Reports.ListTickers()
	if err != nil {
		respondError(c, err)
		return
	}
	summaries := make([]reports.TickerSummary, 0, len(tickers))
	for _, t := range tickers {
		summaries = append(summaries, s.app.Reports.Summary(t))
	}
	c.JSON(http.StatusOK, gin.H{"tickers": summaries})
}

func (s *Server) handleTickerSummary(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	summary := s.app.Reports.Summary(ticker)
	if summary.TotalAnalyses == 0 {
		respondError(c, &reports.NotFoundError{What: "ticker", Path: ticker})
		return
	}
	summary.AllDates = nil
	c.JSON(http.StatusOK, gin.H{
		"summary":   summary,
		"decisions": reports.DecisionCounts(s.app.Reports.History(ticker)),
	})
}

func (s *Server) handleTickerDates(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "dates": s.app.Reports.ListDates(ticker)})
}

func (s *Server) handleTickerHistory(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	history := s.app.Reports.History(ticker)
	c.JSON(http.StatusOK, gin.H{
		"ticker":  ticker,
		"history": history,
		"counts":  reports.DecisionCounts(history),
	})
}

func (s *Server) handleReports(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	date, ok := pathSegment(c, "date")
	if !ok {
		return
	}
	lang, ok := language(c)
	if !ok {
		return
	}

	all := s.app.Reports.AllReports(ticker, date, lang)
	if len(all) == 0 {
		respondError(c, &reports.NotFoundError{What: "analysis", Path: ticker + "/" + date})
		return
	}

	views := make([]reportView, 0, len(all))
	for _, t := range reports.ReportTypes {
		if content, ok := all[t]; ok {
			views = append(views, reportView{Type: t, Title: t.Title(), Content: content})
		}
	}
	fields := reportFields{
		Decision:         mdparse.ExtractDecision(all[reports.FinalTradeDecision]),
		Indicators:       mdparse.ExtractIndicators(all[reports.MarketReport]),
		NewsSources:      mdparse.ExtractNewsSources(all[reports.NewsReport]),
		FinancialMetrics: mdparse.ExtractFinancialMetrics(all[reports.FundamentalsReport]),
	}
	if fields.NewsSources == nil {
		fields.NewsSources = []mdparse.NewsSource{}
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":   ticker,
		"date":     date,
		"language": lang,
		"reports":  views,
		"fields":   fields,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	date, ok := pathSegment(c, "date")
	if !ok {
		return
	}
	reportType, err := reports.ParseReportType(c.Param("type"))
	if err != nil {
		badRequest(c, err)
		return
	}
	lang, ok := language(c)
	if !ok {
		return
	}

	content, found := s.app.Reports.ReadReport(ticker, date, reportType, lang)
	if !found {
		respondError(c, &reports.NotFoundError{What: "report", Path: s.app.Reports.ReportPath(ticker, date, reportType, lang)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker":   ticker,
		"date":     date,
		"language": lang,
		"report":   reportView{Type: reportType, Title: reportType.Title(), Content: content},
	})
}

func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	date, ok := pathSegment(c, "date")
	if !ok {
		return
	}
	if err := s.app.Reports.DeleteAnalysis(ticker, date); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ticker + "/" + date})
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	ticker, ok := pathSegment(c, "ticker")
	if !ok {
		return
	}
	date, ok := pathSegment(c, "date")
	if !ok {
		return
	}
	reportType, err := reports.ParseReportType(c.Param("type"))
	if err != nil {
		badRequest(c, err)
		return
	}
	lang, ok := language(c)
	if !ok {
		return
	}
	if err := s.app.Reports.DeleteReport(ticker, date, reportType, lang); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": reports.ReportFileName(reportType, lang)})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
)

type stubMarket struct {
	closes map[string]float64
	price  float64
	err    error
}

func (s stubMarket) Name() string { return "stub" }

func (s stubMarket) Quote(ctx context.Context, symbol string) (*dataflows.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dataflows.Quote{Symbol: symbol, Price: decimal.NewFromFloat(s.price)}, nil
}

func (s stubMarket) History(ctx context.Context, symbol string, start, end time.Time) ([]dataflows.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	var bars []dataflows.Bar
	for day, c := range s.closes {
		d, _ := time.Parse("2006-01-02", day)
		bars = append(bars, dataflows.Bar{Symbol: symbol, Date: d, Close: decimal.NewFromFloat(c)})
	}
	return bars, nil
}

func writeReport(t *testing.T, root, ticker, date, name, content string) {
	t.Helper()
	dir := filepath.Join(root, ticker, date, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
}

func newTestServer(t *testing.T, market stubMarket) (*Server, *service.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.CacheEnabled = false
	writeReport(t, cfg.ResultsDir, "AAPL", "2024-01-02", "final_trade_decision.md", "FINAL TRANSACTION PROPOSAL: **BUY**")
	writeReport(t, cfg.ResultsDir, "AAPL", "2024-01-09", "final_trade_decision.md", "FINAL TRANSACTION PROPOSAL: **SELL**")
	writeReport(t, cfg.ResultsDir, "AAPL", "2024-01-09", "market_report.md", "| Indicator | Value |\n|---|---|\n| RSI | 55 |\n")
	writeReport(t, cfg.ResultsDir, "AAPL", "2024-01-09", "market_report_pt-BR.md", "Relatório")
	writeReport(t, cfg.ResultsDir, "MSFT", "2024-01-05", "final_trade_decision.md", "FINAL TRANSACTION PROPOSAL: **HOLD**")

	app, err := service.New(cfg)
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	app.SetClients(service.Clients{
		Market:     market,
		News:       dataflows.NewNewsClient(dataflows.NewsConfig{}),
		Reddit:     dataflows.NewRedditClient(dataflows.RedditConfig{}),
		Backtester: backtest.NewBacktester(market),
		Alerts:     alerts.NewEvaluator(market, app.Reports),
	})

	s := NewServer(app, ":0")
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, app
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

var aaplCloses = map[string]float64{"2024-01-02": 100, "2024-01-09": 120}

func TestHealthAndNoRoute(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{})

	rec := do(t, s, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(decode(t, rec)["error"].(string), "route not found") {
		t.Fatalf("no route: %d %s", rec.Code, rec.Body.String())
	}
}

func TestTickerRoutes(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{})

	body := decode(t, do(t, s, http.MethodGet, "/api/tickers", nil))
	tickers := body["tickers"].([]any)
	if len(tickers) != 2 || tickers[0].(map[string]any)["ticker"] != "AAPL" {
		t.Fatalf("unexpected tickers %v", body)
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/tickers/AAPL", nil))
	summary := body["summary"].(map[string]any)
	if summary["latest_decision"] != "SELL" || summary["total_analyses"].(float64) != 2 {
		t.Fatalf("unexpected summary %v", body)
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/tickers/AAPL/dates", nil))
	if dates := body["dates"].([]any); len(dates) != 2 || dates[0] != "2024-01-09" {
		t.Fatalf("dates should be newest first: %v", body)
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/tickers/AAPL/history", nil))
	if counts := body["counts"].(map[string]any); counts["BUY"].(float64) != 1 || counts["SELL"].(float64) != 1 {
		t.Fatalf("unexpected counts %v", body)
	}

	if rec := do(t, s, http.MethodGet, "/api/tickers/TSLA", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ticker: %d", rec.Code)
	}
}

func TestReportRoutes(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{})

	body := decode(t, do(t, s, http.MethodGet, "/api/reports/AAPL/2024-01-09", nil))
	if len(body["reports"].([]any)) != 2 {
		t.Fatalf("unexpected reports %v", body)
	}
	fields := body["fields"].(map[string]any)
	if fields["decision"] != "SELL" || fields["indicators"].(map[string]any)["RSI"] != "55" {
		t.Fatalf("unexpected fields %v", fields)
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/reports/AAPL/2024-01-09/market_report?lang=pt-BR", nil))
	if body["report"].(map[string]any)["content"] != "Relatório" {
		t.Fatalf("unexpected translated report %v", body)
	}

	if rec := do(t, s, http.MethodGet, "/api/reports/AAPL/2024-01-09/bogus", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus type: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/reports/AAPL/2024-01-09/news_report", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing report: %d", rec.Code)
	}

	if rec := do(t, s, http.MethodDelete, "/api/reports/AAPL/2024-01-09/market_report?lang=pt-BR", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete report: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodDelete, "/api/reports/AAPL/2024-01-09/market_report?lang=pt-BR", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := do(t, s, method, "/api/reports/AAPL/2024-01-09/market_report?lang=..%2F..%2F..%2Fvictim", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s with traversing lang: %d %s", method, rec.Code, rec.Body.String())
		}
	}
	if rec := do(t, s, http.MethodGet, "/api/reports/AAPL/2024-01-09?lang=..", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("all reports with traversing lang: %d", rec.Code)
	}

	if rec := do(t, s, http.MethodDelete, "/api/reports/MSFT/2024-01-05", nil); rec.Code != http.StatusOK {
		t.Fatalf("delete analysis: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/tickers/MSFT", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("MSFT should be gone: %d", rec.Code)
	}
}

func TestBacktestRoutes(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{closes: aaplCloses})

	body := decode(t, do(t, s, http.MethodGet, "/api/backtest/AAPL?capital=10000", nil))
	result := body["result"].(map[string]any)
	if result["final_value"].(float64) != 12000 || result["num_trades"].(float64) != 2 {
		t.Fatalf("unexpected backtest %v", body)
	}

	if rec := do(t, s, http.MethodGet, "/api/backtest/MSFT", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("single decision should be rejected: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/backtest/AAPL?capital=-1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative capital: %d", rec.Code)
	}

	body = decode(t, do(t, s, http.MethodGet, "/api/compare?tickers=AAPL,MSFT", nil))
	if len(body["comparisons"].([]any)) != 1 || len(body["warnings"].([]any)) != 1 {
		t.Fatalf("unexpected comparison %v", body)
	}
}

func TestMarketDegradesOnTransportFailure(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{err: errors.New("connection refused")})

	rec := do(t, s, http.MethodGet, "/api/market/AAPL/quote", nil)
	body := decode(t, rec)
	if rec.Code != http.StatusOK || body["quote"] != nil || len(body["warnings"].([]any)) != 1 {
		t.Fatalf("quote should degrade: %d %v", rec.Code, body)
	}
	rec = do(t, s, http.MethodGet, "/api/market/AAPL/history?period=1mo", nil)
	if rec.Code != http.StatusOK || len(decode(t, rec)["bars"].([]any)) != 0 {
		t.Fatalf("history should degrade: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/api/market/AAPL/history?period=7w", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad period: %d", rec.Code)
	}
}

func TestMissingCredentialsAre503(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{})

	for _, path := range []string{"/api/news/AAPL", "/api/reddit/AAPL", "/api/reddit/trending"} {
		rec := do(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusServiceUnavailable || decode(t, rec)["remediation"] == nil {
			t.Fatalf("%s: %d %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestAlertRoutes(t *testing.T) {
	s, app := newTestServer(t, stubMarket{price: 150})

	rec := do(t, s, http.MethodPost, "/api/alerts", gin.H{"type": "price_above", "ticker": "aapl", "params": gin.H{"target_price": 140}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	id := decode(t, rec)["alert"].(map[string]any)["id"].(string)

	if rec := do(t, s, http.MethodPost, "/api/alerts", gin.H{"type": "price_above", "ticker": "AAPL"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing target price: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/alerts", gin.H{"type": "moon", "ticker": "AAPL"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown type: %d", rec.Code)
	}

	body := decode(t, do(t, s, http.MethodPost, "/api/alerts/check", nil))
	if body["checked"].(float64) != 1 || len(body["triggered"].([]any)) != 1 {
		t.Fatalf("unexpected check %v", body)
	}
	fired := body["triggered"].([]any)[0].(map[string]any)
	if fired["trigger_value"] != "150.00" || fired["triggered_at"] == "" {
		t.Fatalf("unexpected fired alert %v", fired)
	}

	list, err := app.State.Alerts(context.Background(), false)
	if err != nil || len(list) != 1 || !list[0].Triggered {
		t.Fatalf("alert should be flagged: %+v %v", list, err)
	}

	if rec := do(t, s, http.MethodDelete, "/api/alerts/"+id, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/alerts/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: %d", rec.Code)
	}
	body = decode(t, do(t, s, http.MethodGet, "/api/alerts?active=true", nil))
	if len(body["alerts"].([]any)) != 0 || len(body["triggered"].([]any)) != 1 {
		t.Fatalf("unexpected alert list %v", body)
	}
}

func TestPortfolioRoutes(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{price: 200})

	for _, p := range []gin.H{
		{"ticker": "AAPL", "shares": 10, "avg_price": 100, "purchase_date": "2024-01-02"},
		{"ticker": "AAPL", "shares": 10, "avg_price": 200, "purchase_date": "2024-02-02"},
	} {
		if rec := do(t, s, http.MethodPost, "/api/portfolio", p); rec.Code != http.StatusCreated {
			t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
		}
	}
	if rec := do(t, s, http.MethodPost, "/api/portfolio", gin.H{"ticker": "AAPL", "shares": 0, "avg_price": 1}); rec.Code != http.StatusBadRequest {
		t.Fatalf("zero shares: %d", rec.Code)
	}

	body := decode(t, do(t, s, http.MethodGet, "/api/portfolio", nil))
	positions := body["positions"].([]any)
	if len(positions) != 1 {
		t.Fatalf("positions should merge: %v", body)
	}
	metrics := body["metrics"].(map[string]any)
	if metrics["total_value"] != "4000" || metrics["total_cost"] != "3000" {
		t.Fatalf("unexpected metrics %v", metrics)
	}

	if rec := do(t, s, http.MethodDelete, "/api/portfolio/AAPL", nil); rec.Code != http.StatusOK {
		t.Fatalf("remove: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/portfolio/AAPL", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("remove again: %d", rec.Code)
	}
}

func TestSettingsRoutes(t *testing.T) {
	s, app := newTestServer(t, stubMarket{})

	current := app.Settings.Get()
	current.APIKeys[config.KeyNewsAPI] = "secret-key-1234"
	if err := app.UpdateSettings(current); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	body := decode(t, do(t, s, http.MethodGet, "/api/settings", nil))
	keys := body["api_keys"].(map[string]any)
	if keys[config.KeyNewsAPI] != "***********1234" {
		t.Fatalf("key should be masked: %v", keys)
	}

	body["theme"] = "dark"
	if rec := do(t, s, http.MethodPut, "/api/settings", body); rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	got := app.Settings.Get()
	if got.Theme != "dark" || got.APIKeys[config.KeyNewsAPI] != "secret-key-1234" {
		t.Fatalf("masked key should be kept: %+v", got)
	}
	if !app.Clients().News.HasSources() {
		t.Fatal("clients should be rebuilt with the stored key")
	}

	body["cache_duration"] = 1
	if rec := do(t, s, http.MethodPut, "/api/settings", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid cache_duration: %d", rec.Code)
	}

	if rec := do(t, s, http.MethodPost, "/api/settings/reset", nil); rec.Code != http.StatusOK {
		t.Fatalf("reset: %d", rec.Code)
	}
	if app.Settings.Get().Theme != "light" {
		t.Fatal("reset should restore defaults")
	}
}

func TestExportRoute(t *testing.T) {
	s, _ := newTestServer(t, stubMarket{closes: aaplCloses})

	rec := do(t, s, http.MethodGet, "/api/export/backtest?ticker=AAPL&format=csv", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "date,action,shares,price,value") {
		t.Fatalf("csv export: %d %q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "backtest_AAPL_20240601_120000.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	rec = do(t, s, http.MethodGet, "/api/export/comparison?format=md", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "AAPL, MSFT") {
		t.Fatalf("markdown export: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, s, http.MethodGet, "/api/export/backtest?format=csv", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("backtest without ticker: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/export/everything", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/export/alerts?format=parquet", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("alerts parquet: %d", rec.Code)
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
	"github.com/brandonnmartinsj/TradingAgents/internal/storage"
)

const defaultCapital = 10000.0

// Server is the dashboard HTTP API.
type Server struct {
	router *gin.Engine
	app    *service.App
	addr   string
	now    func() time.Time
}

func NewServer(app *service.App, addr string) *Server {
	if app.Config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if app.Config.Debug {
			log.Printf("[api] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		}
	})
	router.Use(corsMiddleware())

	s := &Server{
		router: router,
		app:    app,
		addr:   addr,
		now:    time.Now,
	}
	s.setupRoutes()
	return s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.GET("/tickers", s.handleTickers)
		api.GET("/tickers/:ticker", s.handleTickerSummary)
		api.GET("/tickers/:ticker/dates", s.handleTickerDates)
		api.GET("/tickers/:ticker/history", s.handleTickerHistory)

		api.GET("/reports/:ticker/:date", s.handleReports)
		api.GET("/reports/:ticker/:date/:type", s.handleReport)
		api.DELETE("/reports/:ticker/:date", s.handleDeleteAnalysis)
		api.DELETE("/reports/:ticker/:date/:type", s.handleDeleteReport)

		api.GET("/backtest/:ticker", s.handleBacktest)
		api.GET("/compare", s.handleCompare)

		api.GET("/market/:ticker/quote", s.handleQuote)
		api.GET("/market/:ticker/history", s.handleMarketHistory)
		api.GET("/news/:ticker", s.handleNews)
		api.GET("/reddit/trending", s.handleRedditTrending)
		api.GET("/reddit/:ticker", s.handleReddit)
		api.GET("/logo/:ticker", s.handleLogo)

		api.GET("/alerts", s.handleAlerts)
		api.POST("/alerts", s.handleCreateAlert)
		api.POST("/alerts/check", s.handleCheckAlerts)
		api.DELETE("/alerts/:id", s.handleDeleteAlert)

		api.GET("/portfolio", s.handlePortfolio)
		api.POST("/portfolio", s.handleAddPosition)
		api.DELETE("/portfolio/:ticker", s.handleRemovePosition)

		api.GET("/settings", s.handleSettings)
		api.PUT("/settings", s.handleUpdateSettings)
		api.POST("/settings/reset", s.handleResetSettings)

		api.GET("/export/:kind", s.handleExport)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("route not found: %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Printf("[api] shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().Format(time.RFC3339),
	})
}

// respondError maps domain errors onto status codes.
func respondError(c *gin.Context, err error) {
	var nf *reports.NotFoundError
	switch {
	case errors.As(err, &nf), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, config.ErrMissingCredential):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":       err.Error(),
			"remediation": "add the missing API key to .env or to api_keys in the dashboard settings",
		})
	case errors.Is(err, backtest.ErrInsufficientHistory), errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, reports.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// warnings is always encoded as a list.
func warnings(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func capitalParam(c *gin.Context) (float64, error) {
	raw := c.Query("capital")
	if raw == "" {
		return defaultCapital, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("capital must be a positive number, got %q", raw)
	}
	return v, nil
}

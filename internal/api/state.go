package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/export"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
)

type createAlertRequest struct {
	Type   string        `json:"type" binding:"required"`
	Ticker string        `json:"ticker" binding:"required"`
	Params alerts.Params `json:"params"`
}

type addPositionRequest struct {
	Ticker       string          `json:"ticker" binding:"required"`
	Shares       decimal.Decimal `json:"shares"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	PurchaseDate string          `json:"purchase_date"`
}

func (s *Server) handleAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.app.State.Alerts(ctx, c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	triggered, err := s.app.State.TriggeredAlerts(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	if triggered == nil {
		triggered = []alerts.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "triggered": triggered})
}

func (s *Server) handleCreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := alerts.ParseType(req.Type)
	if err != nil {
		badRequest(c, err)
		return
	}
	a, err := alerts.New(t, req.Ticker, req.Params, s.now())
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.app.State.SaveAlert(c.Request.Context(), a); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alert": a})
}

func (s *Server) handleCheckAlerts(c *gin.Context) {
	res, err := s.app.CheckAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteAlert(c *gin.Context) {
	id := c.Param("id")
	if err := s.app.State.DeactivateAlert(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": id})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	period := ""
	if c.Query("risk") == "true" {
		period = c.DefaultQuery("period", s.app.Settings.Get().DefaultPeriod)
	}
	view, err := s.app.Portfolio(c.Request.Context(), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleAddPosition(c *gin.Context) {
	var req addPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := portfolio.NewPosition(req.Ticker, req.Shares, req.AvgPrice, req.PurchaseDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	saved, err := s.app.AddPosition(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"position": saved})
}

func (s *Server) handleRemovePosition(c *gin.Context) {
	ticker, ok := symbolParam(c)
	if !ok {
		return
	}
	if err := s.app.State.RemovePosition(c.Request.Context(), ticker); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": ticker})
}

func (s *Server) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Settings.Get().Masked())
}

// handleUpdateSettings replaces the settings document. API keys sent back in
// their masked form keep the stored value.
func (s *Server) handleUpdateSettings(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	incoming, err := config.ParseSettings(body)
	if err != nil {
		badRequest(c, err)
		return
	}

	current := s.app.Settings.Get()
	for name, v := range incoming.APIKeys {
		if old, ok := current.APIKeys[name]; ok && v != "" && v == config.MaskSecret(old) {
			incoming.APIKeys[name] = old
		}
	}
	if err := incoming.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.app.UpdateSettings(incoming); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.app.Settings.Get().Masked())
}

func (s *Server) handleResetSettings(c *gin.Context) {
	if err := s.app.ResetSettings(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.app.Settings.Get().Masked())
}

func (s *Server) handleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", s.app.Settings.Get().ExportFormat))
	if err != nil {
		badRequest(c, err)
		return
	}
	capital, err := capitalParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	req := service.ExportRequest{
		Kind:    c.Param("kind"),
		Ticker:  strings.TrimSpace(c.Query("ticker")),
		Capital: capital,
	}
	for _, t := range strings.Split(c.Query("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			req.Tickers = append(req.Tickers, t)
		}
	}

	now := s.now()
	doc, warns, err := s.app.Export(c.Request.Context(), req, now)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := doc.Write(&buf, format); err != nil {
		badRequest(c, err)
		return
	}
	if len(warns) > 0 {
		c.Header("X-Export-Warnings", strings.Join(warns, "; "))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName(format, now)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

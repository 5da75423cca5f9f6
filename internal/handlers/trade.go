package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atharvakonge/paper-trading-simulator/internal/currency"
	"github.com/atharvakonge/paper-trading-simulator/internal/db"
	"github.com/atharvakonge/paper-trading-simulator/internal/market"
	"github.com/atharvakonge/paper-trading-simulator/internal/models"
	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

// SessionHeader carries the browser session ID in both directions.
const SessionHeader = "X-Session-ID"

const sessionKey = "session_id"

// Deps are the services the HTTP layer needs.
type Deps struct {
	Processor  *TradeProcessor
	Portfolios *models.PortfolioManager
	Source     market.Source
	Store      *db.Store
	Currency   *currency.Converter
	Finnhub    *market.FinnhubClient
	Hub        *PriceHub
	Settings   models.Settings
	Log        *zap.SugaredLogger

	// OnSettingsChanged runs after settings are saved.
	OnSettingsChanged func(models.Settings)
}

// Handler serves the REST and WebSocket API.
type Handler struct {
	deps Deps

	settingsMu sync.RWMutex
	settings   models.Settings
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, settings: deps.Settings}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "source": h.deps.Source.Name()})
	})

	api := r.Group("/api", SessionMiddleware())
	{
		api.GET("/stocks", h.GetStocks)

		// Trading endpoints
		api.POST("/trades/buy", h.BuyStock)
		api.POST("/trades/sell", h.SellStock)
		api.GET("/trades", h.GetTradeHistory)

		api.GET("/portfolio", h.GetPortfolio)
		api.GET("/portfolio/history", h.GetHistory)
		api.GET("/portfolio/stats", h.GetStats)
		api.GET("/portfolio/chart.png", h.GetChart)
		api.GET("/portfolio/allocation.png", h.GetAllocation)
		api.POST("/portfolio/reset", h.ResetPortfolio)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
		api.POST("/settings/test-key", h.TestAPIKey)
	}

	// WebSocket endpoint
	if h.deps.Hub != nil {
		r.GET("/ws/prices", h.deps.Hub.ServeWS)
	}
}

// SessionMiddleware reads the session ID from SessionHeader, minting a new
// one when it is missing or malformed, and echoes it back.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(sessionKey, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// statusFor maps ledger and lookup errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrInsufficientShares),
		errors.Is(err, portfolio.ErrNotOwned):
		return http.StatusBadRequest
	case errors.Is(err, portfolio.ErrPriceUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ErrNothingToChart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrProcessorStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.deps.Log.Errorw("request failed", "path", c.FullPath(), "session", sessionID(c), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// BuyStock handles POST /api/trades/buy
func (h *Handler) BuyStock(c *gin.Context) {
	h.trade(c, models.Buy)
}

// SellStock handles POST /api/trades/sell
func (h *Handler) SellStock(c *gin.Context) {
	h.trade(c, models.Sell)
}

func (h *Handler) trade(c *gin.Context, side models.TradeType) {
	var req models.TradeRequest

	// Parse JSON request body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.deps.Processor.SubmitTrade(sessionID(c), side, req)
	if !result.Success {
		h.fail(c, result.Err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Trade executed successfully",
		"trade":   result,
	})
}

// GetTradeHistory handles GET /api/trades
func (h *Handler) GetTradeHistory(c *gin.Context) {
	var trades []models.Trade
	if err := h.deps.Portfolios.ViewSession(sessionID(c), func(s *models.Session) error {
		trades = s.RecentTrades()
		return nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

// GetPortfolio handles GET /api/portfolio
func (h *Handler) GetPortfolio(c *gin.Context) {
	settings := h.currentSettings()
	resp := models.PortfolioResponse{SessionID: sessionID(c)}

	err := h.deps.Portfolios.ViewSession(resp.SessionID, func(s *models.Session) error {
		p := s.Portfolio
		var err error
		if resp.Positions, err = p.Positions(); err != nil {
			return err
		}
		if resp.TotalValue, err = p.TotalValue(); err != nil {
			return err
		}
		if resp.TotalReturn, err = p.Return(); err != nil {
			return err
		}
		if resp.DailyReturn, err = p.DailyReturn(); err != nil {
			return err
		}
		resp.CashBalance = p.Cash()
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp.Display, err = h.display(settings.DisplayCurrency, resp.CashBalance, resp.TotalValue)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) display(code string, cash, total float64) (models.DisplayValues, error) {
	cashStr, err := h.deps.Currency.Format(cash, code)
	if err != nil {
		return models.DisplayValues{}, err
	}
	totalStr, err := h.deps.Currency.Format(total, code)
	if err != nil {
		return models.DisplayValues{}, err
	}
	return models.DisplayValues{Currency: code, CashBalance: cashStr, TotalValue: totalStr}, nil
}

// GetHistory handles GET /api/portfolio/history
func (h *Handler) GetHistory(c *gin.Context) {
	var history []portfolio.HistorySample
	if err := h.deps.Portfolios.ViewSession(sessionID(c), func(s *models.Session) error {
		history = s.Portfolio.History()
		return nil
	}); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetStats handles GET /api/portfolio/stats
func (h *Handler) GetStats(c *gin.Context) {
	var stats portfolio.HistoryStats
	if err := h.deps.Portfolios.ViewSession(sessionID(c), func(s *models.Session) error {
		var err error
		stats, err = s.Portfolio.Stats()
		return err
	}); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ResetPortfolio handles POST /api/portfolio/reset
func (h *Handler) ResetPortfolio(c *gin.Context) {
	id := sessionID(c)
	if err := h.deps.Portfolios.Reset(id, h.deps.Portfolios.InitialCash()); err != nil {
		h.fail(c, err)
		return
	}
	h.deps.Log.Infow("portfolio reset", "session", id)
	c.JSON(http.StatusOK, gin.H{"message": "Portfolio reset", "cash_balance": h.deps.Portfolios.InitialCash()})
}

// GetStocks handles GET /api/stocks?category=
func (h *Handler) GetStocks(c *gin.Context) {
	var stocks []market.Stock
	if category := strings.ToLower(c.Query("category")); category != "" {
		stocks = market.ByCategory(market.Category(category))
		if stocks == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + category})
			return
		}
	} else {
		stocks = market.AllStocks()
	}

	quotes := make([]models.StockQuote, len(stocks))
	for i, s := range stocks {
		quotes[i] = models.StockQuote{Symbol: s.Symbol, Name: s.Name, Category: string(s.Category)}
		if price, ok := h.deps.Source.Lookup(s.Symbol); ok {
			quotes[i].Price = &price
		}
	}
	c.JSON(http.StatusOK, gin.H{"stocks": quotes})
}

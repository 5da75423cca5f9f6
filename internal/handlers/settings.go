package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atharvakonge/paper-trading-simulator/internal/market"
	"github.com/atharvakonge/paper-trading-simulator/internal/models"
)

const keyTestTimeout = 15 * time.Second

func (h *Handler) currentSettings() models.Settings {
	h.settingsMu.RLock()
	defer h.settingsMu.RUnlock()
	return h.settings
}

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":   h.currentSettings().Masked(),
		"currencies": h.deps.Currency.Supported(),
	})
}

// settingsRequest is the PUT /api/settings body. Omitted optional fields keep
// their stored values.
type settingsRequest struct {
	APIKey          string   `json:"api_key"`
	InitialCapital  *float64 `json:"initial_capital" binding:"omitempty,gte=0"`
	DisplayCurrency string   `json:"display_currency" binding:"required"`
	UpdateFrequency int      `json:"update_frequency" binding:"required"`
}

// merge applies the request on top of the stored settings.
func (r settingsRequest) merge(old models.Settings) models.Settings {
	s := models.Settings{
		APIKey:          r.APIKey,
		InitialCapital:  old.InitialCapital,
		DisplayCurrency: strings.ToUpper(r.DisplayCurrency),
		UpdateFrequency: r.UpdateFrequency,
	}
	if s.APIKey == "" || strings.Contains(s.APIKey, "*") {
		s.APIKey = old.APIKey
	}
	if r.InitialCapital != nil {
		s.InitialCapital = *r.InitialCapital
	}
	return s
}

// PutSettings handles PUT /api/settings. A blank or masked API key and an
// omitted initial capital keep the stored values. Changing the initial
// capital resets the caller's portfolio.
func (h *Handler) PutSettings(c *gin.Context) {
	var body settingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.settingsMu.Lock()
	old := h.settings
	req := body.merge(old)
	if err := req.Validate(h.deps.Currency.Supported()); err != nil {
		h.settingsMu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.deps.Store.SaveSettings(c.Request.Context(), req.ToKV()); err != nil {
		h.settingsMu.Unlock()
		h.fail(c, err)
		return
	}
	h.settings = req
	h.settingsMu.Unlock()

	reset := req.InitialCapital != old.InitialCapital
	if reset {
		h.deps.Portfolios.SetInitialCash(req.InitialCapital)
		if err := h.deps.Portfolios.Reset(sessionID(c), req.InitialCapital); err != nil {
			h.fail(c, err)
			return
		}
	}
	if h.deps.OnSettingsChanged != nil {
		h.deps.OnSettingsChanged(req)
	}

	h.deps.Log.Infow("settings saved",
		"session", sessionID(c), "currency", req.DisplayCurrency,
		"update_frequency", req.UpdateFrequency, "portfolio_reset", reset)
	c.JSON(http.StatusOK, gin.H{
		"message":         "Settings saved",
		"settings":        req.Masked(),
		"portfolio_reset": reset,
	})
}

type testKeyRequest struct {
	APIKey string `json:"api_key"`
}

// TestAPIKey handles POST /api/settings/test-key
func (h *Handler) TestAPIKey(c *gin.Context) {
	var req testKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter an API key"})
		return
	}
	if h.deps.Finnhub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API key testing is not available"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), keyTestTimeout)
	defer cancel()

	err := h.deps.Finnhub.ValidateKey(ctx, key)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "message": "API key is valid"})
	case errors.Is(err, market.ErrTestInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrInvalidAPIKey):
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
	default:
		h.deps.Log.Warnw("api key test failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"valid": false, "error": err.Error()})
	}
}

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/atharvakonge/paper-trading-simulator/internal/models"
	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

// ErrNothingToChart is returned when there is no data to plot.
var ErrNothingToChart = errors.New("nothing to chart")

// RenderHistoryChart draws the portfolio value history as a PNG line chart.
// A single sample is drawn as a flat line one minute long.
func RenderHistoryChart(history []portfolio.HistorySample) ([]byte, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no history", ErrNothingToChart)
	}
	if len(history) == 1 {
		only := history[0]
		history = append(history, portfolio.HistorySample{Timestamp: only.Timestamp.Add(time.Minute), Value: only.Value})
	}

	xValues := make([]time.Time, len(history))
	yValues := make([]float64, len(history))
	lo, hi := history[0].Value, history[0].Value
	for i, s := range history {
		xValues[i] = s.Timestamp
		yValues[i] = s.Value
		lo = min(lo, s.Value)
		hi = max(hi, s.Value)
	}
	// go-chart rejects a zero-height range.
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = max(hi*0.01, 1)
	}

	first, last := xValues[0], xValues[len(xValues)-1]
	if !last.After(first) {
		xValues[len(xValues)-1] = first.Add(time.Minute)
	}
	layout := "15:04"
	if last.Sub(first) > 24*time.Hour {
		layout = "Jan 02"
	}

	graph := chart.Chart{
		Title:  "Portfolio Value",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format(layout)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "Total Value",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2563eb"),
					StrokeWidth: 2.5,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// GetChart handles GET /api/portfolio/chart.png, plotted in the display
// currency.
func (h *Handler) GetChart(c *gin.Context) {
	var history []portfolio.HistorySample
	if err := h.deps.Portfolios.ViewSession(sessionID(c), func(s *models.Session) error {
		history = s.Portfolio.History()
		return nil
	}); err != nil {
		h.fail(c, err)
		return
	}

	code := h.currentSettings().DisplayCurrency
	for i := range history {
		v, err := h.deps.Currency.Convert(history[i].Value, code)
		if err != nil {
			h.fail(c, err)
			return
		}
		history[i].Value = v
	}

	png, err := RenderHistoryChart(history)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// AllocationSlice is one wedge of the allocation chart.
type AllocationSlice struct {
	Label string
	Value float64
}

// RenderAllocationChart draws the share of each slice as a PNG pie chart.
// Slices that are not positive are left out.
func RenderAllocationChart(slices []AllocationSlice) ([]byte, error) {
	var total float64
	for _, s := range slices {
		if s.Value > 0 && !math.IsInf(s.Value, 0) {
			total += s.Value
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: portfolio is empty", ErrNothingToChart)
	}

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		if s.Value <= 0 || math.IsInf(s.Value, 0) {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", s.Label, s.Value/total*100),
			Value: s.Value,
		})
	}

	pie := chart.PieChart{
		Title:  "Portfolio Allocation",
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// GetAllocation handles GET /api/portfolio/allocation.png: the market value
// of every position plus cash, in the display currency.
func (h *Handler) GetAllocation(c *gin.Context) {
	var slices []AllocationSlice
	if err := h.deps.Portfolios.ViewSession(sessionID(c), func(s *models.Session) error {
		positions, err := s.Portfolio.Positions()
		if err != nil {
			return err
		}
		for _, p := range positions {
			slices = append(slices, AllocationSlice{Label: p.Symbol, Value: p.MarketValue})
		}
		slices = append(slices, AllocationSlice{Label: "Cash", Value: s.Portfolio.Cash()})
		return nil
	}); err != nil {
		h.fail(c, err)
		return
	}

	code := h.currentSettings().DisplayCurrency
	for i := range slices {
		v, err := h.deps.Currency.Convert(slices[i].Value, code)
		if err != nil {
			h.fail(c, err)
			return
		}
		slices[i].Value = v
	}

	png, err := RenderAllocationChart(slices)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

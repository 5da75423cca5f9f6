package handlers

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

func TestRenderHistoryChart(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		history []portfolio.HistorySample
	}{
		{"seed only", []portfolio.HistorySample{{Timestamp: start, Value: 10000}}},
		{"flat", []portfolio.HistorySample{
			{Timestamp: start, Value: 10000},
			{Timestamp: start.Add(time.Minute), Value: 10000},
		}},
		{"same timestamp", []portfolio.HistorySample{
			{Timestamp: start, Value: 10000},
			{Timestamp: start, Value: 9950},
		}},
		{"over days", []portfolio.HistorySample{
			{Timestamp: start, Value: 10000},
			{Timestamp: start.Add(36 * time.Hour), Value: 10400},
			{Timestamp: start.Add(72 * time.Hour), Value: 9800},
		}},
		{"zero cash", []portfolio.HistorySample{{Timestamp: start, Value: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := RenderHistoryChart(tt.history)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
		})
	}

	_, err := RenderHistoryChart(nil)
	assert.ErrorIs(t, err, ErrNothingToChart)
}

func TestRenderAllocationChart(t *testing.T) {
	tests := []struct {
		name   string
		slices []AllocationSlice
	}{
		{"cash only", []AllocationSlice{{Label: "Cash", Value: 10000}}},
		{"mixed", []AllocationSlice{
			{Label: "AAPL", Value: 1500},
			{Label: "KO", Value: 600},
			{Label: "Cash", Value: 7900},
		}},
		{"spent out", []AllocationSlice{
			{Label: "MSFT", Value: 3800},
			{Label: "Cash", Value: 0},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := RenderAllocationChart(tt.slices)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
		})
	}

	_, err := RenderAllocationChart([]AllocationSlice{{Label: "Cash", Value: 0}})
	assert.ErrorIs(t, err, ErrNothingToChart)
	_, err = RenderAllocationChart(nil)
	assert.ErrorIs(t, err, ErrNothingToChart)
}

package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturn(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p := newTestPortfolio(t, 10000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))

	prices["AAPL"] = 200
	r, err := p.Return()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, r, 1e-9)
}

func TestReturn_ZeroInitialCash(t *testing.T) {
	p := newTestPortfolio(t, 0, fixedPrices{})

	r, err := p.Return()
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	d, err := p.DailyReturn()
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestReturn_PriceUnavailable(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p := newTestPortfolio(t, 1000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))
	delete(prices, "AAPL")

	_, err := p.Return()
	assert.ErrorIs(t, err, ErrPriceUnavailable)
	_, err = p.DailyReturn()
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestDailyReturn_UsesOldestSampleInWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	prices := fixedPrices{"AAPL": 100}
	p, err := New(10000, prices, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	// Day one: buy, then the price doubles and a second trade records 11000.
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))
	prices["AAPL"] = 200
	now = now.Add(time.Hour)
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 200))

	// Two days later the only samples are older than the window.
	now = now.Add(48 * time.Hour)
	d, err := p.DailyReturn()
	require.NoError(t, err)
	r, err := p.Return()
	require.NoError(t, err)
	assert.Equal(t, r, d, "no sample in window falls back to the seed")

	// A fresh sample inside the window becomes the base.
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 200))
	prices["AAPL"] = 220
	d, err = p.DailyReturn()
	require.NoError(t, err)

	base := p.History()[3].Value
	total, err := p.TotalValue()
	require.NoError(t, err)
	assert.InDelta(t, (total-base)/base*100, d, 1e-9)
}

func TestPositions(t *testing.T) {
	prices := fixedPrices{"AAPL": 100, "KO": 60}
	p := newTestPortfolio(t, 10000, prices)
	require.NoError(t, p.BuyByQuantity("KO", 10, 60))
	require.NoError(t, p.BuyByQuantity("AAPL", 2, 100))
	prices["AAPL"] = 110
	prices["KO"] = 54

	pos, err := p.Positions()
	require.NoError(t, err)
	require.Len(t, pos, 2)

	assert.Equal(t, "AAPL", pos[0].Symbol)
	assert.Equal(t, 220.0, pos[0].MarketValue)
	assert.InDelta(t, 10.0, pos[0].GainLossPct, 1e-9)
	assert.Equal(t, "KO", pos[1].Symbol)
	assert.InDelta(t, -10.0, pos[1].GainLossPct, 1e-9)
}

func TestPositions_NonFinitePrice(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1)} {
		prices := fixedPrices{"AAPL": 100}
		p := newTestPortfolio(t, 1000, prices)
		require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))
		prices["AAPL"] = bad

		_, err := p.Positions()
		assert.ErrorIs(t, err, ErrPriceUnavailable, "price %v", bad)
		_, err = p.TotalValue()
		assert.ErrorIs(t, err, ErrPriceUnavailable, "price %v", bad)
	}
}

func TestStats(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p := newTestPortfolio(t, 1000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 5, 100)) // 1000
	prices["AAPL"] = 80
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 80)) // 900
	prices["AAPL"] = 120
	require.NoError(t, p.SellByQuantity("AAPL", 1, 120)) // 1140

	s, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, 900.0, s.Min)
	assert.InDelta(t, 1140.0, s.Max, 1e-9)
	assert.InDelta(t, 10.0, s.MaxDrawdown, 1e-9)
	assert.Greater(t, s.Volatility, 0.0)
}

func TestStats_SeedOnly(t *testing.T) {
	p := newTestPortfolio(t, 500, fixedPrices{})

	s, err := p.Stats()
	require.NoError(t, err)
	assert.Equal(t, HistoryStats{Samples: 1, Min: 500, Max: 500}, s)
}

package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPrices map[string]float64

func (f fixedPrices) Lookup(symbol string) (float64, bool) {
	p, ok := f[symbol]
	return p, ok
}

// testClock advances one minute every time it is read.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestPortfolio(t *testing.T, cash float64, prices fixedPrices) *Portfolio {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}
	p, err := New(cash, prices, WithClock(clock.now))
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{})

	assert.Equal(t, 10000.0, p.Cash())
	assert.Empty(t, p.Holdings())
	require.Len(t, p.History(), 1)
	assert.Equal(t, 10000.0, p.History()[0].Value)

	total, err := p.TotalValue()
	require.NoError(t, err)
	assert.Equal(t, 10000.0, total)
}

func TestNew_InvalidCash(t *testing.T) {
	for _, cash := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := New(cash, fixedPrices{})
		assert.ErrorIs(t, err, ErrInvalidInput, "cash %v", cash)
	}
	_, err := New(100, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuyThenSellRoundTrip(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p := newTestPortfolio(t, 10000, prices)

	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))
	assert.Equal(t, 9000.0, p.Cash())
	if diff := cmp.Diff([]Holding{{Symbol: "AAPL", Quantity: 10, AvgPrice: 100}}, p.Holdings()); diff != "" {
		t.Errorf("holdings mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, p.History(), 2)

	prices["AAPL"] = 110
	require.NoError(t, p.SellByQuantity("AAPL", 10, 110))
	assert.Equal(t, 10100.0, p.Cash())
	assert.Empty(t, p.Holdings())
	assert.Len(t, p.History(), 3)
}

func TestBuyByAmount(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"TSLA": 250})

	require.NoError(t, p.BuyByAmount("TSLA", 500, 250))

	h, ok := p.Holding("TSLA")
	require.True(t, ok)
	assert.Equal(t, 2.0, h.Quantity)
	assert.Equal(t, 9500.0, p.Cash())
}

func TestBuyByAmount_WholeCashLeavesZero(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"X": 3})

	require.NoError(t, p.BuyByAmount("X", 10000, 3))
	assert.Equal(t, 0.0, p.Cash())
}

func TestBuyByAmount_ExceedsCash(t *testing.T) {
	p := newTestPortfolio(t, 100, fixedPrices{"X": 3})

	err := p.BuyByAmount("X", 100.01, 3)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 100.0, p.Cash())
	assert.Len(t, p.History(), 1)
}

func TestBuy_AverageCost(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"MSFT": 120})

	require.NoError(t, p.BuyByQuantity("MSFT", 10, 100))
	require.NoError(t, p.BuyByQuantity("MSFT", 30, 120))

	h, _ := p.Holding("MSFT")
	assert.Equal(t, 40.0, h.Quantity)
	assert.InDelta(t, (10*100.0+30*120.0)/40, h.AvgPrice, 1e-12)
	assert.Equal(t, 10000.0-1000-3600, p.Cash())
}

func TestBuy_ExactCashBoundary(t *testing.T) {
	p := newTestPortfolio(t, 1000, fixedPrices{"AAPL": 100})

	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))
	assert.Equal(t, 0.0, p.Cash())

	q := newTestPortfolio(t, 1000, fixedPrices{"AAPL": 100})
	err := q.BuyByQuantity("AAPL", 10, math.Nextafter(100, 200))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 1000.0, q.Cash())
	assert.Empty(t, q.Holdings())
	assert.Len(t, q.History(), 1)
}

func TestTrade_InvalidInput(t *testing.T) {
	p := newTestPortfolio(t, 1000, fixedPrices{"AAPL": 100})
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))

	cases := []struct {
		name string
		fn   func() error
	}{
		{"buy zero quantity", func() error { return p.BuyByQuantity("AAPL", 0, 100) }},
		{"buy negative quantity", func() error { return p.BuyByQuantity("AAPL", -1, 100) }},
		{"buy zero price", func() error { return p.BuyByQuantity("AAPL", 1, 0) }},
		{"buy NaN price", func() error { return p.BuyByQuantity("AAPL", 1, math.NaN()) }},
		{"buy empty symbol", func() error { return p.BuyByQuantity("", 1, 100) }},
		{"buy amount zero", func() error { return p.BuyByAmount("AAPL", 0, 100) }},
		{"sell zero quantity", func() error { return p.SellByQuantity("AAPL", 0, 100) }},
		{"sell negative quantity", func() error { return p.SellByQuantity("AAPL", -1, 100) }},
		{"sell negative price", func() error { return p.SellByQuantity("AAPL", 1, -1) }},
		{"sell amount zero price", func() error { return p.SellByAmount("AAPL", 10, 0) }},
		{"sell amount negative", func() error { return p.SellByAmount("AAPL", -10, 100) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.fn(), ErrInvalidInput)
		})
	}

	assert.Equal(t, 900.0, p.Cash())
	assert.Len(t, p.History(), 2)
}

func TestSell_NotOwned(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"MSFT": 50})

	assert.ErrorIs(t, p.SellByQuantity("MSFT", 1, 50), ErrNotOwned)
	assert.ErrorIs(t, p.SellByAmount("MSFT", 50, 50), ErrNotOwned)
	assert.Equal(t, 10000.0, p.Cash())
	assert.Len(t, p.History(), 1)
}

func TestSell_InsufficientShares(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"AAPL": 100})
	require.NoError(t, p.BuyByQuantity("AAPL", 5, 100))

	assert.ErrorIs(t, p.SellByQuantity("AAPL", 6, 100), ErrInsufficientShares)
	assert.ErrorIs(t, p.SellByAmount("AAPL", 600, 100), ErrInsufficientShares)

	h, _ := p.Holding("AAPL")
	assert.Equal(t, 5.0, h.Quantity)
	assert.Equal(t, 9500.0, p.Cash())
	assert.Len(t, p.History(), 2)
}

func TestSell_PartialKeepsAverage(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"AAPL": 100})
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))

	require.NoError(t, p.SellByQuantity("AAPL", 4, 120))

	h, ok := p.Holding("AAPL")
	require.True(t, ok)
	assert.Equal(t, 6.0, h.Quantity)
	assert.Equal(t, 100.0, h.AvgPrice)
	assert.Equal(t, 9000.0+480, p.Cash())
}

func TestSell_FullPositionResetsAverage(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"AAPL": 100})
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))
	require.NoError(t, p.SellByQuantity("AAPL", 10, 100))
	_, ok := p.Holding("AAPL")
	require.False(t, ok)

	require.NoError(t, p.BuyByQuantity("AAPL", 1, 200))
	h, _ := p.Holding("AAPL")
	assert.Equal(t, 200.0, h.AvgPrice)
}

func TestSellByAmount_RoundingTolerance(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"X": 3})
	require.NoError(t, p.BuyByAmount("X", 10, 3))

	// 10/3 shares held; selling $10 at 3 must close the position, not fail.
	require.NoError(t, p.SellByAmount("X", 10, 3))
	assert.Empty(t, p.Holdings())
	assert.InDelta(t, 10000.0, p.Cash(), 1e-9)
}

func TestSellByAmount_Partial(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"AAPL": 100})
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))

	require.NoError(t, p.SellByAmount("AAPL", 250, 125))

	h, _ := p.Holding("AAPL")
	assert.Equal(t, 8.0, h.Quantity)
	assert.Equal(t, 9250.0, p.Cash())
}

func TestSellByQuantity_ZeroPriceAllowed(t *testing.T) {
	p := newTestPortfolio(t, 1000, fixedPrices{"BUST": 10})
	require.NoError(t, p.BuyByQuantity("BUST", 10, 10))

	require.NoError(t, p.SellByQuantity("BUST", 10, 0))
	assert.Equal(t, 900.0, p.Cash())
	assert.Empty(t, p.Holdings())
}

func TestTotalValue_MarksToMarket(t *testing.T) {
	prices := fixedPrices{"AAPL": 100, "MSFT": 50}
	p := newTestPortfolio(t, 10000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 10, 100))
	require.NoError(t, p.BuyByQuantity("MSFT", 20, 50))

	prices["AAPL"] = 150
	first, err := p.TotalValue()
	require.NoError(t, err)
	second, err := p.TotalValue()
	require.NoError(t, err)

	assert.Equal(t, 8000.0+1500+1000, first)
	assert.Equal(t, first, second)
}

func TestTotalValue_PriceUnavailable(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p := newTestPortfolio(t, 10000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))

	delete(prices, "AAPL")
	_, err := p.TotalValue()
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestTrade_UsesExecutionPriceForUnquotedSymbol(t *testing.T) {
	p := newTestPortfolio(t, 1000, fixedPrices{})

	require.NoError(t, p.BuyByQuantity("NEW", 2, 100))
	assert.Equal(t, 1000.0, p.History()[1].Value)
}

func TestTrade_AbortsWhenOtherHoldingUnpriced(t *testing.T) {
	prices := fixedPrices{"AAPL": 100, "MSFT": 50}
	p := newTestPortfolio(t, 10000, prices)
	require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))
	delete(prices, "AAPL")

	err := p.BuyByQuantity("MSFT", 1, 50)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
	assert.Equal(t, 9900.0, p.Cash())
	_, ok := p.Holding("MSFT")
	assert.False(t, ok)
	assert.Len(t, p.History(), 2)
}

func TestHistory_MonotonicAndGrowsPerTrade(t *testing.T) {
	p := newTestPortfolio(t, 10000, fixedPrices{"AAPL": 100})
	for i := 0; i < 5; i++ {
		require.NoError(t, p.BuyByQuantity("AAPL", 1, 100))
	}
	_ = p.SellByQuantity("AAPL", 100, 100) // fails, no sample
	require.NoError(t, p.SellByQuantity("AAPL", 5, 100))

	h := p.History()
	require.Len(t, h, 7)
	for i := 0; i+1 < len(h); i++ {
		assert.False(t, h[i+1].Timestamp.Before(h[i].Timestamp), "sample %d", i)
	}
}

func TestHistory_ClockGoingBackwards(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p, err := New(100, fixedPrices{"A": 1}, WithClock(func() time.Time { return ts }))
	require.NoError(t, err)

	ts = ts.Add(-time.Hour)
	require.NoError(t, p.BuyByQuantity("A", 1, 1))

	h := p.History()
	assert.Equal(t, h[0].Timestamp, h[1].Timestamp)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	p := newTestPortfolio(t, 100, fixedPrices{})
	h := p.History()
	h[0].Value = 0
	assert.Equal(t, 100.0, p.History()[0].Value)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInsufficientFunds, ErrInsufficientShares, ErrNotOwned, ErrInvalidInput, ErrPriceUnavailable}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v matches %v", a, b)
			}
		}
	}
}

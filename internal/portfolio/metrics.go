package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// DailyWindow is the look-back used by DailyReturn.
const DailyWindow = 24 * time.Hour

// Return is the percentage change of total value since the portfolio was
// created. A portfolio created with no cash has a return of 0.
func (p *Portfolio) Return() (float64, error) {
	return p.returnSince(p.history[0])
}

// DailyReturn is the percentage change of total value against the oldest
// sample taken within the last DailyWindow, or the seed sample when there is
// none.
func (p *Portfolio) DailyReturn() (float64, error) {
	cutoff := p.now().Add(-DailyWindow)
	i := sort.Search(len(p.history), func(i int) bool {
		return !p.history[i].Timestamp.Before(cutoff)
	})
	base := p.history[0]
	if i < len(p.history) {
		base = p.history[i]
	}
	return p.returnSince(base)
}

func (p *Portfolio) returnSince(base HistorySample) (float64, error) {
	current, err := p.TotalValue()
	if err != nil {
		return 0, err
	}
	if base.Value == 0 {
		return 0, nil
	}
	return (current - base.Value) / base.Value * 100, nil
}

// Position is a holding marked to the current price.
type Position struct {
	Holding
	Price       float64 `json:"price"`
	MarketValue float64 `json:"market_value"`
	GainLossPct float64 `json:"gain_loss_pct"`
}

// Positions marks every holding to market, ordered by symbol.
func (p *Portfolio) Positions() ([]Position, error) {
	holdings := p.Holdings()
	out := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		price, ok := p.prices.Lookup(h.Symbol)
		if !ok || !finite(price) {
			return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, h.Symbol)
		}
		pos := Position{Holding: h, Price: price, MarketValue: h.Quantity * price}
		if h.AvgPrice > 0 {
			pos.GainLossPct = (price - h.AvgPrice) / h.AvgPrice * 100
		}
		out = append(out, pos)
	}
	return out, nil
}

// HistoryStats summarizes the value history. Volatility is the sample
// standard deviation of percentage changes between consecutive samples, zero
// with fewer than two changes.
type HistoryStats struct {
	Samples     int     `json:"samples"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	MaxDrawdown float64 `json:"max_drawdown_pct"`
	Volatility  float64 `json:"volatility_pct"`
}

// Stats computes HistoryStats over the current history.
func (p *Portfolio) Stats() (HistoryStats, error) {
	values := make(stats.Float64Data, len(p.history))
	for i, s := range p.history {
		values[i] = s.Value
	}

	out := HistoryStats{Samples: len(values)}
	var err error
	if out.Min, err = values.Min(); err != nil {
		return HistoryStats{}, fmt.Errorf("history min: %w", err)
	}
	if out.Max, err = values.Max(); err != nil {
		return HistoryStats{}, fmt.Errorf("history max: %w", err)
	}

	peak := values[0]
	var changes stats.Float64Data
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > out.MaxDrawdown {
				out.MaxDrawdown = dd
			}
		}
		if i > 0 && values[i-1] != 0 {
			changes = append(changes, (v-values[i-1])/values[i-1]*100)
		}
	}

	if len(changes) > 1 {
		sd, err := stats.StandardDeviationSample(changes)
		if err != nil {
			return HistoryStats{}, fmt.Errorf("history volatility: %w", err)
		}
		out.Volatility = sd
	}
	return out, nil
}

// Package portfolio implements the paper-trading ledger: a cash balance, the
// open holdings bought with it, and a time series of total portfolio value.
//
// A Portfolio is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// QuantityEpsilon is the tolerance used when comparing share quantities.
// Amount-based trades derive quantities by division, so a sell may exceed the
// held quantity by rounding error only.
const QuantityEpsilon = 1e-9

// PriceLookup resolves the current price of a symbol.
type PriceLookup interface {
	Lookup(symbol string) (float64, bool)
}

// PriceLookupFunc adapts a plain function to PriceLookup.
type PriceLookupFunc func(symbol string) (float64, bool)

func (f PriceLookupFunc) Lookup(symbol string) (float64, bool) { return f(symbol) }

// Holding is an open position in one symbol.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// HistorySample is a timestamped total value.
type HistorySample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Portfolio is the cash + holdings ledger.
type Portfolio struct {
	cash     float64
	holdings map[string]Holding
	history  []HistorySample
	prices   PriceLookup
	now      func() time.Time
}

// Option configures a Portfolio.
type Option func(*Portfolio)

// WithClock replaces time.Now as the source of sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Portfolio) { p.now = now }
}

// New creates a Portfolio holding initialCash and no positions. The history
// is seeded with one sample worth initialCash.
func New(initialCash float64, prices PriceLookup, opts ...Option) (*Portfolio, error) {
	if !finite(initialCash) || initialCash < 0 {
		return nil, fmt.Errorf("%w: initial cash must be a non-negative number, got %v", ErrInvalidInput, initialCash)
	}
	if prices == nil {
		return nil, fmt.Errorf("%w: price lookup is required", ErrInvalidInput)
	}

	p := &Portfolio{
		cash:     initialCash,
		holdings: make(map[string]Holding),
		prices:   prices,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.history = []HistorySample{{Timestamp: p.now(), Value: initialCash}}
	return p, nil
}

// Cash returns the uninvested cash balance.
func (p *Portfolio) Cash() float64 { return p.cash }

// Holding returns the open position in symbol, if any.
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	h, ok := p.holdings[symbol]
	return h, ok
}

// Holdings returns the open positions ordered by symbol.
func (p *Portfolio) Holdings() []Holding {
	out := make([]Holding, 0, len(p.holdings))
	for _, h := range p.holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// History returns a copy of the value history, oldest first.
func (p *Portfolio) History() []HistorySample {
	out := make([]HistorySample, len(p.history))
	copy(out, p.history)
	return out
}

// TotalValue is cash plus every holding marked at its current price. It fails
// with ErrPriceUnavailable when any held symbol has no price.
func (p *Portfolio) TotalValue() (float64, error) {
	return p.value(p.cash, p.holdings, "", 0)
}

// value marks holdings to market. When the price source has nothing for
// fallbackSymbol, fallbackPrice is used instead.
func (p *Portfolio) value(cash float64, holdings map[string]Holding, fallbackSymbol string, fallbackPrice float64) (float64, error) {
	total := cash
	for symbol, h := range holdings {
		price, ok := p.prices.Lookup(symbol)
		if !ok && symbol == fallbackSymbol {
			price, ok = fallbackPrice, true
		}
		if !ok || !finite(price) {
			return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
		}
		total += h.Quantity * price
	}
	return total, nil
}

// BuyByQuantity buys quantity shares of symbol at price.
func (p *Portfolio) BuyByQuantity(symbol string, quantity, price float64) error {
	if err := validateTrade(symbol, quantity, "quantity", price, true); err != nil {
		return err
	}
	return p.buy(symbol, quantity, price, quantity*price)
}

// BuyByAmount spends amount of cash on symbol at price. Exactly amount is
// debited.
func (p *Portfolio) BuyByAmount(symbol string, amount, price float64) error {
	if err := validateTrade(symbol, amount, "amount", price, true); err != nil {
		return err
	}
	if amount > p.cash {
		return fmt.Errorf("%w: amount %.2f exceeds cash %.2f", ErrInsufficientFunds, amount, p.cash)
	}
	return p.buy(symbol, amount/price, price, amount)
}

func (p *Portfolio) buy(symbol string, quantity, price, cost float64) error {
	if cost > p.cash {
		return fmt.Errorf("%w: cost %.2f exceeds cash %.2f", ErrInsufficientFunds, cost, p.cash)
	}

	h, held := p.holdings[symbol]
	if held {
		newQty := h.Quantity + quantity
		h.AvgPrice = (h.Quantity*h.AvgPrice + cost) / newQty
		h.Quantity = newQty
	} else {
		h = Holding{Symbol: symbol, Quantity: quantity, AvgPrice: price}
	}

	return p.commit(p.cash-cost, symbol, h, price)
}

// SellByQuantity sells quantity shares of symbol at price. Selling the whole
// position closes it; a later buy starts a fresh average price.
func (p *Portfolio) SellByQuantity(symbol string, quantity, price float64) error {
	if err := validateTrade(symbol, quantity, "quantity", price, false); err != nil {
		return err
	}
	h, ok := p.holdings[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOwned, symbol)
	}
	if quantity > h.Quantity+QuantityEpsilon {
		return fmt.Errorf("%w: own %v %s, selling %v", ErrInsufficientShares, h.Quantity, symbol, quantity)
	}
	return p.sell(h, math.Min(quantity, h.Quantity), price, -1)
}

// SellByAmount sells enough shares of symbol at price to raise amount.
func (p *Portfolio) SellByAmount(symbol string, amount, price float64) error {
	if err := validateTrade(symbol, amount, "amount", price, true); err != nil {
		return err
	}
	h, ok := p.holdings[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOwned, symbol)
	}
	quantity := amount / price
	if quantity > h.Quantity+QuantityEpsilon {
		return fmt.Errorf("%w: own %v %s, selling %v", ErrInsufficientShares, h.Quantity, symbol, quantity)
	}
	if quantity > h.Quantity {
		return p.sell(h, h.Quantity, price, -1)
	}
	return p.sell(h, quantity, price, amount)
}

// sell reduces h by quantity. proceeds < 0 means quantity × price.
func (p *Portfolio) sell(h Holding, quantity, price, proceeds float64) error {
	if proceeds < 0 {
		proceeds = quantity * price
	}
	h.Quantity -= quantity
	if h.Quantity <= QuantityEpsilon {
		h.Quantity = 0
	}
	return p.commit(p.cash+proceeds, h.Symbol, h, price)
}

// commit values the ledger as it would be after the trade and only then
// applies it, so a valuation failure leaves everything untouched. A holding
// with zero quantity is removed.
func (p *Portfolio) commit(cash float64, symbol string, h Holding, price float64) error {
	staged := make(map[string]Holding, len(p.holdings)+1)
	for s, existing := range p.holdings {
		staged[s] = existing
	}
	if h.Quantity == 0 {
		delete(staged, symbol)
	} else {
		staged[symbol] = h
	}

	total, err := p.value(cash, staged, symbol, price)
	if err != nil {
		return err
	}

	p.cash = cash
	p.holdings = staged
	p.appendSample(total)
	return nil
}

func (p *Portfolio) appendSample(value float64) {
	ts := p.now()
	if last := p.history[len(p.history)-1].Timestamp; ts.Before(last) {
		ts = last
	}
	p.history = append(p.history, HistorySample{Timestamp: ts, Value: value})
}

func validateTrade(symbol string, size float64, sizeName string, price float64, positivePrice bool) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if !finite(size) || size <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidInput, sizeName, size)
	}
	if !finite(price) || price < 0 || (positivePrice && price == 0) {
		return fmt.Errorf("%w: invalid price %v", ErrInvalidInput, price)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

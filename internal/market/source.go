// Package market supplies current stock prices to the ledger. Every feed
// writes into a shared PriceBook, which is what the ledger reads.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Source is a price feed.
type Source interface {
	Lookup(symbol string) (float64, bool)
	// Refresh pulls a new round of prices. Push feeds may treat it as a
	// backfill for symbols they have not heard about yet.
	Refresh(ctx context.Context) error
	Book() *PriceBook
	Name() string
}

// Runner is implemented by feeds that need a long-lived connection.
type Runner interface {
	Run(ctx context.Context) error
}

// PriceUpdate is one price change.
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"` // percent against the previous price
	Timestamp time.Time `json:"timestamp"`
}

// PriceBook holds the latest known price per symbol.
type PriceBook struct {
	mu        sync.RWMutex
	prices    map[string]float64
	listeners []func(PriceUpdate)
	now       func() time.Time
}

// NewPriceBook creates an empty book.
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]float64), now: time.Now}
}

// Lookup returns the latest price of symbol.
func (b *PriceBook) Lookup(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}

// Set records a new price and notifies listeners.
func (b *PriceBook) Set(symbol string, price float64) error {
	if symbol == "" || price <= 0 {
		return fmt.Errorf("invalid price %v for %q", price, symbol)
	}

	b.mu.Lock()
	old, had := b.prices[symbol]
	b.prices[symbol] = price
	listeners := b.listeners
	b.mu.Unlock()

	update := PriceUpdate{Symbol: symbol, Price: price, Timestamp: b.now()}
	if had && old > 0 {
		update.Change = (price - old) / old * 100
	}
	for _, fn := range listeners {
		fn(update)
	}
	return nil
}

// OnUpdate registers fn to be called after every Set. Listeners run on the
// caller's goroutine and must not block.
func (b *PriceBook) OnUpdate(fn func(PriceUpdate)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Snapshot copies the current prices.
func (b *PriceBook) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for s, p := range b.prices {
		out[s] = p
	}
	return out
}

// Len is the number of priced symbols.
func (b *PriceBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}

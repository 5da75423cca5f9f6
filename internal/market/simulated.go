package market

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

const (
	simulatedMinStart = 100.0
	simulatedSpread   = 900.0
	simulatedMaxMove  = 5.0
	simulatedFloor    = 0.01
)

// SimulatedFeed is a random walk over the catalogue. A symbol without a price
// starts somewhere in [100, 1000); each refresh moves it by up to ±$5.
type SimulatedFeed struct {
	book    *PriceBook
	symbols []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedFeed creates a random-walk feed over symbols. The same seed
// always produces the same sequence.
func NewSimulatedFeed(symbols []string, seed int64) *SimulatedFeed {
	return &SimulatedFeed{
		book:    NewPriceBook(),
		symbols: symbols,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (f *SimulatedFeed) Name() string                         { return "simulated" }
func (f *SimulatedFeed) Book() *PriceBook                     { return f.book }
func (f *SimulatedFeed) Lookup(symbol string) (float64, bool) { return f.book.Lookup(symbol) }

// Refresh moves every symbol one step.
func (f *SimulatedFeed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, symbol := range f.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		var next float64
		if current, ok := f.book.Lookup(symbol); ok {
			next = current + (f.rng.Float64()-0.5)*2*simulatedMaxMove
		} else {
			next = simulatedMinStart + f.rng.Float64()*simulatedSpread
		}
		if err := f.book.Set(symbol, math.Max(next, simulatedFloor)); err != nil {
			return err
		}
	}
	return nil
}

package market

import "context"

// FixtureFeed serves a fixed set of prices. Refresh never changes them.
type FixtureFeed struct {
	book *PriceBook
}

// NewFixtureFeed creates a feed preloaded with prices.
func NewFixtureFeed(prices map[string]float64) (*FixtureFeed, error) {
	f := &FixtureFeed{book: NewPriceBook()}
	for s, p := range prices {
		if err := f.book.Set(s, p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *FixtureFeed) Name() string                         { return "fixture" }
func (f *FixtureFeed) Book() *PriceBook                     { return f.book }
func (f *FixtureFeed) Lookup(symbol string) (float64, bool) { return f.book.Lookup(symbol) }
func (f *FixtureFeed) Refresh(_ context.Context) error      { return nil }

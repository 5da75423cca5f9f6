package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const DefaultFinnhubStreamURL = "wss://ws.finnhub.io"

// FinnhubFeed streams trades from Finnhub over a WebSocket and keeps the
// book at the last traded price. Refresh backfills symbols that have not
// traded yet through the REST quote endpoint.
type FinnhubFeed struct {
	StreamURL      string
	ReconnectDelay time.Duration

	book    *PriceBook
	client  *FinnhubClient
	symbols []string
	log     *zap.SugaredLogger
}

// NewFinnhubFeed creates a live feed for symbols.
func NewFinnhubFeed(client *FinnhubClient, symbols []string, log *zap.SugaredLogger) *FinnhubFeed {
	return &FinnhubFeed{
		StreamURL:      DefaultFinnhubStreamURL,
		ReconnectDelay: 5 * time.Second,
		book:           NewPriceBook(),
		client:         client,
		symbols:        symbols,
		log:            log,
	}
}

func (f *FinnhubFeed) Name() string                         { return "finnhub" }
func (f *FinnhubFeed) Book() *PriceBook                     { return f.book }
func (f *FinnhubFeed) Lookup(symbol string) (float64, bool) { return f.book.Lookup(symbol) }

// Refresh quotes every symbol the stream has not priced yet.
func (f *FinnhubFeed) Refresh(ctx context.Context) error {
	var failed int
	for _, symbol := range f.symbols {
		if _, ok := f.book.Lookup(symbol); ok {
			continue
		}
		price, err := f.client.Quote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warnw("quote backfill failed", "symbol", symbol, "error", err)
			failed++
			continue
		}
		if err := f.book.Set(symbol, price); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("finnhub backfill: %d of %d symbols failed", failed, len(f.symbols))
	}
	return nil
}

type streamMessage struct {
	Type string `json:"type"`
	Data []struct {
		Symbol string  `json:"s"`
		Price  float64 `json:"p"`
	} `json:"data"`
}

type subscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Run keeps the stream connected until ctx is cancelled, reconnecting after
// ReconnectDelay whenever the connection drops.
func (f *FinnhubFeed) Run(ctx context.Context) error {
	for {
		if err := f.stream(ctx); err != nil && ctx.Err() == nil {
			f.log.Warnw("finnhub stream closed, reconnecting", "error", err, "delay", f.ReconnectDelay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.ReconnectDelay):
		}
	}
}

func (f *FinnhubFeed) stream(ctx context.Context) error {
	u, err := url.Parse(f.StreamURL)
	if err != nil {
		return fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	q.Set("token", f.client.APIKey())
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for _, symbol := range f.symbols {
		if err := conn.WriteJSON(subscribeMessage{Type: "subscribe", Symbol: symbol}); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}
	f.log.Infow("finnhub stream connected", "symbols", len(f.symbols))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.log.Warnw("skipping malformed message", "error", err)
			continue
		}
		if msg.Type != "trade" {
			continue
		}
		for _, t := range msg.Data {
			if err := f.book.Set(t.Symbol, t.Price); err != nil {
				f.log.Debugw("ignoring trade", "symbol", t.Symbol, "error", err)
			}
		}
	}
}

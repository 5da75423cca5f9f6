package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const DefaultFinnhubBaseURL = "https://finnhub.io/api/v1"

var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrTestInProgress = errors.New("a test is already in progress")
)

// FinnhubClient talks to the Finnhub REST API. Requests are throttled to stay
// under the free-tier quota.
type FinnhubClient struct {
	BaseURL string
	Client  *http.Client

	mu      sync.RWMutex
	apiKey  string
	limiter *rate.Limiter
	testing atomic.Bool
}

// NewFinnhubClient creates a client allowing perSecond requests per second.
func NewFinnhubClient(apiKey string, perSecond float64) *FinnhubClient {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &FinnhubClient{
		BaseURL: DefaultFinnhubBaseURL,
		apiKey:  apiKey,
		Client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// APIKey returns the key used for quotes and streaming.
func (c *FinnhubClient) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// SetAPIKey swaps the key. Open streams keep the old key until they reconnect.
func (c *FinnhubClient) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
}

type finnhubQuote struct {
	Current float64 `json:"c"`
	Error   string  `json:"error"`
}

// Quote returns the current price of symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (float64, error) {
	q, err := c.quote(ctx, symbol, c.APIKey())
	if err != nil {
		return 0, err
	}
	if q.Current <= 0 {
		return 0, fmt.Errorf("finnhub: no price for %s", symbol)
	}
	return q.Current, nil
}

// ValidateKey checks key against the quote endpoint. Only one validation may
// run at a time.
func (c *FinnhubClient) ValidateKey(ctx context.Context, key string) error {
	if !c.testing.CompareAndSwap(false, true) {
		return ErrTestInProgress
	}
	defer c.testing.Store(false)

	_, err := c.quote(ctx, "AAPL", key)
	return err
}

func (c *FinnhubClient) quote(ctx context.Context, symbol, key string) (*finnhubQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.BaseURL, url.QueryEscape(symbol), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidAPIKey
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("finnhub read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub: API request failed with status %d", resp.StatusCode)
	}

	var q finnhubQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("finnhub decode: %w", err)
	}
	if q.Error != "" {
		return nil, fmt.Errorf("finnhub: %s", q.Error)
	}
	return &q, nil
}

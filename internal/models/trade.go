package models

import (
	"time"

	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

// TradeType is BUY or SELL.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// Trade represents an executed buy/sell
type Trade struct {
	ID          int       `json:"id"`
	SessionID   string    `json:"session_id"`
	StockSymbol string    `json:"stock_symbol"`
	TradeType   TradeType `json:"trade_type"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// TradeRequest - what client sends to buy or sell. Exactly one of Quantity
// and Amount is set; the price always comes from the market.
type TradeRequest struct {
	StockSymbol string  `json:"symbol" binding:"required"`
	Quantity    float64 `json:"quantity"`
	Amount      float64 `json:"amount"`
}

// ByAmount reports whether the request names a cash amount.
func (r TradeRequest) ByAmount() bool { return r.Amount != 0 && r.Quantity == 0 }

// PortfolioResponse - what we send back to client
type PortfolioResponse struct {
	SessionID   string               `json:"session_id"`
	Positions   []portfolio.Position `json:"positions"`
	CashBalance float64              `json:"cash_balance"`
	TotalValue  float64              `json:"total_value"`
	TotalReturn float64              `json:"total_return_pct"`
	DailyReturn float64              `json:"daily_return_pct"`
	Display     DisplayValues        `json:"display"`
}

// DisplayValues are the headline amounts converted to the display currency.
type DisplayValues struct {
	Currency    string `json:"currency"`
	CashBalance string `json:"cash_balance"`
	TotalValue  string `json:"total_value"`
}

// StockQuote is a catalogue entry with its latest price, if any.
type StockQuote struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    *float64 `json:"price"`
}

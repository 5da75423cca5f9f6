package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atharvakonge/paper-trading-simulator/internal/market"
	"github.com/atharvakonge/paper-trading-simulator/internal/models"
	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

var (
	ErrUnknownSymbol      = errors.New("unknown stock symbol")
	ErrProcessorStopped   = errors.New("trade processor stopped")
	errQuantityAndAmount  = fmt.Errorf("%w: give either quantity or amount, not both", portfolio.ErrInvalidInput)
	errNoQuantityOrAmount = fmt.Errorf("%w: quantity or amount is required", portfolio.ErrInvalidInput)
)

// TradeResult represents result of a trade operation
type TradeResult struct {
	TradeID     int     `json:"trade_id"`
	Success     bool    `json:"success"`
	Err         error   `json:"-"`
	Error       string  `json:"error,omitempty"`
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	TotalAmount float64 `json:"total_amount"`
	CashBalance float64 `json:"cash_balance"`
}

func failed(err error) TradeResult {
	return TradeResult{Success: false, Err: err, Error: err.Error()}
}

// TradeRequest represents a trade to be processed
type TradeRequest struct {
	SessionID string
	Side      models.TradeType
	Request   models.TradeRequest
	ResultCh  chan TradeResult // Channel to send result back
}

// TradeProcessor handles concurrent trade processing
type TradeProcessor struct {
	workers      int
	tradeQueue   chan TradeRequest
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	portfolioMgr *models.PortfolioManager
	prices       portfolio.PriceLookup
	now          func() time.Time
	log          *zap.SugaredLogger
}

// NewTradeProcessor creates a new trade processor with worker pool. Trades
// execute at the price prices reports when the worker picks them up.
func NewTradeProcessor(workers int, pm *models.PortfolioManager, prices portfolio.PriceLookup, log *zap.SugaredLogger) *TradeProcessor {
	if workers < 1 {
		workers = 1
	}
	return &TradeProcessor{
		workers:      workers,
		tradeQueue:   make(chan TradeRequest, 100), // Buffer of 100 trades
		stopCh:       make(chan struct{}),
		portfolioMgr: pm,
		prices:       prices,
		now:          time.Now,
		log:          log,
	}
}

// Start starts the worker pool
func (tp *TradeProcessor) Start() {
	for i := 0; i < tp.workers; i++ {
		tp.wg.Add(1)
		go tp.worker(i)
	}
	tp.log.Infow("started trade workers", "workers", tp.workers)
}

// Stop gracefully stops all workers
func (tp *TradeProcessor) Stop() {
	tp.stopOnce.Do(func() { close(tp.stopCh) })
	tp.wg.Wait()
	tp.log.Info("trade processor stopped")
}

// worker processes trades from the queue
func (tp *TradeProcessor) worker(id int) {
	defer tp.wg.Done()

	for {
		select {
		case <-tp.stopCh:
			tp.log.Debugw("worker stopping", "worker", id)
			return

		case tradeReq := <-tp.tradeQueue:
			tp.log.Debugw("processing trade",
				"worker", id, "session", tradeReq.SessionID, "side", tradeReq.Side, "symbol", tradeReq.Request.StockSymbol)

			tradeReq.ResultCh <- tp.processTrade(tradeReq)
		}
	}
}

// processTrade executes a single trade under the session's lock
func (tp *TradeProcessor) processTrade(req TradeRequest) TradeResult {
	symbol := strings.ToUpper(strings.TrimSpace(req.Request.StockSymbol))
	if _, ok := market.FindStock(symbol); !ok {
		return failed(fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol))
	}
	if req.Request.Quantity != 0 && req.Request.Amount != 0 {
		return failed(errQuantityAndAmount)
	}
	if req.Request.Quantity == 0 && req.Request.Amount == 0 {
		return failed(errNoQuantityOrAmount)
	}

	price, ok := tp.prices.Lookup(symbol)
	if !ok {
		return failed(fmt.Errorf("%w: no quote for %s yet", portfolio.ErrPriceUnavailable, symbol))
	}

	var result TradeResult
	err := tp.portfolioMgr.WithSession(req.SessionID, func(s *models.Session) error {
		p := s.Portfolio
		cashBefore := p.Cash()
		held, _ := p.Holding(symbol)

		var err error
		switch {
		case req.Side == models.Buy && req.Request.ByAmount():
			err = p.BuyByAmount(symbol, req.Request.Amount, price)
		case req.Side == models.Buy:
			err = p.BuyByQuantity(symbol, req.Request.Quantity, price)
		case req.Request.ByAmount():
			err = p.SellByAmount(symbol, req.Request.Amount, price)
		default:
			err = p.SellByQuantity(symbol, req.Request.Quantity, price)
		}
		if err != nil {
			return err
		}

		after, _ := p.Holding(symbol)
		trade := models.Trade{
			StockSymbol: symbol,
			TradeType:   req.Side,
			Quantity:    abs(after.Quantity - held.Quantity),
			Price:       price,
			TotalAmount: abs(p.Cash() - cashBefore),
			CreatedAt:   tp.now(),
		}
		result = TradeResult{
			TradeID:     s.RecordTrade(trade),
			Success:     true,
			Symbol:      symbol,
			Quantity:    trade.Quantity,
			Price:       price,
			TotalAmount: trade.TotalAmount,
			CashBalance: p.Cash(),
		}
		return nil
	})
	if err != nil {
		return failed(err)
	}

	tp.log.Infow("trade executed",
		"session", req.SessionID, "trade_id", result.TradeID, "side", req.Side,
		"symbol", symbol, "quantity", result.Quantity, "price", price)
	return result
}

// SubmitTrade submits a trade to the processing queue and waits for it
func (tp *TradeProcessor) SubmitTrade(sessionID string, side models.TradeType, req models.TradeRequest) TradeResult {
	resultCh := make(chan TradeResult, 1)

	select {
	case tp.tradeQueue <- TradeRequest{SessionID: sessionID, Side: side, Request: req, ResultCh: resultCh}:
	case <-tp.stopCh:
		return failed(ErrProcessorStopped)
	}

	select {
	case result := <-resultCh:
		return result
	case <-tp.stopCh:
		// A worker may have taken the trade just before stopping.
		tp.wg.Wait()
		select {
		case result := <-resultCh:
			return result
		default:
			return failed(ErrProcessorStopped)
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

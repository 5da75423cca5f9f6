package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/atharvakonge/paper-trading-simulator/internal/portfolio"
)

const maxTradesKept = 50

// Session is one browser session's ledger plus its executed trades.
// Fields must only be touched while the session is locked.
type Session struct {
	ID        string
	Portfolio *portfolio.Portfolio
	Trades    []Trade

	nextTradeID int
}

// RecordTrade appends t to the session's trade log and returns its ID.
func (s *Session) RecordTrade(t Trade) int {
	s.nextTradeID++
	t.ID = s.nextTradeID
	t.SessionID = s.ID
	s.Trades = append(s.Trades, t)
	if len(s.Trades) > maxTradesKept {
		s.Trades = s.Trades[len(s.Trades)-maxTradesKept:]
	}
	return t.ID
}

// RecentTrades returns the trade log newest first.
func (s *Session) RecentTrades() []Trade {
	out := make([]Trade, len(s.Trades))
	for i, t := range s.Trades {
		out[len(s.Trades)-1-i] = t
	}
	return out
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
	evicted  bool
}

// PortfolioManager owns one Portfolio per session and serializes access to it
// Uses per-session locks instead of global lock
type PortfolioManager struct {
	sessions map[string]*sessionEntry // Map of session id → entry
	mapMutex sync.RWMutex             // Protects the map and initialCash

	prices      portfolio.PriceLookup
	initialCash float64
	clock       func() time.Time
}

// NewPortfolioManager creates a manager whose new sessions start with
// initialCash and value holdings through prices.
func NewPortfolioManager(prices portfolio.PriceLookup, initialCash float64) *PortfolioManager {
	return &PortfolioManager{
		sessions:    make(map[string]*sessionEntry),
		prices:      prices,
		initialCash: initialCash,
		clock:       time.Now,
	}
}

// SetClock replaces time.Now for portfolios created from now on.
func (pm *PortfolioManager) SetClock(now func() time.Time) {
	pm.mapMutex.Lock()
	defer pm.mapMutex.Unlock()
	pm.clock = now
}

// SetInitialCash changes the starting cash of sessions created from now on.
func (pm *PortfolioManager) SetInitialCash(cash float64) {
	pm.mapMutex.Lock()
	defer pm.mapMutex.Unlock()
	pm.initialCash = cash
}

// InitialCash returns the starting cash for new sessions.
func (pm *PortfolioManager) InitialCash() float64 {
	pm.mapMutex.RLock()
	defer pm.mapMutex.RUnlock()
	return pm.initialCash
}

func (pm *PortfolioManager) now() time.Time {
	pm.mapMutex.RLock()
	clock := pm.clock
	pm.mapMutex.RUnlock()
	return clock()
}

func (pm *PortfolioManager) lookup(sessionID string) *sessionEntry {
	pm.mapMutex.RLock()
	defer pm.mapMutex.RUnlock()
	return pm.sessions[sessionID]
}

// newSession builds an unregistered session. The caller holds mapMutex.
func (pm *PortfolioManager) newSession(sessionID string) (*Session, error) {
	p, err := portfolio.New(pm.initialCash, pm.prices, portfolio.WithClock(pm.clock))
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	return &Session{ID: sessionID, Portfolio: p}, nil
}

// entry gets or creates the entry for sessionID.
func (pm *PortfolioManager) entry(sessionID string) (*sessionEntry, error) {
	if e := pm.lookup(sessionID); e != nil {
		return e, nil
	}

	pm.mapMutex.Lock()
	defer pm.mapMutex.Unlock()
	if e := pm.sessions[sessionID]; e != nil {
		return e, nil
	}
	s, err := pm.newSession(sessionID)
	if err != nil {
		return nil, err
	}
	e := &sessionEntry{session: s}
	pm.sessions[sessionID] = e
	return e, nil
}

// lock locks e and marks it used. It reports false if e was evicted while
// the caller waited, in which case e is left unlocked.
func (pm *PortfolioManager) lock(e *sessionEntry) bool {
	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		return false
	}
	e.lastUsed = pm.now()
	return true
}

// WithSession runs fn while holding the session's lock, creating the session
// on first use. Two calls for the same session never overlap.
func (pm *PortfolioManager) WithSession(sessionID string, fn func(*Session) error) error {
	for {
		e, err := pm.entry(sessionID)
		if err != nil {
			return err
		}
		if !pm.lock(e) {
			continue
		}
		defer e.mu.Unlock()
		return fn(e.session)
	}
}

// ViewSession runs fn on the session like WithSession, but an unknown
// session is answered with a fresh portfolio that is not kept. Changes fn
// makes to such a session are discarded.
func (pm *PortfolioManager) ViewSession(sessionID string, fn func(*Session) error) error {
	if e := pm.lookup(sessionID); e != nil && pm.lock(e) {
		defer e.mu.Unlock()
		return fn(e.session)
	}

	pm.mapMutex.RLock()
	s, err := pm.newSession(sessionID)
	pm.mapMutex.RUnlock()
	if err != nil {
		return err
	}
	return fn(s)
}

// EvictIdle drops sessions not used for maxIdle or longer and returns how
// many were dropped. Sessions in use are skipped.
func (pm *PortfolioManager) EvictIdle(maxIdle time.Duration) int {
	now := pm.now()

	pm.mapMutex.Lock()
	defer pm.mapMutex.Unlock()
	evicted := 0
	for id, e := range pm.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastUsed) >= maxIdle {
			e.evicted = true
			delete(pm.sessions, id)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// Reset replaces the session's portfolio with a fresh one holding cash. The
// old history and trade log are dropped.
func (pm *PortfolioManager) Reset(sessionID string, cash float64) error {
	pm.mapMutex.RLock()
	clock := pm.clock
	pm.mapMutex.RUnlock()

	p, err := portfolio.New(cash, pm.prices, portfolio.WithClock(clock))
	if err != nil {
		return err
	}
	return pm.WithSession(sessionID, func(s *Session) error {
		s.Portfolio = p
		s.Trades = nil
		return nil
	})
}

// Len is the number of live sessions.
func (pm *PortfolioManager) Len() int {
	pm.mapMutex.RLock()
	defer pm.mapMutex.RUnlock()
	return len(pm.sessions)
}

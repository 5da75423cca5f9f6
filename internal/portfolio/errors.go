package portfolio

import "errors"

// Trade and valuation failures. Returned errors wrap one of these, so callers
// should match with errors.Is.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNotOwned           = errors.New("stock not owned")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPriceUnavailable   = errors.New("price unavailable")
)

// Package currency converts USD ledger amounts to a display currency. The
// ledger itself is single-currency; conversion is presentation only.
package currency

import (
	"fmt"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Base is the currency the ledger is kept in.
const Base = "USD"

// DefaultRates are the static rates against USD.
var DefaultRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"CAD": decimal.RequireFromString("1.35"),
}

// Converter converts and formats amounts.
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter uses rates (units of currency per USD); nil means DefaultRates.
func NewConverter(rates map[string]decimal.Decimal) *Converter {
	if rates == nil {
		rates = DefaultRates
	}
	return &Converter{rates: rates}
}

// Supported lists the known currency codes, sorted.
func (c *Converter) Supported() []string {
	out := make([]string, 0, len(c.rates))
	for code := range c.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Convert turns a USD amount into code.
func (c *Converter) Convert(amount float64, code string) (float64, error) {
	rate, ok := c.rates[code]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %q", code)
	}
	return decimal.NewFromFloat(amount).Mul(rate).InexactFloat64(), nil
}

// Format converts a USD amount and renders it with the currency's symbol and
// separators, e.g. "$1,350.00".
func (c *Converter) Format(amount float64, code string) (string, error) {
	v, err := c.Convert(amount, code)
	if err != nil {
		return "", err
	}
	return money.NewFromFloat(v, code).Display(), nil
}

package market

// Category groups catalogue stocks by risk profile.
type Category string

const (
	Growth Category = "growth"
	Risky  Category = "risky"
	Stable Category = "stable"
)

// Stock is a tradable catalogue entry.
type Stock struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Categories lists every category in display order.
var Categories = []Category{Growth, Risky, Stable}

var catalog = map[Category][]Stock{
	Growth: {
		{Symbol: "AAPL", Name: "Apple Inc."},
		{Symbol: "GOOGL", Name: "Alphabet Inc."},
		{Symbol: "MSFT", Name: "Microsoft Corporation"},
		{Symbol: "AMZN", Name: "Amazon.com Inc."},
		{Symbol: "NVDA", Name: "NVIDIA Corporation"},
		{Symbol: "META", Name: "Meta Platforms Inc."},
		{Symbol: "NFLX", Name: "Netflix Inc."},
		{Symbol: "ADBE", Name: "Adobe Inc."},
		{Symbol: "CRM", Name: "Salesforce Inc."},
		{Symbol: "PYPL", Name: "PayPal Holdings"},
		{Symbol: "INTC", Name: "Intel Corporation"},
		{Symbol: "AMD", Name: "Advanced Micro Devices"},
		{Symbol: "NOW", Name: "ServiceNow Inc."},
		{Symbol: "SNOW", Name: "Snowflake Inc."},
		{Symbol: "UBER", Name: "Uber Technologies"},
		{Symbol: "SQ", Name: "Block Inc."},
		{Symbol: "SHOP", Name: "Shopify Inc."},
		{Symbol: "ABNB", Name: "Airbnb Inc."},
		{Symbol: "DASH", Name: "DoorDash Inc."},
		{Symbol: "NET", Name: "Cloudflare Inc."},
	},
	Risky: {
		{Symbol: "TSLA", Name: "Tesla, Inc."},
		{Symbol: "GME", Name: "GameStop Corp."},
		{Symbol: "AMC", Name: "AMC Entertainment"},
		{Symbol: "COIN", Name: "Coinbase Global"},
		{Symbol: "PLTR", Name: "Palantir Technologies"},
		{Symbol: "NIO", Name: "NIO Inc."},
		{Symbol: "RIVN", Name: "Rivian Automotive"},
		{Symbol: "LCID", Name: "Lucid Group"},
		{Symbol: "SPCE", Name: "Virgin Galactic"},
		{Symbol: "HOOD", Name: "Robinhood Markets"},
		{Symbol: "BYND", Name: "Beyond Meat"},
		{Symbol: "SNAP", Name: "Snap Inc."},
		{Symbol: "DKNG", Name: "DraftKings Inc."},
		{Symbol: "ROKU", Name: "Roku Inc."},
		{Symbol: "RBLX", Name: "Roblox Corporation"},
		{Symbol: "MARA", Name: "Marathon Digital"},
		{Symbol: "RIOT", Name: "Riot Platforms"},
		{Symbol: "UPST", Name: "Upstart Holdings"},
		{Symbol: "FUBO", Name: "fuboTV Inc."},
		{Symbol: "WISH", Name: "ContextLogic Inc."},
	},
	Stable: {
		{Symbol: "JNJ", Name: "Johnson & Johnson"},
		{Symbol: "PG", Name: "Procter & Gamble"},
		{Symbol: "KO", Name: "Coca-Cola Company"},
		{Symbol: "WMT", Name: "Walmart Inc."},
		{Symbol: "MCD", Name: "McDonald's Corporation"},
		{Symbol: "PEP", Name: "PepsiCo Inc."},
		{Symbol: "COST", Name: "Costco Wholesale"},
		{Symbol: "UNH", Name: "UnitedHealth Group"},
		{Symbol: "VZ", Name: "Verizon Communications"},
		{Symbol: "T", Name: "AT&T Inc."},
		{Symbol: "HD", Name: "Home Depot"},
		{Symbol: "DIS", Name: "Walt Disney Co."},
		{Symbol: "NKE", Name: "Nike Inc."},
		{Symbol: "MA", Name: "Mastercard Inc."},
		{Symbol: "V", Name: "Visa Inc."},
		{Symbol: "CVX", Name: "Chevron Corporation"},
		{Symbol: "XOM", Name: "Exxon Mobil"},
		{Symbol: "BAC", Name: "Bank of America"},
		{Symbol: "JPM", Name: "JPMorgan Chase"},
		{Symbol: "CSCO", Name: "Cisco Systems"},
	},
}

// ByCategory returns the stocks in c, or nil for an unknown category.
func ByCategory(c Category) []Stock {
	stocks := catalog[c]
	if stocks == nil {
		return nil
	}
	out := make([]Stock, len(stocks))
	for i, s := range stocks {
		s.Category = c
		out[i] = s
	}
	return out
}

// AllStocks returns the whole catalogue, growth first, then risky, then stable.
func AllStocks() []Stock {
	var out []Stock
	for _, c := range Categories {
		out = append(out, ByCategory(c)...)
	}
	return out
}

// Symbols returns every catalogue symbol.
func Symbols() []string {
	all := AllStocks()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.Symbol
	}
	return out
}

// FindStock looks a symbol up in the catalogue.
func FindStock(symbol string) (Stock, bool) {
	for _, s := range AllStocks() {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return Stock{}, false
}

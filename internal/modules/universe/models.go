package universe

import "time"

// Security represents a dividend-paying security in the investment universe
type Security struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`          // Currency units per share
	DividendYield float64   `json:"dividend_yield"` // Annual dividend per share, as a fraction
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SecurityWithStats combines a security with history-derived figures.
// Used for the GET /api/securities endpoint response.
type SecurityWithStats struct {
	Security

	// History fields (nil when no price history is available)
	SmoothedPrice *float64 `json:"smoothed_price,omitempty"`
	Volatility    *float64 `json:"volatility,omitempty"`
}

// DefaultSecurities is the seed universe: four Toronto-listed dividend
// ETFs. Prices and yields are the bootstrap values; price sync updates
// them afterwards.
var DefaultSecurities = []Security{
	{Symbol: "XUT.TO", Name: "iShares S&P/TSX Capped Utilities Index ETF", Price: 26.80, DividendYield: 0.095, Active: true},
	{Symbol: "XTR.TO", Name: "iShares Diversified Monthly Income ETF", Price: 10.50, DividendYield: 0.05, Active: true},
	{Symbol: "XRE.TO", Name: "iShares S&P/TSX Capped REIT Index ETF", Price: 15.00, DividendYield: 0.058, Active: true},
	{Symbol: "FIE.TO", Name: "iShares Canadian Financial Monthly Income ETF", Price: 6.34, DividendYield: 0.04, Active: true},
}

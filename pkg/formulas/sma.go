package formulas

import (
	"github.com/markcheno/go-talib"
)

// SmoothedPrice returns the simple moving average of the most recent
// `window` closes, used to damp day-to-day noise before feeding prices
// into the optimizer.
//
// Args:
//
//	closes: Array of closing prices, oldest first
//	window: SMA period (typically 20)
//
// Returns:
//
//	Current SMA value or nil if insufficient data
func SmoothedPrice(closes []float64, window int) *float64 {
	if window <= 0 || len(closes) < window {
		return nil
	}

	sma := talib.Sma(closes, window)

	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}

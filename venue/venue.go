// Package venue abstracts the market data source the trader runs
// against. The simulated venue under venue/sim is the only
// implementation wired in; the interface keeps the trader loop
// indifferent to where prices come from.
package venue

import (
	"context"
	"time"
)

// Candle is one OHLC bar, oldest first when returned in a series.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Venue supplies prices and candle history for the trader loop.
type Venue interface {
	// Connect prepares the venue. Must be called before Price or
	// Candles.
	Connect(ctx context.Context) error

	// Price returns the current price for symbol.
	Price(symbol string) (float64, error)

	// Candles returns up to count bars for symbol at the given
	// timeframe, oldest first.
	Candles(symbol, timeframe string, count int) ([]Candle, error)

	// Shutdown releases the venue. Safe to call more than once.
	Shutdown()
}

// TimeframeDuration maps an MT-style timeframe name to its bar
// duration. Unknown names fall back to five minutes.
func TimeframeDuration(tf string) time.Duration {
	switch tf {
	case "M1":
		return time.Minute
	case "M5":
		return 5 * time.Minute
	case "M15":
		return 15 * time.Minute
	case "M30":
		return 30 * time.Minute
	case "H1":
		return time.Hour
	case "H4":
		return 4 * time.Hour
	case "D1":
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}

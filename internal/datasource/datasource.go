// Package datasource provides the price-history and live-quote
// sources consumed by the engines.
package datasource

import (
	"context"
	"time"

	"github.com/quantforge/papertrade/internal/types"
)

// HistorySource serves historical daily bars for backtests.
type HistorySource interface {
	// History returns the bars for the symbol within [start, end],
	// sorted by time ascending. A symbol with no bars in the range
	// returns an empty slice, not an error.
	History(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
	// Symbols returns the distinct symbols the source can serve, sorted.
	Symbols(ctx context.Context) ([]string, error)
	Close() error
}

// Quote is one live price observation.
type Quote struct {
	Symbol string
	Price  float64
	AsOf   time.Time
}

// QuoteSource serves live quotes for the simulation engine.
type QuoteSource interface {
	// LatestPrice returns the most recent price for the symbol.
	LatestPrice(ctx context.Context, symbol string) (Quote, error)
}

package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/quantforge/papertrade/internal/types"
)

// MemorySource is an in-memory HistorySource, used by tests and by
// callers that already hold their bars.
type MemorySource struct {
	bars map[string][]types.Bar
}

// NewMemorySource creates a source over the given bars. The bars are
// grouped by symbol and sorted by time once, up front.
func NewMemorySource(bars []types.Bar) *MemorySource {
	grouped := make(map[string][]types.Bar)
	for _, bar := range bars {
		grouped[bar.Symbol] = append(grouped[bar.Symbol], bar)
	}

	for symbol := range grouped {
		sort.Slice(grouped[symbol], func(i, j int) bool {
			return grouped[symbol][i].Time.Before(grouped[symbol][j].Time)
		})
	}

	return &MemorySource{bars: grouped}
}

// History implements HistorySource.
func (m *MemorySource) History(_ context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	var out []types.Bar

	for _, bar := range m.bars[symbol] {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		out = append(out, bar)
	}

	return out, nil
}

// Symbols implements HistorySource.
func (m *MemorySource) Symbols(_ context.Context) ([]string, error) {
	symbols := make([]string, 0, len(m.bars))
	for symbol := range m.bars {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements HistorySource.
func (m *MemorySource) Close() error { return nil }

// Package strategy contains the signal-generating strategies and the
// registry that creates them from configuration.
//
// A strategy is a pure function of a price window: given the same
// window it always produces the same finite signal sequence, and no
// state is carried between calls. Crossing detection always compares
// the current bar's indicator relationship against the previous
// bar's; exact equality on either bar produces no signal.
package strategy

import (
	"math"

	"github.com/quantforge/papertrade/internal/types"
)

// Strategy generates trade signals from a price-history window for a
// single symbol.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// MinBars returns the minimum window length the strategy needs to
	// produce any signal, including indicator warmup.
	MinBars() int
	// GenerateSignals scans the window and returns all signals it
	// contains, in bar order. A window shorter than MinBars yields no
	// signals and no error.
	GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error)
}

// Params are the per-strategy numeric parameters from configuration.
type Params map[string]float64

// get returns the parameter value or the default when absent.
func (p Params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}

	return def
}

// getInt returns the parameter as an int or the default when absent.
func (p Params) getInt(key string, def int) int {
	if v, ok := p[key]; ok {
		return int(v)
	}

	return def
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Package aggregator combines weighted per-strategy signals into a
// single trade decision per symbol and bar.
package aggregator

import (
	"time"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Aggregator folds the signals of multiple strategies into one
// decision using normalized strategy weights and a symmetric score
// threshold.
type Aggregator struct {
	weights   map[string]float64
	threshold float64
}

// New creates an aggregator. The weights must already be normalized
// (sum to 1) and the threshold must lie in [0, 1).
func New(weights map[string]float64, threshold float64) (*Aggregator, error) {
	if threshold < 0 || threshold >= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "signal threshold %.2f out of [0, 1)", threshold)
	}

	return &Aggregator{weights: weights, threshold: threshold}, nil
}

// Aggregate scores the signals emitted for one symbol at one bar and
// returns the resulting decision. The score is the weight-averaged sum
// of direction times strength; it must strictly exceed the threshold
// to trade, so a score exactly at the threshold holds. Signals from
// strategies without a configured weight contribute nothing but are
// still recorded on the decision.
func (a *Aggregator) Aggregate(symbol string, ts time.Time, signals []types.Signal) types.Decision {
	decision := types.Decision{
		Symbol:  symbol,
		Time:    ts,
		Kind:    types.SignalKindHold,
		Signals: signals,
	}

	for _, sig := range signals {
		weight := a.weights[sig.Strategy]
		decision.Score += weight * sig.Kind.Direction() * sig.Strength
	}

	switch {
	case decision.Score > a.threshold:
		decision.Kind = types.SignalKindBuy
	case decision.Score < -a.threshold:
		decision.Kind = types.SignalKindSell
	}

	return decision
}

// Threshold returns the configured decision threshold.
func (a *Aggregator) Threshold() float64 { return a.threshold }

package strategy

import (
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameAll = "all"

// Composite unions the signal output of several strategies over the
// same window. Signals keep their originating strategy's name, so
// aggregation weighting still applies per underlying strategy.
type Composite struct {
	subs []Strategy
}

// NewComposite builds a composite over the given strategies.
func NewComposite(subs ...Strategy) (Strategy, error) {
	if len(subs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "composite needs at least one strategy")
	}

	return &Composite{subs: subs}, nil
}

// Name implements Strategy.
func (c *Composite) Name() string { return NameAll }

// MinBars implements Strategy.
func (c *Composite) MinBars() int {
	min := 0
	for _, s := range c.subs {
		if s.MinBars() > min {
			min = s.MinBars()
		}
	}

	return min
}

// GenerateSignals implements Strategy.
func (c *Composite) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	var all []types.Signal

	for _, s := range c.subs {
		signals, err := s.GenerateSignals(symbol, window)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStrategyComputation, err, "composite member %s failed", s.Name())
		}

		all = append(all, signals...)
	}

	return all, nil
}

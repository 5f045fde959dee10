package strategy

import (
	"fmt"

	"github.com/quantforge/papertrade/internal/indicator"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameBollinger = "bollinger"

// BollingerReversion is the Bollinger-band mean-reversion strategy.
// The band position (close - lower) / (upper - lower) is tracked per
// bar; a rebound up out of the lower region votes BUY, a rollover
// down out of the upper region votes SELL. The price itself must move
// in the signal direction on the trigger bar.
type BollingerReversion struct {
	period     int
	mult       float64
	lowerBound float64
	upperBound float64
}

// NewBollingerReversion creates the strategy. Recognized params:
// period (default 20), std_mult (default 2), oversold_threshold
// (default 0.2) and overbought_threshold (default 0.8).
func NewBollingerReversion(params Params) (Strategy, error) {
	s := &BollingerReversion{
		period:     params.getInt("period", 20),
		mult:       params.get("std_mult", 2),
		lowerBound: params.get("oversold_threshold", 0.2),
		upperBound: params.get("overbought_threshold", 0.8),
	}

	if s.period <= 1 || s.mult <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "bollinger period and std_mult must be positive")
	}

	if s.lowerBound <= 0 || s.upperBound >= 1 || s.lowerBound >= s.upperBound {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"bollinger thresholds (%.2f, %.2f) must satisfy 0 < lower < upper < 1", s.lowerBound, s.upperBound)
	}

	return s, nil
}

// Name implements Strategy.
func (s *BollingerReversion) Name() string { return NameBollinger }

// MinBars implements Strategy.
func (s *BollingerReversion) MinBars() int { return s.period + 1 }

// GenerateSignals implements Strategy.
func (s *BollingerReversion) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	if len(window) < s.MinBars() {
		return nil, nil
	}

	closes := indicator.Closes(window)
	upper, _, lower := indicator.Bollinger(closes, s.period, s.mult)

	// Band position per bar; NaN-free because a zero-width band
	// (flat window) is mapped to the midpoint.
	pos := make([]float64, len(closes))
	for i := range closes {
		width := upper[i] - lower[i]
		if width <= 0 {
			pos[i] = 0.5
			continue
		}

		pos[i] = (closes[i] - lower[i]) / width
	}

	var signals []types.Signal

	for i := s.period; i < len(window); i++ {
		cur, prev := pos[i], pos[i-1]

		var kind types.SignalKind

		var strength float64

		var reason string

		switch {
		case prev <= s.lowerBound && cur > s.lowerBound && closes[i] > closes[i-1]:
			kind = types.SignalKindBuy
			strength = clamp01(0.5 + (s.lowerBound - prev))
			reason = fmt.Sprintf("rebound off the lower band (position %.2f -> %.2f)", prev, cur)
		case prev >= s.upperBound && cur < s.upperBound && closes[i] < closes[i-1]:
			kind = types.SignalKindSell
			strength = clamp01(0.5 + (prev - s.upperBound))
			reason = fmt.Sprintf("rollover off the upper band (position %.2f -> %.2f)", prev, cur)
		default:
			continue
		}

		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Kind:     kind,
			Strength: strength,
			Price:    window[i].Close,
			Time:     window[i].Time,
			Strategy: NameBollinger,
			Reason:   reason,
		})
	}

	return signals, nil
}

package strategy

import (
	"fmt"
	"math"

	"github.com/quantforge/papertrade/internal/indicator"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameMACross = "ma_cross"

// MACross is the dual moving-average crossover strategy: a golden
// cross (short MA crossing above the long MA) votes BUY, a death
// cross votes SELL.
type MACross struct {
	short int
	long  int
}

// NewMACross creates the strategy. Recognized params: short_window
// (default 5) and long_window (default 20); short must be below long.
func NewMACross(params Params) (Strategy, error) {
	s := &MACross{
		short: params.getInt("short_window", 5),
		long:  params.getInt("long_window", 20),
	}

	if s.short <= 0 || s.long <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "ma_cross windows must be positive")
	}

	if s.short >= s.long {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"ma_cross short window (%d) must be below the long window (%d)", s.short, s.long)
	}

	return s, nil
}

// Name implements Strategy.
func (s *MACross) Name() string { return NameMACross }

// MinBars implements Strategy.
func (s *MACross) MinBars() int { return s.long + 1 }

// GenerateSignals implements Strategy.
func (s *MACross) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	if len(window) < s.MinBars() {
		return nil, nil
	}

	closes := indicator.Closes(window)
	shortMA := indicator.SMA(closes, s.short)
	longMA := indicator.SMA(closes, s.long)

	var signals []types.Signal

	// Both diff terms are valid from index long-1, so crossings can be
	// detected from index long.
	for i := s.long; i < len(window); i++ {
		diff := shortMA[i] - longMA[i]
		prevDiff := shortMA[i-1] - longMA[i-1]

		var kind types.SignalKind

		var reason string

		switch {
		case prevDiff < 0 && diff > 0:
			kind = types.SignalKindBuy
			reason = fmt.Sprintf("golden cross: MA%d (%.2f) crossed above MA%d (%.2f)",
				s.short, shortMA[i], s.long, longMA[i])
		case prevDiff > 0 && diff < 0:
			kind = types.SignalKindSell
			reason = fmt.Sprintf("death cross: MA%d (%.2f) crossed below MA%d (%.2f)",
				s.short, shortMA[i], s.long, longMA[i])
		default:
			continue
		}

		// Wider spreads right after the cross mean stronger trends.
		spread := math.Abs(diff) / longMA[i]

		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Kind:     kind,
			Strength: clamp01(0.5 + spread*20),
			Price:    window[i].Close,
			Time:     window[i].Time,
			Strategy: NameMACross,
			Reason:   reason,
		})
	}

	return signals, nil
}

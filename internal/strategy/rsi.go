package strategy

import (
	"fmt"

	"github.com/quantforge/papertrade/internal/indicator"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameRSI = "rsi"

// RSIReversal is the RSI threshold-reversal strategy: it votes BUY
// when the RSI climbs back out of the oversold zone and SELL when it
// falls back out of the overbought zone. Lingering inside a zone does
// not retrigger.
type RSIReversal struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIReversal creates the strategy. Recognized params: period
// (default 14), oversold (default 30) and overbought (default 70).
func NewRSIReversal(params Params) (Strategy, error) {
	s := &RSIReversal{
		period:     params.getInt("period", 14),
		oversold:   params.get("oversold", 30),
		overbought: params.get("overbought", 70),
	}

	if s.period <= 1 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "rsi period must be above 1")
	}

	if s.oversold <= 0 || s.oversold >= 50 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "rsi oversold threshold %.1f out of (0, 50)", s.oversold)
	}

	if s.overbought <= 50 || s.overbought >= 100 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "rsi overbought threshold %.1f out of (50, 100)", s.overbought)
	}

	return s, nil
}

// Name implements Strategy.
func (s *RSIReversal) Name() string { return NameRSI }

// MinBars implements Strategy.
func (s *RSIReversal) MinBars() int { return s.period + 2 }

// GenerateSignals implements Strategy.
func (s *RSIReversal) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	if len(window) < s.MinBars() {
		return nil, nil
	}

	rsi := indicator.RSI(indicator.Closes(window), s.period)

	var signals []types.Signal

	// RSI warmup ends at index period, so reversals are detectable
	// from index period+1.
	for i := s.period + 1; i < len(window); i++ {
		cur, prev := rsi[i], rsi[i-1]

		var kind types.SignalKind

		var strength float64

		var reason string

		switch {
		case prev < s.oversold && cur > s.oversold:
			kind = types.SignalKindBuy
			// Deeper oversold readings make for stronger reversals.
			strength = clamp01(0.5 + (s.oversold-prev)/s.oversold)
			reason = fmt.Sprintf("RSI reversal out of oversold zone (%.1f -> %.1f)", prev, cur)
		case prev > s.overbought && cur < s.overbought:
			kind = types.SignalKindSell
			strength = clamp01(0.5 + (prev-s.overbought)/(100-s.overbought))
			reason = fmt.Sprintf("RSI reversal out of overbought zone (%.1f -> %.1f)", prev, cur)
		default:
			continue
		}

		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Kind:     kind,
			Strength: strength,
			Price:    window[i].Close,
			Time:     window[i].Time,
			Strategy: NameRSI,
			Reason:   reason,
		})
	}

	return signals, nil
}

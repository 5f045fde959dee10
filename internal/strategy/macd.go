package strategy

import (
	"fmt"
	"math"

	"github.com/quantforge/papertrade/internal/indicator"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameMACD = "macd"

// Bars of history inspected for histogram divergence.
const macdDivergenceLookback = 5

// MACDCross trades MACD line/signal crossovers, zero-axis crossings
// and histogram divergence. Crosses below the zero axis (for buys) and
// above it (for sells) are considered the reliable ones; zero-axis
// crossings act as a weaker fallback when no line cross fired.
type MACDCross struct {
	fast   int
	slow   int
	signal int
}

// NewMACDCross creates the strategy. Recognized params: fast (default
// 12), slow (default 26) and signal (default 9).
func NewMACDCross(params Params) (Strategy, error) {
	s := &MACDCross{
		fast:   params.getInt("fast", 12),
		slow:   params.getInt("slow", 26),
		signal: params.getInt("signal", 9),
	}

	if s.fast <= 0 || s.slow <= 0 || s.signal <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "macd periods must be positive")
	}

	if s.fast >= s.slow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"macd fast period (%d) must be below the slow period (%d)", s.fast, s.slow)
	}

	return s, nil
}

// Name implements Strategy.
func (s *MACDCross) Name() string { return NameMACD }

// MinBars implements Strategy.
func (s *MACDCross) MinBars() int { return s.slow + s.signal + macdDivergenceLookback }

func (s *MACDCross) warmupEnd() int { return s.slow + s.signal - 2 }

// GenerateSignals implements Strategy.
func (s *MACDCross) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	if len(window) < s.MinBars() {
		return nil, nil
	}

	closes := indicator.Closes(window)
	macd, sig, hist := indicator.MACD(closes, s.fast, s.slow, s.signal)

	var signals []types.Signal

	for i := s.warmupEnd() + 1; i < len(window); i++ {
		kind, strength, reason := s.evaluate(closes, macd, sig, hist, i)
		if kind == types.SignalKindHold {
			continue
		}

		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Kind:     kind,
			Strength: strength,
			Price:    window[i].Close,
			Time:     window[i].Time,
			Strategy: NameMACD,
			Reason:   reason,
		})
	}

	return signals, nil
}

// evaluate applies the rules for a single bar in priority order:
// line cross, divergence, zero-axis cross.
func (s *MACDCross) evaluate(closes, macd, sig, hist []float64, i int) (types.SignalKind, float64, string) {
	cur, prev := macd[i], macd[i-1]
	curDiff := macd[i] - sig[i]
	prevDiff := macd[i-1] - sig[i-1]

	// Line/signal crossovers, qualified by the zero axis.
	if prevDiff < 0 && curDiff > 0 && cur < 0 {
		strength := crossStrength(curDiff, cur)
		return types.SignalKindBuy, strength,
			fmt.Sprintf("MACD golden cross below zero axis (%.3f > %.3f)", macd[i], sig[i])
	}

	if prevDiff > 0 && curDiff < 0 && cur > 0 {
		strength := crossStrength(curDiff, cur)
		return types.SignalKindSell, strength,
			fmt.Sprintf("MACD death cross above zero axis (%.3f < %.3f)", macd[i], sig[i])
	}

	// Histogram divergence against recent price extremes.
	if i >= s.warmupEnd()+macdDivergenceLookback {
		maxClose, minClose := rangeExtremes(closes[i-macdDivergenceLookback+1 : i+1])
		maxHist, minHist := rangeExtremes(hist[i-macdDivergenceLookback+1 : i+1])

		if closes[i] == maxClose && hist[i] < maxHist && hist[i] < 0 {
			return types.SignalKindSell, 0.6, "bearish divergence: price high without a histogram high"
		}

		if closes[i] == minClose && hist[i] > minHist && hist[i] > 0 {
			return types.SignalKindBuy, 0.6, "bullish divergence: price low without a histogram low"
		}
	}

	// Zero-axis crossings.
	if prev < 0 && cur > 0 {
		return types.SignalKindBuy, 0.5, fmt.Sprintf("MACD crossed above the zero axis (%.3f)", cur)
	}

	if prev > 0 && cur < 0 {
		return types.SignalKindSell, 0.5, fmt.Sprintf("MACD crossed below the zero axis (%.3f)", cur)
	}

	return types.SignalKindHold, 0, ""
}

func crossStrength(diff, macdValue float64) float64 {
	if macdValue == 0 {
		return 0.5
	}

	return math.Max(0.1, clamp01(math.Abs(diff)/math.Abs(macdValue)*2))
}

func rangeExtremes(values []float64) (max, min float64) {
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		max = math.Max(max, v)
		min = math.Min(min, v)
	}

	return max, min
}

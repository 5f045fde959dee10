package strategy

import (
	"fmt"
	"math"

	"github.com/quantforge/papertrade/internal/indicator"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

const NameKDJ = "kdj"

// KDJCross trades stochastic K/D crossovers near the oversold and
// overbought zones: a golden cross with K still near the oversold
// level votes BUY, a death cross with K still near the overbought
// level votes SELL. Crosses in the neutral middle are ignored.
type KDJCross struct {
	kPeriod    int
	dPeriod    int
	oversold   float64
	overbought float64
}

// The zone check allows crosses slightly past the threshold.
const kdjZoneMargin = 10.0

// NewKDJCross creates the strategy. Recognized params: k_period
// (default 9), d_period (default 3), oversold (default 20) and
// overbought (default 80).
func NewKDJCross(params Params) (Strategy, error) {
	s := &KDJCross{
		kPeriod:    params.getInt("k_period", 9),
		dPeriod:    params.getInt("d_period", 3),
		oversold:   params.get("oversold", 20),
		overbought: params.get("overbought", 80),
	}

	if s.kPeriod <= 1 || s.dPeriod <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "kdj periods must be positive")
	}

	if s.oversold <= 0 || s.overbought >= 100 || s.oversold >= s.overbought {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"kdj thresholds (%.1f, %.1f) must satisfy 0 < oversold < overbought < 100", s.oversold, s.overbought)
	}

	return s, nil
}

// Name implements Strategy.
func (s *KDJCross) Name() string { return NameKDJ }

func (s *KDJCross) warmupEnd() int { return s.kPeriod + 2*s.dPeriod - 3 }

// MinBars implements Strategy.
func (s *KDJCross) MinBars() int { return s.warmupEnd() + 2 }

// GenerateSignals implements Strategy.
func (s *KDJCross) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	if len(window) < s.MinBars() {
		return nil, nil
	}

	k, d, j := indicator.KDJ(
		indicator.Highs(window),
		indicator.Lows(window),
		indicator.Closes(window),
		s.kPeriod, s.dPeriod,
	)

	var signals []types.Signal

	for i := s.warmupEnd() + 1; i < len(window); i++ {
		curDiff := k[i] - d[i]
		prevDiff := k[i-1] - d[i-1]

		var kind types.SignalKind

		var reason string

		switch {
		case prevDiff < 0 && curDiff > 0 && k[i] < s.oversold+kdjZoneMargin:
			kind = types.SignalKindBuy
			reason = fmt.Sprintf("KDJ golden cross in oversold zone (K %.1f, D %.1f, J %.1f)", k[i], d[i], j[i])
		case prevDiff > 0 && curDiff < 0 && k[i] > s.overbought-kdjZoneMargin:
			kind = types.SignalKindSell
			reason = fmt.Sprintf("KDJ death cross in overbought zone (K %.1f, D %.1f, J %.1f)", k[i], d[i], j[i])
		default:
			continue
		}

		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Kind:     kind,
			Strength: clamp01(0.5 + math.Abs(curDiff)/20),
			Price:    window[i].Close,
			Time:     window[i].Time,
			Strategy: NameKDJ,
			Reason:   reason,
		})
	}

	return signals, nil
}

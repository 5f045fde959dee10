package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

func TestRSIValidation(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"period too small", Params{"period": 1}},
		{"oversold too high", Params{"oversold": 55}},
		{"overbought too low", Params{"overbought": 45}},
		{"overbought too high", Params{"overbought": 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRSIReversal(tc.params)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))
		})
	}
}

func TestRSIReversalBuysOnOversoldExit(t *testing.T) {
	s, err := NewRSIReversal(Params{"period": 3, "oversold": 30, "overbought": 70})
	require.NoError(t, err)

	// A hard selloff drives RSI deep under 30; the rally lifts it back
	// out, which is the buy trigger.
	closes := []float64{100, 96, 92, 88, 84, 80, 76, 72, 80, 88, 96}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	var buys int

	for _, sig := range signals {
		if sig.Kind == types.SignalKindBuy {
			buys++

			assert.Contains(t, sig.Reason, "oversold")
			assert.Greater(t, sig.Strength, 0.5)
		}
	}

	assert.Greater(t, buys, 0)
}

func TestRSIReversalSellsOnOverboughtExit(t *testing.T) {
	s, err := NewRSIReversal(Params{"period": 3, "oversold": 30, "overbought": 70})
	require.NoError(t, err)

	closes := []float64{100, 104, 108, 112, 116, 120, 124, 128, 120, 112, 104}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	var sells int

	for _, sig := range signals {
		if sig.Kind == types.SignalKindSell {
			sells++

			assert.Contains(t, sig.Reason, "overbought")
		}
	}

	assert.Greater(t, sells, 0)
}

func TestRSIReversalQuietOnSteadyTrend(t *testing.T) {
	s, err := NewRSIReversal(Params{"period": 3, "oversold": 30, "overbought": 70})
	require.NoError(t, err)

	// A relentless rise pins RSI at the top; it never falls back below
	// the overbought line, so no reversal fires.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

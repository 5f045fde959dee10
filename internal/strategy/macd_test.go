package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

func TestMACDValidation(t *testing.T) {
	_, err := NewMACDCross(Params{"fast": 26, "slow": 12})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewMACDCross(Params{"signal": 0})
	require.Error(t, err)
}

func TestMACDCrossSignalsOnTrendReversal(t *testing.T) {
	s, err := NewMACDCross(Params{"fast": 3, "slow": 6, "signal": 2})
	require.NoError(t, err)

	// A long decline followed by a strong recovery forces the MACD
	// line up through its signal below the zero axis.
	closes := make([]float64, 0, 40)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100-float64(i))
	}

	for i := 0; i < 20; i++ {
		closes = append(closes, 81+float64(i)*2)
	}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	var sawBuy bool

	for _, sig := range signals {
		if sig.Kind == types.SignalKindBuy {
			sawBuy = true

			assert.Greater(t, sig.Strength, 0.0)
			assert.LessOrEqual(t, sig.Strength, 1.0)
		}

		assert.Equal(t, NameMACD, sig.Strategy)
	}

	assert.True(t, sawBuy)
}

func TestMACDQuietOnFlatSeries(t *testing.T) {
	s, err := NewMACDCross(nil)
	require.NoError(t, err)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestMACDShortWindowYieldsNothing(t *testing.T) {
	s, err := NewMACDCross(nil)
	require.NoError(t, err)

	signals, err := s.GenerateSignals("600519", testBars([]float64{10, 11, 12}))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

func TestBollingerValidation(t *testing.T) {
	_, err := NewBollingerReversion(Params{"oversold_threshold": 0.9, "overbought_threshold": 0.8})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewBollingerReversion(Params{"std_mult": -1})
	require.Error(t, err)
}

func TestBollingerBuysOnLowerBandRebound(t *testing.T) {
	s, err := NewBollingerReversion(Params{"period": 5, "std_mult": 2})
	require.NoError(t, err)

	// Oscillate, then crash through the lower band and rebound.
	closes := []float64{100, 101, 100, 99, 100, 101, 100, 90, 85, 95, 102}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)

	var sawBuy bool

	for _, sig := range signals {
		if sig.Kind == types.SignalKindBuy {
			sawBuy = true

			assert.Contains(t, sig.Reason, "lower band")
		}
	}

	assert.True(t, sawBuy)
}

func TestBollingerFlatSeriesIsQuiet(t *testing.T) {
	s, err := NewBollingerReversion(Params{"period": 5})
	require.NoError(t, err)

	// Zero band width maps every bar to the midpoint, which never
	// enters either trigger zone.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50
	}

	signals, err := s.GenerateSignals("600519", testBars(closes))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

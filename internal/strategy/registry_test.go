package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/pkg/errors"
)

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"all", "bollinger", "kdj", "ma_cross", "macd", "rsi"}, r.Names())
}

func TestRegistryCreateUnknown(t *testing.T) {
	_, err := NewRegistry().Create("momentum", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}

func TestRegistryCreateWithDefaults(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{NameMACross, NameRSI, NameMACD, NameBollinger, NameKDJ} {
		s, err := r.Create(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
		assert.Greater(t, s.MinBars(), 1)
	}
}

func TestRegistryCreateAllComposite(t *testing.T) {
	s, err := NewRegistry().Create(NameAll, nil)
	require.NoError(t, err)
	assert.Equal(t, NameAll, s.Name())

	// The composite needs as much history as its slowest member.
	macd, err := NewMACDCross(nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.MinBars(), macd.MinBars())
}

func TestRegistryBuild(t *testing.T) {
	strategies, err := NewRegistry().Build([]config.StrategyConfig{
		{Name: NameMACross, Enabled: true, Weight: 1, Params: map[string]float64{"short_window": 3, "long_window": 10}},
		{Name: NameRSI, Enabled: false, Weight: 1},
		{Name: NameBollinger, Enabled: true, Weight: 2},
	})
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, NameMACross, strategies[0].Name())
	assert.Equal(t, NameBollinger, strategies[1].Name())
}

func TestRegistryBuildRejectsEmpty(t *testing.T) {
	_, err := NewRegistry().Build([]config.StrategyConfig{
		{Name: NameMACross, Enabled: false, Weight: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestRegistryBuildPropagatesBadParams(t *testing.T) {
	_, err := NewRegistry().Build([]config.StrategyConfig{
		{Name: NameRSI, Enabled: true, Weight: 1, Params: map[string]float64{"oversold": 80}},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

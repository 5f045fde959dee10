// Package indicator exposes the technical indicator math used by the
// strategies. The numerical work is delegated to go-talib; the helpers
// here adapt bar windows to the series shapes talib expects and report
// where the warmup region of each output ends.
//
// All outputs are aligned with the input series: index i of an output
// corresponds to bar i. Values before the warmup boundary are
// meaningless and must not be used for crossing detection.
package indicator

import (
	talib "github.com/markcheno/go-talib"

	"github.com/quantforge/papertrade/internal/types"
)

// Closes extracts the close series from a bar window.
func Closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}

// Highs extracts the high series from a bar window.
func Highs(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}

	return out
}

// Lows extracts the low series from a bar window.
func Lows(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}

	return out
}

// SMA returns the simple moving average series.
// Warmup ends at index period-1.
func SMA(closes []float64, period int) []float64 {
	return talib.Sma(closes, period)
}

// EMA returns the exponential moving average series.
// Warmup ends at index period-1.
func EMA(closes []float64, period int) []float64 {
	return talib.Ema(closes, period)
}

// RSI returns the relative strength index series.
// Warmup ends at index period.
func RSI(closes []float64, period int) []float64 {
	return talib.Rsi(closes, period)
}

// MACD returns the MACD line, signal line and histogram series.
// Warmup ends at index slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	return talib.Macd(closes, fast, slow, signal)
}

// Bollinger returns the upper, middle and lower band series for an
// SMA middle band with symmetric standard-deviation multipliers.
// Warmup ends at index period-1.
func Bollinger(closes []float64, period int, mult float64) (upper, middle, lower []float64) {
	return talib.BBands(closes, period, mult, mult, talib.SMA)
}

// KDJ returns the K, D and J series of the stochastic oscillator with
// SMA smoothing, J = 3K - 2D.
// Warmup ends at index kPeriod+dPeriod*2-3.
func KDJ(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d, j []float64) {
	k, d = talib.Stoch(highs, lows, closes, kPeriod, dPeriod, talib.SMA, dPeriod, talib.SMA)

	j = make([]float64, len(k))
	for i := range k {
		j[i] = 3*k[i] - 2*d[i]
	}

	return k, d, j
}

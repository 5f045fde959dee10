// Package analytics computes performance metrics over a valuation
// history and its trade log.
package analytics

import (
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Trading days per year, used to annualize daily figures.
const periodsPerYear = 252

// Metrics is the performance summary of one run.
type Metrics struct {
	TotalReturn      float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	MaxDrawdown      float64 `yaml:"max_drawdown" json:"max_drawdown"`
	Volatility       float64 `yaml:"volatility" json:"volatility"`
	SharpeRatio      float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	WinRate          float64 `yaml:"win_rate" json:"win_rate"`
	ProfitFactor     float64 `yaml:"profit_factor" json:"profit_factor"`
	TradeCount       int     `yaml:"trade_count" json:"trade_count"`
	// BenchmarkReturn and Alpha are filled only when a benchmark series
	// was supplied.
	BenchmarkReturn float64 `yaml:"benchmark_return,omitempty" json:"benchmark_return,omitempty"`
	Alpha           float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
}

// Analyzer computes metrics. The risk-free rate is annualized.
type Analyzer struct {
	RiskFreeRate float64
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(riskFreeRate float64) *Analyzer {
	return &Analyzer{RiskFreeRate: riskFreeRate}
}

// Analyze computes the metrics for a run. A history shorter than two
// snapshots has no returns to measure and yields zero-valued metrics,
// with only the trade-derived fields filled.
func (a *Analyzer) Analyze(history []types.Snapshot, trades []types.Trade) Metrics {
	m := Metrics{TradeCount: len(trades)}
	a.fillTradeStats(&m, trades)

	if len(history) < 2 {
		return m
	}

	first, last := history[0].TotalValue, history[len(history)-1].TotalValue
	if first > 0 {
		m.TotalReturn = last/first - 1
	}

	returns := periodReturns(history)

	years := float64(len(returns)) / periodsPerYear
	if years > 0 && first > 0 {
		m.AnnualizedReturn = math.Pow(last/first, 1/years) - 1
	}

	m.MaxDrawdown = maxDrawdown(history)

	dailyVol := stat.StdDev(returns, nil)
	if !math.IsNaN(dailyVol) {
		m.Volatility = dailyVol * math.Sqrt(periodsPerYear)
	}

	if m.Volatility > 0 {
		m.SharpeRatio = (m.AnnualizedReturn - a.RiskFreeRate) / m.Volatility
	}

	return m
}

// AnalyzeWithBenchmark additionally computes the benchmark's
// buy-and-hold return over the same window and the run's excess
// return over it.
func (a *Analyzer) AnalyzeWithBenchmark(history []types.Snapshot, trades []types.Trade, benchmark []types.Bar) Metrics {
	m := a.Analyze(history, trades)

	if len(benchmark) >= 2 && benchmark[0].Close > 0 {
		m.BenchmarkReturn = benchmark[len(benchmark)-1].Close/benchmark[0].Close - 1
		m.Alpha = m.TotalReturn - m.BenchmarkReturn
	}

	return m
}

// fillTradeStats derives the win rate and profit factor from the sell
// trades; buys carry no realized result.
func (a *Analyzer) fillTradeStats(m *Metrics, trades []types.Trade) {
	var sells, wins int

	var grossProfit, grossLoss float64

	for _, t := range trades {
		if t.Order.Side != types.SideSell {
			continue
		}

		sells++

		if t.PnL > 0 {
			wins++

			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}

	if sells > 0 {
		m.WinRate = float64(wins) / float64(sells)
	}

	// No losing trades leaves the factor undefined; report 0 rather
	// than an infinity that breaks serialization.
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}
}

// periodReturns is the simple return between consecutive snapshots.
func periodReturns(history []types.Snapshot) []float64 {
	returns := make([]float64, 0, len(history)-1)

	for i := 1; i < len(history); i++ {
		prev := history[i-1].TotalValue
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, history[i].TotalValue/prev-1)
	}

	return returns
}

// maxDrawdown is the largest peak-to-trough decline, as a positive
// fraction.
func maxDrawdown(history []types.Snapshot) float64 {
	var peak, worst float64

	for _, snap := range history {
		if snap.TotalValue > peak {
			peak = snap.TotalValue
		}

		if peak > 0 {
			dd := (peak - snap.TotalValue) / peak
			if dd > worst {
				worst = dd
			}
		}
	}

	return worst
}

// WriteMetrics writes the metrics to a YAML file.
func WriteMetrics(path string, m Metrics) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to marshal metrics", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to write metrics to %s", path)
	}

	return nil
}

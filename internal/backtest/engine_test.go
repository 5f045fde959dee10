package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/internal/datasource"
	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/strategy"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

var day0 = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

// scripted emits predetermined signals on exact bar times, standing in
// for a real strategy so tests control the pipeline's input exactly.
type scripted struct {
	signals []types.Signal
}

func (s *scripted) Name() string { return "ma_cross" }

func (s *scripted) MinBars() int { return 1 }

func (s *scripted) GenerateSignals(symbol string, window []types.Bar) ([]types.Signal, error) {
	var out []types.Signal

	for _, sig := range s.signals {
		if sig.Symbol != symbol {
			continue
		}

		for _, bar := range window {
			if bar.Time.Equal(sig.Time) {
				out = append(out, sig)

				break
			}
		}
	}

	return out, nil
}

func buyAt(symbol string, ts time.Time) types.Signal {
	return types.Signal{
		Symbol:   symbol,
		Kind:     types.SignalKindBuy,
		Strength: 1,
		Time:     ts,
		Strategy: "ma_cross",
		Reason:   "scripted buy",
	}
}

func sellAt(symbol string, ts time.Time) types.Signal {
	sig := buyAt(symbol, ts)
	sig.Kind = types.SignalKindSell
	sig.Reason = "scripted sell"

	return sig
}

func testConfig(symbols ...string) config.Config {
	cfg := config.Default()
	cfg.Symbols = symbols
	cfg.Strategies = []config.StrategyConfig{
		{Name: "ma_cross", Enabled: true, Weight: 1},
	}

	return cfg
}

// dailyBars produces one bar per day at the given closes.
func dailyBars(symbol string, closes []float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   day0.AddDate(0, 0, i),
			Symbol: symbol,
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

func newTestEngine(t *testing.T, cfg config.Config, signals []types.Signal) *Engine {
	t.Helper()

	engine, err := NewEngine(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	engine.SetStrategies([]strategy.Strategy{&scripted{signals: signals}})

	return engine
}

func runWindow(t *testing.T, engine *Engine, bars []types.Bar, days int) Result {
	t.Helper()

	source := datasource.NewMemorySource(bars)

	result, err := engine.Run(context.Background(), source, RunParams{
		Start: day0.AddDate(0, 0, -1),
		End:   day0.AddDate(0, 0, days),
	})
	require.NoError(t, err)

	return result
}

func TestRunBuysOnScriptedSignal(t *testing.T) {
	bars := dailyBars("600519", []float64{10, 10, 10, 10, 10})
	engine := newTestEngine(t, testConfig("600519"), []types.Signal{
		buyAt("600519", day0.AddDate(0, 0, 1)),
	})

	result := runWindow(t, engine, bars, 5)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, types.SideBuy, trade.Order.Side)
	assert.Equal(t, 10.0, trade.Order.Price)
	assert.Equal(t, types.OrderReasonStrategy, trade.Order.Reason.Reason)

	// 25% of the 1M cash at 10.003 per share fees included, floored
	// to whole lots.
	assert.Equal(t, int64(24_900), trade.Order.Shares)

	assert.Len(t, result.History, 5)

	pos, ok := engine.Ledger().Position("600519")
	require.True(t, ok)
	assert.Equal(t, int64(24_900), pos.Shares)
}

func TestRunSellLiquidatesPosition(t *testing.T) {
	bars := dailyBars("600519", []float64{10, 10, 11, 11, 11})
	engine := newTestEngine(t, testConfig("600519"), []types.Signal{
		buyAt("600519", day0),
		sellAt("600519", day0.AddDate(0, 0, 2)),
	})

	result := runWindow(t, engine, bars, 5)

	require.Len(t, result.Trades, 2)
	sell := result.Trades[1]
	assert.Equal(t, types.SideSell, sell.Order.Side)
	assert.Equal(t, 11.0, sell.Order.Price)
	assert.Positive(t, sell.PnL)

	_, ok := engine.Ledger().Position("600519")
	assert.False(t, ok)
}

func TestRunStopLossOverridesBuy(t *testing.T) {
	// Price collapses 10% on the third day, through the 8% stop. The
	// scripted buy on the same bar must not reopen the position.
	bars := dailyBars("600519", []float64{10, 10, 9, 9, 9})
	engine := newTestEngine(t, testConfig("600519"), []types.Signal{
		buyAt("600519", day0),
		buyAt("600519", day0.AddDate(0, 0, 2)),
	})

	result := runWindow(t, engine, bars, 5)

	require.Len(t, result.Trades, 2)
	exit := result.Trades[1]
	assert.Equal(t, types.SideSell, exit.Order.Side)
	assert.Equal(t, types.OrderReasonStopLoss, exit.Order.Reason.Reason)
	assert.Equal(t, "risk", exit.Order.Strategy)
	assert.Negative(t, exit.PnL)

	_, ok := engine.Ledger().Position("600519")
	assert.False(t, ok)
}

func TestRunTakeProfitForcesFullExit(t *testing.T) {
	bars := dailyBars("600519", []float64{10, 10, 12, 12, 12})
	engine := newTestEngine(t, testConfig("600519"), []types.Signal{
		buyAt("600519", day0),
	})

	result := runWindow(t, engine, bars, 5)

	require.Len(t, result.Trades, 2)
	exit := result.Trades[1]
	assert.Equal(t, types.OrderReasonTakeProfit, exit.Order.Reason.Reason)
	assert.Positive(t, exit.PnL)

	_, ok := engine.Ledger().Position("600519")
	assert.False(t, ok)
}

func TestRunDailyLossLimitBlocksNewBuys(t *testing.T) {
	cfg := testConfig("600519", "000001")
	cfg.StopLoss = 0.90 // keep the stop out of the way

	// 600519 collapses 25% on day two, dragging the portfolio down
	// more than the 5% daily limit; the scripted buy of 000001 on the
	// same day must be blocked.
	bars := append(
		dailyBars("600519", []float64{100, 75, 75}),
		dailyBars("000001", []float64{50, 50, 50})...)

	engine := newTestEngine(t, cfg, []types.Signal{
		buyAt("600519", day0),
		buyAt("000001", day0.AddDate(0, 0, 1)),
	})

	result := runWindow(t, engine, bars, 3)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, "600519", result.Trades[0].Order.Symbol)

	_, ok := engine.Ledger().Position("000001")
	assert.False(t, ok)
}

func TestRunMissingBarCarriesMarkForward(t *testing.T) {
	// 000001 skips the second day; its mark and valuation must hold
	// at the previous close instead of dropping to zero.
	sparse := []types.Bar{
		{Time: day0, Symbol: "000001", Open: 50, High: 50, Low: 50, Close: 50, Volume: 1000},
		{Time: day0.AddDate(0, 0, 2), Symbol: "000001", Open: 50, High: 50, Low: 50, Close: 50, Volume: 1000},
	}
	bars := append(dailyBars("600519", []float64{10, 10, 10}), sparse...)

	engine := newTestEngine(t, testConfig("600519", "000001"), []types.Signal{
		buyAt("000001", day0),
	})

	result := runWindow(t, engine, bars, 3)

	require.Len(t, result.History, 3)

	// Flat prices mean a flat valuation apart from the entry fees.
	assert.InDelta(t, result.History[0].TotalValue, result.History[1].TotalValue, 1e-9)
	assert.InDelta(t, result.History[1].TotalValue, result.History[2].TotalValue, 1e-9)
}

func TestRunDeterministic(t *testing.T) {
	bars := append(
		dailyBars("600519", []float64{10, 11, 9, 12, 10, 13}),
		dailyBars("000001", []float64{50, 48, 52, 47, 53, 50})...)
	signals := []types.Signal{
		buyAt("600519", day0),
		buyAt("000001", day0.AddDate(0, 0, 1)),
		sellAt("600519", day0.AddDate(0, 0, 3)),
	}

	first := runWindow(t, newTestEngine(t, testConfig("600519", "000001"), signals), bars, 6)
	second := runWindow(t, newTestEngine(t, testConfig("600519", "000001"), signals), bars, 6)

	// Everything except order IDs must match byte for byte.
	require.Len(t, second.Trades, len(first.Trades))

	for i := range first.Trades {
		a, b := first.Trades[i], second.Trades[i]
		a.Order.ID, b.Order.ID = "", ""
		assert.Equal(t, a, b)
	}

	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Decisions, second.Decisions)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestRunNoDataFails(t *testing.T) {
	engine := newTestEngine(t, testConfig("600519"), nil)
	source := datasource.NewMemorySource(nil)

	_, err := engine.Run(context.Background(), source, RunParams{
		Start: day0,
		End:   day0.AddDate(0, 0, 5),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingPriceData))
}

func TestRunHonorsCancellation(t *testing.T) {
	bars := dailyBars("600519", []float64{10, 10, 10})
	engine := newTestEngine(t, testConfig("600519"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, datasource.NewMemorySource(bars), RunParams{
		Start: day0.AddDate(0, 0, -1),
		End:   day0.AddDate(0, 0, 3),
	})
	require.Error(t, err)
}

type countingRecorder struct {
	trades    int
	snapshots int
	signals   int
}

func (c *countingRecorder) SaveTrade(types.Trade) error       { c.trades++; return nil }
func (c *countingRecorder) SaveSnapshot(types.Snapshot) error { c.snapshots++; return nil }
func (c *countingRecorder) SaveSignal(types.Signal) error     { c.signals++; return nil }

func TestRunFeedsRecorder(t *testing.T) {
	bars := dailyBars("600519", []float64{10, 10, 10})
	engine := newTestEngine(t, testConfig("600519"), []types.Signal{
		buyAt("600519", day0),
	})

	rec := &countingRecorder{}
	engine.SetRecorder(rec)

	result := runWindow(t, engine, bars, 3)

	assert.Equal(t, len(result.Trades), rec.trades)
	assert.Equal(t, len(result.History), rec.snapshots)
	assert.Equal(t, 1, rec.signals)
}

// Package backtest replays historical daily bars through the full
// decision pipeline and reports the resulting performance.
package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantforge/papertrade/internal/aggregator"
	"github.com/quantforge/papertrade/internal/analytics"
	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/internal/datasource"
	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/portfolio"
	"github.com/quantforge/papertrade/internal/risk"
	"github.com/quantforge/papertrade/internal/strategy"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Recorder archives run artifacts as they are produced. The store
// satisfies it; a nil-free engine without persistence passes none.
type Recorder interface {
	SaveTrade(trade types.Trade) error
	SaveSnapshot(snap types.Snapshot) error
	SaveSignal(sig types.Signal) error
}

// Result is the complete outcome of one backtest run, with enough
// context to reproduce it.
type Result struct {
	Start          time.Time
	End            time.Time
	Symbols        []string
	Strategies     []string
	InitialCapital float64
	FinalValue     float64

	History   []types.Snapshot
	Trades    []types.Trade
	Decisions []types.Decision
	Metrics   analytics.Metrics
}

// RunParams bounds one run.
type RunParams struct {
	Start time.Time
	End   time.Time
	// Benchmark is an optional symbol whose buy-and-hold return over
	// the same window is reported alongside the run's.
	Benchmark string
}

// Engine drives a deterministic daily replay: days ascend, symbols
// are visited in sorted order within a day, and decisions and fills
// both use the bar's close. The same inputs always produce the same
// byte-for-byte result.
type Engine struct {
	cfg        config.Config
	strategies []strategy.Strategy
	agg        *aggregator.Aggregator
	riskCtrl   *risk.Controller
	ledger     *portfolio.Ledger
	sizer      *portfolio.Sizer
	analyzer   *analytics.Analyzer
	logger     *logger.Logger

	recorder   optional.Option[Recorder]
	onProgress optional.Option[func(current, total int)]
}

// NewEngine assembles the pipeline from configuration.
func NewEngine(cfg config.Config, log *logger.Logger) (*Engine, error) {
	strategies, err := strategy.NewRegistry().Build(cfg.EnabledStrategies())
	if err != nil {
		return nil, err
	}

	weights, err := cfg.NormalizedWeights()
	if err != nil {
		return nil, err
	}

	agg, err := aggregator.New(weights, cfg.SignalThreshold)
	if err != nil {
		return nil, err
	}

	cost := portfolio.NewCostModel(cfg.CommissionRate, cfg.MinCommission, cfg.StampTaxRate)

	return &Engine{
		cfg:        cfg,
		strategies: strategies,
		agg:        agg,
		riskCtrl: risk.NewController(risk.Params{
			StopLoss:     cfg.StopLoss,
			TakeProfit:   cfg.TakeProfit,
			MaxDailyLoss: cfg.MaxDailyLoss,
		}),
		ledger: portfolio.NewLedger(cfg.InitialCapital, cost),
		sizer: portfolio.NewSizer(portfolio.SizerParams{
			MaxPositionPct:      cfg.MaxPositionPct,
			MaxTotalPositionPct: cfg.MaxTotalPositionPct,
			CashReserve:         cfg.CashReserve,
			LotSize:             cfg.LotSize,
			SellRatio:           cfg.SellRatio,
		}, cost),
		analyzer: analytics.NewAnalyzer(cfg.RiskFreeRate),
		logger:   log,
	}, nil
}

// SetRecorder attaches a recorder for trades, snapshots and signals.
func (e *Engine) SetRecorder(rec Recorder) {
	e.recorder = optional.Some(rec)
}

// SetStrategies replaces the strategies built from configuration.
// Aggregation weights still come from the config, keyed by name.
func (e *Engine) SetStrategies(strategies []strategy.Strategy) {
	e.strategies = strategies
}

// SetProgressCallback attaches a per-day progress callback.
func (e *Engine) SetProgressCallback(cb func(current, total int)) {
	e.onProgress = optional.Some(cb)
}

// Ledger exposes the ledger for inspection after a run.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// Run replays the window and returns the result. The context is
// checked at each day boundary.
func (e *Engine) Run(ctx context.Context, source datasource.HistorySource, params RunParams) (Result, error) {
	history, err := e.loadHistory(ctx, source, params)
	if err != nil {
		return Result{}, err
	}

	symbols, days := tradingCalendar(history)
	if len(days) == 0 {
		return Result{}, errors.New(errors.ErrCodeInsufficientData, "no bars in the requested window")
	}

	e.logger.Info("starting backtest",
		zap.Int("symbols", len(symbols)),
		zap.Int("days", len(days)),
		zap.Time("start", days[0]),
		zap.Time("end", days[len(days)-1]))

	var decisions []types.Decision

	windows := make(map[string][]types.Bar, len(symbols))

	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeUnknown, "backtest canceled", err)
		}

		// The daily loss baseline is the previous close's valuation,
		// taken before today's marks move anything.
		e.riskCtrl.RollDay(day, e.ledger.TotalValue())

		todays := e.markDay(history, windows, symbols, day)

		forced := e.applyForcedExits(day)

		e.runStrategies(windows, symbols, todays, forced, day, &decisions)

		snap := e.ledger.Snapshot(dayTimestamp(todays, day))
		e.record(func(r Recorder) error { return r.SaveSnapshot(snap) })

		if e.onProgress.IsSome() {
			e.onProgress.Unwrap()(i+1, len(days))
		}
	}

	strategyNames := make([]string, 0, len(e.strategies))
	for _, strat := range e.strategies {
		strategyNames = append(strategyNames, strat.Name())
	}

	result := Result{
		Start:          days[0],
		End:            days[len(days)-1],
		Symbols:        symbols,
		Strategies:     strategyNames,
		InitialCapital: e.ledger.InitialCapital(),
		FinalValue:     e.ledger.TotalValue(),
		History:        e.ledger.History(),
		Trades:         e.ledger.Trades(),
		Decisions:      decisions,
	}

	if params.Benchmark != "" {
		benchmark, err := source.History(ctx, params.Benchmark, params.Start, params.End)
		if err != nil {
			return Result{}, err
		}

		result.Metrics = e.analyzer.AnalyzeWithBenchmark(result.History, result.Trades, benchmark)
	} else {
		result.Metrics = e.analyzer.Analyze(result.History, result.Trades)
	}

	return result, nil
}

// loadHistory fetches the window's bars for every configured symbol.
// Symbols with no bars at all are rejected up front rather than
// silently skipped.
func (e *Engine) loadHistory(ctx context.Context, source datasource.HistorySource, params RunParams) (map[string][]types.Bar, error) {
	history := make(map[string][]types.Bar, len(e.cfg.Symbols))

	for _, symbol := range e.cfg.Symbols {
		bars, err := source.History(ctx, symbol, params.Start, params.End)
		if err != nil {
			return nil, err
		}

		if len(bars) == 0 {
			return nil, errors.Newf(errors.ErrCodeMissingPriceData, "no price data for %s in the requested window", symbol)
		}

		history[symbol] = bars
	}

	return history, nil
}

// markDay appends today's bars to the per-symbol windows and marks the
// ledger. A symbol without a bar today keeps its previous mark.
func (e *Engine) markDay(history, windows map[string][]types.Bar, symbols []string, day time.Time) map[string]types.Bar {
	todays := make(map[string]types.Bar)

	for _, symbol := range symbols {
		bar, ok := barOn(history[symbol], day)
		if !ok {
			continue
		}

		windows[symbol] = append(windows[symbol], bar)
		todays[symbol] = bar
		e.ledger.MarkPrice(symbol, bar.Close)
	}

	return todays
}

// applyForcedExits liquidates every position the risk controller
// flags, and returns the affected symbols so strategy buys cannot
// reopen them on the same bar.
func (e *Engine) applyForcedExits(day time.Time) map[string]bool {
	forced := make(map[string]bool)

	for _, exit := range e.riskCtrl.Evaluate(e.ledger.Positions()) {
		pos, ok := e.ledger.Position(exit.Symbol)
		if !ok {
			continue
		}

		order := e.sizer.NewOrder(exit.Symbol, types.SideSell, exit.Shares, pos.LastPrice, day, exit.Reason, "risk")

		trade, err := e.ledger.Apply(order)
		if err != nil {
			e.logger.Error("forced exit failed", zap.String("symbol", exit.Symbol), zap.Error(err))

			continue
		}

		forced[exit.Symbol] = true

		e.logger.Info("forced exit",
			zap.String("symbol", exit.Symbol),
			zap.String("reason", exit.Reason.Reason),
			zap.Float64("pnl", trade.PnL))
		e.record(func(r Recorder) error { return r.SaveTrade(trade) })
	}

	return forced
}

// runStrategies generates, aggregates and executes today's decisions
// in sorted symbol order.
func (e *Engine) runStrategies(windows map[string][]types.Bar, symbols []string,
	todays map[string]types.Bar, forced map[string]bool, day time.Time, decisions *[]types.Decision,
) {
	for _, symbol := range symbols {
		bar, ok := todays[symbol]
		if !ok {
			continue
		}

		signals := e.collectSignals(symbol, windows[symbol], bar.Time)

		decision := e.agg.Aggregate(symbol, bar.Time, signals)
		*decisions = append(*decisions, decision)

		if decision.Kind == types.SignalKindHold {
			continue
		}

		e.execute(decision, bar, forced, day)
	}
}

// collectSignals runs every strategy over the symbol's window and
// keeps the signals for the current bar. A failing strategy is logged
// and skipped; the others still vote.
func (e *Engine) collectSignals(symbol string, window []types.Bar, barTime time.Time) []types.Signal {
	var signals []types.Signal

	for _, strat := range e.strategies {
		out, err := strat.GenerateSignals(symbol, window)
		if err != nil {
			e.logger.Error("strategy failed",
				zap.String("strategy", strat.Name()),
				zap.String("symbol", symbol),
				zap.Error(errors.Wrapf(errors.ErrCodeStrategyComputation, err, "strategy %s", strat.Name())))

			continue
		}

		for _, sig := range out {
			if !sig.Time.Equal(barTime) {
				continue
			}

			signals = append(signals, sig)
			e.record(func(r Recorder) error { return r.SaveSignal(sig) })
		}
	}

	return signals
}

// execute turns a non-hold decision into an order and settles it.
func (e *Engine) execute(decision types.Decision, bar types.Bar, forced map[string]bool, day time.Time) {
	reason := types.Reason{Reason: types.OrderReasonStrategy, Message: decision.Reason()}

	switch decision.Kind {
	case types.SignalKindBuy:
		if forced[decision.Symbol] {
			return
		}

		if !e.riskCtrl.AllowBuy(e.ledger.TotalValue()) {
			e.logger.Info("daily loss limit blocks buy", zap.String("symbol", decision.Symbol), zap.Time("day", day))

			return
		}

		shares := e.sizer.BuyShares(e.ledger.Cash(), e.ledger.TotalValue(), e.ledger.PositionsValue(), bar.Close)
		if shares == 0 {
			return
		}

		e.settle(e.sizer.NewOrder(decision.Symbol, types.SideBuy, shares, bar.Close, bar.Time, reason, "aggregate"))

	case types.SignalKindSell:
		pos, ok := e.ledger.Position(decision.Symbol)
		if !ok {
			return
		}

		shares := e.sizer.SellShares(pos.Shares, false)
		if shares == 0 {
			return
		}

		e.settle(e.sizer.NewOrder(decision.Symbol, types.SideSell, shares, bar.Close, bar.Time, reason, "aggregate"))
	}
}

func (e *Engine) settle(order types.Order) {
	trade, err := e.ledger.Apply(order)
	if err != nil {
		e.logger.Warn("order rejected",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Error(err))

		return
	}

	e.logger.Debug("order settled",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("shares", order.Shares),
		zap.Float64("price", order.Price))
	e.record(func(r Recorder) error { return r.SaveTrade(trade) })
}

func (e *Engine) record(save func(Recorder) error) {
	if e.recorder.IsNone() {
		return
	}

	if err := save(e.recorder.Unwrap()); err != nil {
		e.logger.Error("failed to record artifact", zap.Error(err))
	}
}

// tradingCalendar returns the sorted symbol universe and the sorted,
// deduplicated union of trading days across all histories.
func tradingCalendar(history map[string][]types.Bar) ([]string, []time.Time) {
	symbols := make([]string, 0, len(history))
	daySet := make(map[time.Time]bool)

	for symbol, bars := range history {
		symbols = append(symbols, symbol)

		for _, bar := range bars {
			daySet[bar.Day()] = true
		}
	}

	sort.Strings(symbols)

	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	return symbols, days
}

// barOn finds the symbol's bar for the given day, if any.
func barOn(bars []types.Bar, day time.Time) (types.Bar, bool) {
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Day().Before(day) })
	if i < len(bars) && bars[i].Day().Equal(day) {
		return bars[i], true
	}

	return types.Bar{}, false
}

// dayTimestamp picks the bar time for the day's snapshot, falling back
// to the calendar day when no symbol traded. The earliest bar time is
// used so the choice never depends on map order.
func dayTimestamp(todays map[string]types.Bar, day time.Time) time.Time {
	ts := day
	first := true

	for _, bar := range todays {
		if first || bar.Time.Before(ts) {
			ts = bar.Time
			first = false
		}
	}

	return ts
}

// Package simulation runs the decision pipeline against live quotes
// on a wall-clock ticker, paper-trading a real account balance.
package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantforge/papertrade/internal/aggregator"
	"github.com/quantforge/papertrade/internal/config"
	"github.com/quantforge/papertrade/internal/datasource"
	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/portfolio"
	"github.com/quantforge/papertrade/internal/risk"
	"github.com/quantforge/papertrade/internal/strategy"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Bars kept per symbol; old bars beyond the longest warmup are
// dropped to bound memory on long-running sessions.
const maxWindowBars = 500

// Recorder archives artifacts as the simulation produces them.
type Recorder interface {
	SaveTrade(trade types.Trade) error
	SaveSnapshot(snap types.Snapshot) error
	SaveSignal(sig types.Signal) error
}

// PriceSnapshot is one immutable round of quotes. Symbols that failed
// to fetch are absent.
type PriceSnapshot struct {
	AsOf   time.Time
	Prices map[string]float64
}

// Engine polls quotes on a fixed interval and feeds them through the
// same pipeline the backtest uses. Quote fetches run concurrently, one
// goroutine per symbol; everything downstream of the snapshot is
// single-threaded, so the ledger needs no locking.
type Engine struct {
	cfg        config.Config
	quotes     datasource.QuoteSource
	hours      *MarketHours
	interval   time.Duration
	strategies []strategy.Strategy
	agg        *aggregator.Aggregator
	riskCtrl   *risk.Controller
	ledger     *portfolio.Ledger
	sizer      *portfolio.Sizer
	logger     *logger.Logger

	recorder optional.Option[Recorder]
	onTick   optional.Option[func(snap types.Snapshot)]

	windows    map[string][]types.Bar
	currentDay time.Time
}

// NewEngine assembles the pipeline from configuration.
func NewEngine(cfg config.Config, quotes datasource.QuoteSource, hours *MarketHours,
	interval time.Duration, log *logger.Logger,
) (*Engine, error) {
	if interval <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "tick interval must be positive")
	}

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
		quotes:     quotes,
		hours:      hours,
		interval:   interval,
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
		logger:  log,
		windows: make(map[string][]types.Bar),
	}, nil
}

// SetRecorder attaches a recorder.
func (e *Engine) SetRecorder(rec Recorder) {
	e.recorder = optional.Some(rec)
}

// SetStrategies replaces the strategies built from configuration.
// Aggregation weights still come from the config, keyed by name.
func (e *Engine) SetStrategies(strategies []strategy.Strategy) {
	e.strategies = strategies
}

// SetTickCallback attaches a callback invoked with each tick's
// snapshot.
func (e *Engine) SetTickCallback(cb func(snap types.Snapshot)) {
	e.onTick = optional.Some(cb)
}

// Ledger exposes the ledger for inspection.
func (e *Engine) Ledger() *portfolio.Ledger { return e.ledger }

// Run ticks until the context is canceled. Cancellation is honored at
// tick boundaries; a tick in flight completes first.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("starting simulation",
		zap.Strings("symbols", e.cfg.Symbols),
		zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("simulation stopped", zap.Float64("total_value", e.ledger.TotalValue()))

			return nil
		case now := <-ticker.C:
			if !e.hours.IsOpen(now) {
				e.logger.Debug("market closed", zap.Time("next_open", e.hours.NextOpen(now)))

				continue
			}

			e.Tick(ctx, now)
		}
	}
}

// Tick runs one full fetch-decide-execute round at the given instant.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	snap := e.fetchPrices(ctx, now)
	if len(snap.Prices) == 0 {
		e.logger.Warn("no quotes this tick, skipping")

		return
	}

	if day := now.UTC().Truncate(24 * time.Hour); !day.Equal(e.currentDay) {
		e.currentDay = day
		e.riskCtrl.RollDay(day, e.ledger.TotalValue())
	}

	e.extendWindows(snap)

	forced := e.applyForcedExits(snap)

	e.runStrategies(snap, forced)

	ledgerSnap := e.ledger.Snapshot(snap.AsOf)
	e.record(func(r Recorder) error { return r.SaveSnapshot(ledgerSnap) })

	if e.onTick.IsSome() {
		e.onTick.Unwrap()(ledgerSnap)
	}
}

// fetchPrices polls every symbol concurrently and collects the quotes
// that arrived. A symbol that fails is logged and left out of the
// snapshot; the rest of the tick proceeds without it.
func (e *Engine) fetchPrices(ctx context.Context, now time.Time) PriceSnapshot {
	snap := PriceSnapshot{AsOf: now, Prices: make(map[string]float64, len(e.cfg.Symbols))}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, symbol := range e.cfg.Symbols {
		wg.Add(1)

		go func(symbol string) {
			defer wg.Done()

			quote, err := e.quotes.LatestPrice(ctx, symbol)
			if err != nil {
				e.logger.Warn("quote fetch failed",
					zap.String("symbol", symbol),
					zap.Error(errors.Wrapf(errors.ErrCodeDataFetchFailure, err, "fetch %s", symbol)))

				return
			}

			mu.Lock()
			snap.Prices[symbol] = quote.Price
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()

	return snap
}

// extendWindows appends a synthetic bar per quoted symbol and marks
// the ledger. Live quotes carry no OHLC, so the bar collapses to the
// quoted price.
func (e *Engine) extendWindows(snap PriceSnapshot) {
	for _, symbol := range e.sortedQuoted(snap) {
		price := snap.Prices[symbol]

		bar := types.Bar{
			Time:   snap.AsOf,
			Symbol: symbol,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
		}

		window := append(e.windows[symbol], bar)
		if len(window) > maxWindowBars {
			window = window[len(window)-maxWindowBars:]
		}

		e.windows[symbol] = window
		e.ledger.MarkPrice(symbol, price)
	}
}

// applyForcedExits liquidates every position the risk controller
// flags, and returns the affected symbols so strategy buys cannot
// reopen them on the same tick.
func (e *Engine) applyForcedExits(snap PriceSnapshot) map[string]bool {
	forced := make(map[string]bool)

	for _, exit := range e.riskCtrl.Evaluate(e.ledger.Positions()) {
		pos, ok := e.ledger.Position(exit.Symbol)
		if !ok {
			continue
		}

		order := e.sizer.NewOrder(exit.Symbol, types.SideSell, exit.Shares, pos.LastPrice, snap.AsOf, exit.Reason, "risk")

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

func (e *Engine) runStrategies(snap PriceSnapshot, forced map[string]bool) {
	for _, symbol := range e.sortedQuoted(snap) {
		signals := e.collectSignals(symbol, snap.AsOf)

		decision := e.agg.Aggregate(symbol, snap.AsOf, signals)
		if decision.Kind == types.SignalKindHold {
			continue
		}

		e.execute(decision, snap.Prices[symbol], snap.AsOf, forced)
	}
}

func (e *Engine) collectSignals(symbol string, asOf time.Time) []types.Signal {
	var signals []types.Signal

	for _, strat := range e.strategies {
		out, err := strat.GenerateSignals(symbol, e.windows[symbol])
		if err != nil {
			e.logger.Error("strategy failed",
				zap.String("strategy", strat.Name()),
				zap.String("symbol", symbol),
				zap.Error(errors.Wrapf(errors.ErrCodeStrategyComputation, err, "strategy %s", strat.Name())))

			continue
		}

		for _, sig := range out {
			if !sig.Time.Equal(asOf) {
				continue
			}

			signals = append(signals, sig)
			e.record(func(r Recorder) error { return r.SaveSignal(sig) })
		}
	}

	return signals
}

func (e *Engine) execute(decision types.Decision, price float64, asOf time.Time, forced map[string]bool) {
	reason := types.Reason{Reason: types.OrderReasonStrategy, Message: decision.Reason()}

	switch decision.Kind {
	case types.SignalKindBuy:
		if forced[decision.Symbol] {
			return
		}

		if !e.riskCtrl.AllowBuy(e.ledger.TotalValue()) {
			e.logger.Info("daily loss limit blocks buy", zap.String("symbol", decision.Symbol))

			return
		}

		shares := e.sizer.BuyShares(e.ledger.Cash(), e.ledger.TotalValue(), e.ledger.PositionsValue(), price)
		if shares == 0 {
			return
		}

		e.settle(e.sizer.NewOrder(decision.Symbol, types.SideBuy, shares, price, asOf, reason, "aggregate"))

	case types.SignalKindSell:
		pos, ok := e.ledger.Position(decision.Symbol)
		if !ok {
			return
		}

		shares := e.sizer.SellShares(pos.Shares, false)
		if shares == 0 {
			return
		}

		e.settle(e.sizer.NewOrder(decision.Symbol, types.SideSell, shares, price, asOf, reason, "aggregate"))
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

	e.logger.Info("order settled",
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

// sortedQuoted returns the symbols present in the snapshot, sorted,
// so execution order never depends on map iteration.
func (e *Engine) sortedQuoted(snap PriceSnapshot) []string {
	symbols := make([]string, 0, len(snap.Prices))
	for symbol := range snap.Prices {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Package portfolio holds the cash-and-positions ledger, the
// execution cost model and the board-lot position sizer.
package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Ledger is the single source of truth for cash, positions and trade
// history. Cash is kept in decimal so fee arithmetic never drifts;
// orders either settle fully or leave the ledger untouched. The ledger
// is not safe for concurrent use; the engines serialize access to it.
type Ledger struct {
	cost           CostModel
	initialCapital decimal.Decimal
	cash           decimal.Decimal

	positions map[string]*types.Position
	trades    []types.Trade
	history   []types.Snapshot
}

// NewLedger creates a ledger holding the initial capital in cash.
func NewLedger(initialCapital float64, cost CostModel) *Ledger {
	capital := decimal.NewFromFloat(initialCapital)

	return &Ledger{
		cost:           cost,
		initialCapital: capital,
		cash:           capital,
		positions:      make(map[string]*types.Position),
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	f, _ := l.cash.Float64()

	return f
}

// PositionsValue is the market value of all open positions at their
// last marks.
func (l *Ledger) PositionsValue() float64 {
	var total float64
	for _, pos := range l.positions {
		total += pos.MarketValue()
	}

	return total
}

// TotalValue is cash plus the positions value, recomputed on every
// call rather than carried as a running total.
func (l *Ledger) TotalValue() float64 {
	return l.Cash() + l.PositionsValue()
}

// Position returns a copy of the position for the symbol, if any.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return types.Position{}, false
	}

	return *pos, true
}

// Positions returns copies of all open positions, sorted by symbol.
func (l *Ledger) Positions() []types.Position {
	out := make([]types.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out
}

// MarkPrice updates the valuation mark for the symbol. Symbols without
// an open position are ignored.
func (l *Ledger) MarkPrice(symbol string, price float64) {
	if pos, ok := l.positions[symbol]; ok {
		pos.LastPrice = price
	}
}

// Apply settles the order against the ledger and returns the recorded
// trade. A rejected order leaves cash and positions untouched.
func (l *Ledger) Apply(order types.Order) (types.Trade, error) {
	if err := order.Validate(); err != nil {
		return types.Trade{}, err
	}

	switch order.Side {
	case types.SideBuy:
		return l.applyBuy(order)
	case types.SideSell:
		return l.applySell(order)
	default:
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidOrder, "unknown order side %q", order.Side)
	}
}

func (l *Ledger) applyBuy(order types.Order) (types.Trade, error) {
	debit := decimal.NewFromFloat(order.Notional()).
		Add(decimal.NewFromFloat(order.Commission))

	if l.cash.LessThan(debit) {
		return types.Trade{}, errors.Newf(errors.ErrCodeInsufficientFunds,
			"buy %s needs %s but only %s cash is available", order.Symbol, debit.StringFixed(2), l.cash.StringFixed(2))
	}

	l.cash = l.cash.Sub(debit)

	pos, ok := l.positions[order.Symbol]
	if !ok {
		pos = &types.Position{Symbol: order.Symbol, OpenedAt: order.Time}
		l.positions[order.Symbol] = pos
	}

	// Weighted-average cost basis over the shares only; commission is
	// expensed, not capitalized.
	oldCost := float64(pos.Shares) * pos.AvgCost
	pos.Shares += order.Shares
	pos.AvgCost = (oldCost + order.Notional()) / float64(pos.Shares)
	pos.LastPrice = order.Price

	trade := types.Trade{Order: order, PnL: 0, CashAfter: l.Cash()}
	l.trades = append(l.trades, trade)

	return trade, nil
}

func (l *Ledger) applySell(order types.Order) (types.Trade, error) {
	pos, ok := l.positions[order.Symbol]
	if !ok || pos.Shares < order.Shares {
		var held int64
		if ok {
			held = pos.Shares
		}

		return types.Trade{}, errors.Newf(errors.ErrCodeInsufficientShares,
			"sell %d %s but only %d shares are held", order.Shares, order.Symbol, held)
	}

	fees := decimal.NewFromFloat(order.Commission).Add(decimal.NewFromFloat(order.StampTax))
	credit := decimal.NewFromFloat(order.Notional()).Sub(fees)

	l.cash = l.cash.Add(credit)

	// Realized PnL nets fees against the average cost basis. The basis
	// itself does not move on a partial sell.
	costBasis := decimal.NewFromInt(order.Shares).Mul(decimal.NewFromFloat(pos.AvgCost))
	pnl, _ := decimal.NewFromFloat(order.Notional()).Sub(costBasis).Sub(fees).Round(2).Float64()

	pos.Shares -= order.Shares
	pos.LastPrice = order.Price

	if pos.Shares == 0 {
		delete(l.positions, order.Symbol)
	}

	trade := types.Trade{Order: order, PnL: pnl, CashAfter: l.Cash()}
	l.trades = append(l.trades, trade)

	return trade, nil
}

// Snapshot values the portfolio at the given time, appends the point
// to the history and returns it. DailyPnL is measured against the
// previous snapshot, CumulativePnL against the initial capital.
func (l *Ledger) Snapshot(ts time.Time) types.Snapshot {
	initial, _ := l.initialCapital.Float64()

	snap := types.Snapshot{
		Time:           ts,
		Cash:           l.Cash(),
		PositionsValue: l.PositionsValue(),
	}
	snap.TotalValue = snap.Cash + snap.PositionsValue
	snap.CumulativePnL = snap.TotalValue - initial

	if n := len(l.history); n > 0 {
		snap.DailyPnL = snap.TotalValue - l.history[n-1].TotalValue
	} else {
		snap.DailyPnL = snap.TotalValue - initial
	}

	l.history = append(l.history, snap)

	return snap
}

// History returns the recorded snapshots in chronological order.
func (l *Ledger) History() []types.Snapshot {
	out := make([]types.Snapshot, len(l.history))
	copy(out, l.history)

	return out
}

// Trades returns the settled trades in execution order.
func (l *Ledger) Trades() []types.Trade {
	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)

	return out
}

// InitialCapital returns the starting cash.
func (l *Ledger) InitialCapital() float64 {
	f, _ := l.initialCapital.Float64()

	return f
}

// CostModel returns the ledger's execution cost model.
func (l *Ledger) CostModel() CostModel { return l.cost }

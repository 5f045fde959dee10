package types

import "time"

// Position is the current holding of one symbol. Owned exclusively by
// the ledger; callers receive copies.
type Position struct {
	Symbol string `yaml:"symbol" csv:"symbol"`
	// Shares is non-negative and, except transiently during a terminal
	// liquidation, a multiple of the board lot.
	Shares int64 `yaml:"shares" csv:"shares"`
	// AvgCost is the weighted-average cost basis. Unchanged by sells.
	AvgCost float64 `yaml:"avg_cost" csv:"avg_cost"`
	// LastPrice is the most recent mark used for valuation.
	LastPrice float64 `yaml:"last_price" csv:"last_price"`
	// OpenedAt is the bar time the position was first opened.
	OpenedAt time.Time `yaml:"opened_at" csv:"opened_at"`
}

// MarketValue is shares times the last mark.
func (p Position) MarketValue() float64 {
	return float64(p.Shares) * p.LastPrice
}

// UnrealizedReturn is (last - avg_cost) / avg_cost, or 0 for an
// empty or cost-free position.
func (p Position) UnrealizedReturn() float64 {
	if p.Shares == 0 || p.AvgCost == 0 {
		return 0
	}

	return (p.LastPrice - p.AvgCost) / p.AvgCost
}

// Snapshot is one point of the valuation history. TotalValue always
// satisfies TotalValue = Cash + PositionsValue, recomputed from the
// positions rather than carried as a running total.
type Snapshot struct {
	Time           time.Time `yaml:"time" csv:"time"`
	TotalValue     float64   `yaml:"total_value" csv:"total_value"`
	Cash           float64   `yaml:"cash" csv:"cash"`
	PositionsValue float64   `yaml:"positions_value" csv:"positions_value"`
	// DailyPnL is the change in total value since the previous snapshot.
	DailyPnL float64 `yaml:"daily_pnl" csv:"daily_pnl"`
	// CumulativePnL is the change in total value since the run started.
	CumulativePnL float64 `yaml:"cumulative_pnl" csv:"cumulative_pnl"`
}

// Trade is an executed order plus its realized result.
type Trade struct {
	Order Order `yaml:"order" csv:"order"`
	// PnL is the realized profit of a sell after commission and tax,
	// measured against the position's average cost. Zero for buys.
	PnL float64 `yaml:"pnl" csv:"pnl"`
	// CashAfter is the ledger cash immediately after the trade settled.
	CashAfter float64 `yaml:"cash_after" csv:"cash_after"`
}

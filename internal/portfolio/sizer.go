package portfolio

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quantforge/papertrade/internal/types"
)

// SizerParams are the position sizing limits from configuration.
type SizerParams struct {
	// MaxPositionPct caps one buy at this fraction of spendable cash.
	MaxPositionPct float64
	// MaxTotalPositionPct caps all positions combined at this fraction.
	MaxTotalPositionPct float64
	// CashReserve keeps this fraction of total value out of play.
	CashReserve float64
	// LotSize is the board lot; buys are always a multiple of it.
	LotSize int64
	// SellRatio scales strategy sells; risk exits ignore it.
	SellRatio float64
}

// Sizer turns decisions into lot-aligned orders within the configured
// exposure limits. Orders it emits are fully costed; the ledger only
// settles them.
type Sizer struct {
	params SizerParams
	cost   CostModel
}

// NewSizer creates a sizer.
func NewSizer(params SizerParams, cost CostModel) *Sizer {
	return &Sizer{params: params, cost: cost}
}

// BuyShares computes how many shares to buy at the given price. The
// budget is the per-order share of spendable cash, capped by the
// headroom left under the total exposure limit; the cash reserve is
// taken off the top before either applies. Returns 0 when less than
// one board lot fits, fees included.
func (s *Sizer) BuyShares(cash, totalValue, positionsValue, price float64) int64 {
	if price <= 0 {
		return 0
	}

	available := cash - s.params.CashReserve*totalValue

	budget := math.Min(
		available*s.params.MaxPositionPct,
		s.params.MaxTotalPositionPct*totalValue-positionsValue,
	)
	if budget <= 0 {
		return 0
	}

	// Reserve headroom for the proportional commission so the settled
	// debit cannot exceed the budget.
	perShare := price * (1 + s.cost.CommissionRate())
	lots := int64(budget / (perShare * float64(s.params.LotSize)))

	return lots * s.params.LotSize
}

// SellShares computes how many of the held shares to sell. A full exit
// returns the entire holding, residual odd lot included; a partial
// exit is the sell ratio's share floored down to whole lots, falling
// back to a full exit when less than one lot remains.
func (s *Sizer) SellShares(held int64, full bool) int64 {
	if held <= 0 {
		return 0
	}

	if full || s.params.SellRatio >= 1 {
		return held
	}

	lots := int64(s.params.SellRatio*float64(held)) / s.params.LotSize
	if lots == 0 {
		return held
	}

	return lots * s.params.LotSize
}

// NewOrder builds a fully costed order for the given fill.
func (s *Sizer) NewOrder(symbol string, side types.Side, shares int64, price float64,
	ts time.Time, reason types.Reason, strategy string,
) types.Order {
	notional := float64(shares) * price

	return types.Order{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Shares:     shares,
		Price:      price,
		Commission: s.cost.Commission(notional),
		StampTax:   s.cost.StampTax(side, notional),
		Time:       ts,
		Reason:     reason,
		Strategy:   strategy,
	}
}

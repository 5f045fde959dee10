package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/quantforge/papertrade/internal/types"
)

// CostModel computes the A-share execution fees: a proportional
// commission with an optional per-order floor on both sides, and a
// stamp tax on the sell side only. All fees are rounded to the cent,
// half up, the way the broker rounds.
type CostModel struct {
	commissionRate decimal.Decimal
	minCommission  decimal.Decimal
	stampTaxRate   decimal.Decimal
}

// NewCostModel creates a cost model from the configured rates.
func NewCostModel(commissionRate, minCommission, stampTaxRate float64) CostModel {
	return CostModel{
		commissionRate: decimal.NewFromFloat(commissionRate),
		minCommission:  decimal.NewFromFloat(minCommission),
		stampTaxRate:   decimal.NewFromFloat(stampTaxRate),
	}
}

// Commission is the brokerage fee for the given notional, floored at
// the configured minimum.
func (m CostModel) Commission(notional float64) float64 {
	fee := decimal.NewFromFloat(notional).Mul(m.commissionRate).Round(2)
	if fee.LessThan(m.minCommission) {
		fee = m.minCommission
	}

	f, _ := fee.Float64()

	return f
}

// StampTax is the transaction tax for the given notional. Buys are
// tax-free.
func (m CostModel) StampTax(side types.Side, notional float64) float64 {
	if side != types.SideSell {
		return 0
	}

	f, _ := decimal.NewFromFloat(notional).Mul(m.stampTaxRate).Round(2).Float64()

	return f
}

// CommissionRate returns the proportional commission rate, for sizing
// headroom math.
func (m CostModel) CommissionRate() float64 {
	f, _ := m.commissionRate.Float64()

	return f
}

// Package risk enforces position-level exits and the portfolio-level
// daily loss limit.
package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantforge/papertrade/internal/types"
)

// Params are the risk thresholds, all expressed as fractions.
type Params struct {
	// StopLoss liquidates a position whose unrealized return drops to
	// -StopLoss or below. Zero disables the check.
	StopLoss float64
	// TakeProfit liquidates a position whose unrealized return reaches
	// +TakeProfit or above. Zero disables the check.
	TakeProfit float64
	// MaxDailyLoss blocks new buys for the rest of the day once the
	// total value has fallen that far below the day-open value. Zero
	// disables the check.
	MaxDailyLoss float64
}

// Exit is a forced full liquidation demanded by the controller.
type Exit struct {
	Symbol string
	Shares int64
	Reason types.Reason
}

// Controller evaluates positions against the risk parameters. Exits
// take precedence over any strategy decision on the same bar, and a
// tripped daily loss limit stays tripped until the next RollDay.
type Controller struct {
	params Params

	dayOpenValue float64
	day          time.Time
	buysBlocked  bool
}

// NewController creates a controller with the given thresholds.
func NewController(params Params) *Controller {
	return &Controller{params: params}
}

// RollDay starts a new trading day, recording the day-open total value
// as the baseline for the daily loss limit and clearing any block.
func (c *Controller) RollDay(day time.Time, totalValue float64) {
	c.day = day
	c.dayOpenValue = totalValue
	c.buysBlocked = false
}

// AllowBuy reports whether new buys are still permitted today. Once
// the loss limit trips it latches; recovery later the same day does
// not unblock.
func (c *Controller) AllowBuy(totalValue float64) bool {
	if c.params.MaxDailyLoss <= 0 || c.dayOpenValue <= 0 {
		return true
	}

	if c.buysBlocked {
		return false
	}

	loss := (c.dayOpenValue - totalValue) / c.dayOpenValue
	if loss >= c.params.MaxDailyLoss {
		c.buysBlocked = true
	}

	return !c.buysBlocked
}

// Evaluate checks every marked position against the stop-loss and
// take-profit thresholds and returns the forced exits in symbol order.
// Take-profit is checked first, so a position that somehow satisfies
// both exits as a win.
func (c *Controller) Evaluate(positions []types.Position) []Exit {
	var exits []Exit

	for _, pos := range positions {
		if pos.Shares == 0 {
			continue
		}

		ret := pos.UnrealizedReturn()

		switch {
		case c.params.TakeProfit > 0 && ret >= c.params.TakeProfit:
			exits = append(exits, Exit{
				Symbol: pos.Symbol,
				Shares: pos.Shares,
				Reason: types.Reason{
					Reason:  types.OrderReasonTakeProfit,
					Message: fmt.Sprintf("unrealized return %.2f%% reached take-profit %.2f%%", ret*100, c.params.TakeProfit*100),
				},
			})
		case c.params.StopLoss > 0 && ret <= -c.params.StopLoss:
			exits = append(exits, Exit{
				Symbol: pos.Symbol,
				Shares: pos.Shares,
				Reason: types.Reason{
					Reason:  types.OrderReasonStopLoss,
					Message: fmt.Sprintf("unrealized return %.2f%% breached stop-loss %.2f%%", ret*100, c.params.StopLoss*100),
				},
			})
		}
	}

	sort.Slice(exits, func(i, j int) bool { return exits[i].Symbol < exits[j].Symbol })

	return exits
}

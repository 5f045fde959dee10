package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantforge/papertrade/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderReasonStrategy   string = "strategy"
	OrderReasonStopLoss   string = "stop_loss"
	OrderReasonTakeProfit string = "take_profit"
)

// Reason records why an order was placed.
type Reason struct {
	Reason  string `yaml:"reason" csv:"reason" validate:"required"`
	Message string `yaml:"message" csv:"message"`
}

// Order is a fully costed instruction for the ledger. It is produced
// by the position sizer, consumed exactly once by the ledger, and
// never mutated after creation.
type Order struct {
	ID     string `yaml:"id" csv:"id" validate:"required,uuid"`
	Symbol string `yaml:"symbol" csv:"symbol" validate:"required"`
	Side   Side   `yaml:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	// Shares is the executed share count. A positive multiple of the
	// board lot, except a terminal full liquidation which may carry a
	// non-multiple residual.
	Shares int64 `yaml:"shares" csv:"shares" validate:"required,gt=0"`
	// Price is the reference execution price (bar close).
	Price float64 `yaml:"price" csv:"price" validate:"required,gt=0"`
	// Commission is the brokerage fee charged on both sides.
	Commission float64 `yaml:"commission" csv:"commission" validate:"gte=0"`
	// StampTax is the sell-side-only transaction tax.
	StampTax float64   `yaml:"stamp_tax" csv:"stamp_tax" validate:"gte=0"`
	Time     time.Time `yaml:"timestamp" csv:"timestamp" validate:"required"`
	Reason   Reason    `yaml:"reason_detail" csv:"reason_detail" validate:"required"`
	// Strategy is the strategy (or "risk") that initiated the order.
	Strategy string `yaml:"strategy" csv:"strategy" validate:"required"`
}

// Notional is the share count times the reference price, before fees.
func (o Order) Notional() float64 {
	return float64(o.Shares) * o.Price
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.Side == SideBuy && o.StampTax != 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "stamp tax applies to the sell side only")
	}

	return nil
}

package types

import "time"

type SignalKind string

const (
	// SignalKindBuy votes for opening or adding to a position.
	SignalKindBuy SignalKind = "BUY"
	// SignalKindSell votes for reducing or closing a position.
	SignalKindSell SignalKind = "SELL"
	// SignalKindHold votes for no action.
	SignalKindHold SignalKind = "HOLD"
)

// Direction maps the signal kind to its directional value for scoring:
// BUY is +1, SELL is -1, HOLD is 0.
func (k SignalKind) Direction() float64 {
	switch k {
	case SignalKindBuy:
		return 1
	case SignalKindSell:
		return -1
	default:
		return 0
	}
}

// Signal is a single strategy vote for one symbol on one bar.
// Immutable once produced.
type Signal struct {
	// Symbol is the instrument the signal refers to.
	Symbol string
	// Kind is the vote direction.
	Kind SignalKind
	// Strength is the strategy's confidence in (0, 1].
	Strength float64
	// Price is the close of the bar the signal was computed on.
	Price float64
	// Time is the bar timestamp.
	Time time.Time
	// Strategy is the name of the strategy that produced the signal.
	Strategy string
	// Reason is a human-readable explanation for auditing.
	Reason string
}

package types

import (
	"strings"
	"time"
)

// Decision is the aggregated outcome of all strategy votes for one
// symbol on one bar. At most one Decision exists per symbol per bar.
type Decision struct {
	Symbol string
	Time   time.Time
	Kind   SignalKind
	// Score is the weighted net vote in [-1, 1].
	Score float64
	// Signals are the contributing votes in the order they were scored.
	Signals []Signal
}

// Reason concatenates the contributing strategies' reasons for auditing.
func (d Decision) Reason() string {
	parts := make([]string, 0, len(d.Signals))
	for _, s := range d.Signals {
		parts = append(parts, s.Strategy+": "+s.Reason)
	}

	return strings.Join(parts, "; ")
}

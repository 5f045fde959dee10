package simulation

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quantforge/papertrade/pkg/errors"
)

// Session open boundaries in exchange local time, cron syntax.
var sessionOpenSpecs = []string{
	"30 9 * * 1-5",
	"0 13 * * 1-5",
}

// MarketHours gates trading to the A-share sessions: 09:30-11:30 and
// 13:00-15:00 exchange local time, Monday through Friday. Holidays are
// not modeled; a holiday tick simply fetches quotes that do not move.
type MarketHours struct {
	loc   *time.Location
	opens []cron.Schedule
}

// NewMarketHours loads the exchange timezone and parses the session
// schedule.
func NewMarketHours(timezone string) (*MarketHours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %s", timezone)
	}

	opens := make([]cron.Schedule, 0, len(sessionOpenSpecs))

	for _, spec := range sessionOpenSpecs {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "bad session spec %q", spec)
		}

		opens = append(opens, schedule)
	}

	return &MarketHours{loc: loc, opens: opens}, nil
}

// IsOpen reports whether the market trades at the given instant.
func (m *MarketHours) IsOpen(t time.Time) bool {
	local := t.In(m.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minutes := local.Hour()*60 + local.Minute()

	morning := minutes >= 9*60+30 && minutes < 11*60+30
	afternoon := minutes >= 13*60 && minutes < 15*60

	return morning || afternoon
}

// NextOpen returns the next session-open boundary after the given
// instant.
func (m *MarketHours) NextOpen(t time.Time) time.Time {
	local := t.In(m.loc)

	next := m.opens[0].Next(local)
	for _, schedule := range m.opens[1:] {
		if candidate := schedule.Next(local); candidate.Before(next) {
			next = candidate
		}
	}

	return next
}

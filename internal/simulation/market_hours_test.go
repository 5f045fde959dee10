package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHours(t *testing.T) *MarketHours {
	t.Helper()

	hours, err := NewMarketHours("Asia/Shanghai")
	require.NoError(t, err)

	return hours
}

func cst(t *testing.T, hour, min int) time.Time {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 2024-03-04 is a Monday.
	return time.Date(2024, 3, 4, hour, min, 0, 0, loc)
}

func TestIsOpenSessions(t *testing.T) {
	hours := mustHours(t)

	assert.False(t, hours.IsOpen(cst(t, 9, 29)))
	assert.True(t, hours.IsOpen(cst(t, 9, 30)))
	assert.True(t, hours.IsOpen(cst(t, 11, 29)))
	assert.False(t, hours.IsOpen(cst(t, 11, 30))) // lunch break
	assert.False(t, hours.IsOpen(cst(t, 12, 30)))
	assert.True(t, hours.IsOpen(cst(t, 13, 0)))
	assert.True(t, hours.IsOpen(cst(t, 14, 59)))
	assert.False(t, hours.IsOpen(cst(t, 15, 0)))
}

func TestIsOpenWeekend(t *testing.T) {
	hours := mustHours(t)

	saturday := cst(t, 10, 0).AddDate(0, 0, 5)
	assert.False(t, hours.IsOpen(saturday))
}

func TestIsOpenConvertsTimezones(t *testing.T) {
	hours := mustHours(t)

	// 02:00 UTC is 10:00 in Shanghai.
	assert.True(t, hours.IsOpen(time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC)))
}

func TestNextOpenAcrossLunch(t *testing.T) {
	hours := mustHours(t)

	next := hours.NextOpen(cst(t, 12, 0))
	assert.Equal(t, cst(t, 13, 0).Unix(), next.Unix())
}

func TestNextOpenAfterCloseIsNextMorning(t *testing.T) {
	hours := mustHours(t)

	next := hours.NextOpen(cst(t, 15, 30))
	assert.Equal(t, cst(t, 9, 30).AddDate(0, 0, 1).Unix(), next.Unix())
}

func TestNewMarketHoursRejectsUnknownZone(t *testing.T) {
	_, err := NewMarketHours("Mars/Olympus")
	require.Error(t, err)
}

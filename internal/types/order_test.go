package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/papertrade/pkg/errors"
)

func validOrder() Order {
	return Order{
		ID:         uuid.NewString(),
		Symbol:     "600519",
		Side:       SideBuy,
		Shares:     1000,
		Price:      10,
		Commission: 3,
		Time:       time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
		Reason:     Reason{Reason: OrderReasonStrategy},
		Strategy:   "aggregate",
	}
}

func TestOrderValidate(t *testing.T) {
	order := validOrder()
	require.NoError(t, order.Validate())
}

func TestOrderValidateRejectsBuySideStampTax(t *testing.T) {
	order := validOrder()
	order.StampTax = 10

	err := order.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func TestOrderValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Order)
	}{
		{"empty id", func(o *Order) { o.ID = "" }},
		{"non-uuid id", func(o *Order) { o.ID = "not-a-uuid" }},
		{"zero shares", func(o *Order) { o.Shares = 0 }},
		{"negative shares", func(o *Order) { o.Shares = -100 }},
		{"zero price", func(o *Order) { o.Price = 0 }},
		{"bad side", func(o *Order) { o.Side = "SHORT" }},
		{"missing strategy", func(o *Order) { o.Strategy = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := validOrder()
			tc.mutate(&order)

			err := order.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
		})
	}
}

func TestOrderNotional(t *testing.T) {
	order := validOrder()
	assert.Equal(t, 10_000.0, order.Notional())
}

func TestPositionUnrealizedReturn(t *testing.T) {
	pos := Position{Symbol: "600519", Shares: 1000, AvgCost: 10, LastPrice: 11}
	assert.InDelta(t, 0.10, pos.UnrealizedReturn(), 1e-9)
	assert.Equal(t, 11_000.0, pos.MarketValue())

	assert.Zero(t, Position{}.UnrealizedReturn())
}

func TestSignalKindDirection(t *testing.T) {
	assert.Equal(t, 1.0, SignalKindBuy.Direction())
	assert.Equal(t, -1.0, SignalKindSell.Direction())
	assert.Zero(t, SignalKindHold.Direction())
}

func TestBarDay(t *testing.T) {
	bar := Bar{Time: time.Date(2024, 3, 4, 15, 0, 0, 0, time.FixedZone("CST", 8*3600))}
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), bar.Day())
}

package portfolio

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// LedgerTestSuite exercises the ledger with the standard A-share cost
// model: 0.03% commission with no minimum, 0.1% sell-side stamp tax.
type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
}

func (s *LedgerTestSuite) SetupTest() {
	s.ledger = NewLedger(1_000_000, NewCostModel(0.0003, 0, 0.001))
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) order(symbol string, side types.Side, shares int64, price float64) types.Order {
	cost := s.ledger.CostModel()
	notional := float64(shares) * price

	return types.Order{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Shares:     shares,
		Price:      price,
		Commission: cost.Commission(notional),
		StampTax:   cost.StampTax(side, notional),
		Time:       time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
		Reason:     types.Reason{Reason: types.OrderReasonStrategy},
		Strategy:   "test",
	}
}

// TestRoundTrip walks the canonical scenario: buy 1000 shares at
// 10.00, sell them at 11.00, and check every intermediate figure.
func (s *LedgerTestSuite) TestRoundTrip() {
	buy := s.order("600519", types.SideBuy, 1000, 10)
	s.Require().Equal(3.0, buy.Commission)
	s.Require().Equal(0.0, buy.StampTax)

	buyTrade, err := s.ledger.Apply(buy)
	s.Require().NoError(err)
	s.Equal(0.0, buyTrade.PnL)
	s.InDelta(1_000_000-10_003.00, s.ledger.Cash(), 1e-9)

	pos, ok := s.ledger.Position("600519")
	s.Require().True(ok)
	s.Equal(int64(1000), pos.Shares)
	s.Equal(10.0, pos.AvgCost)

	sell := s.order("600519", types.SideSell, 1000, 11)
	s.Require().Equal(3.30, sell.Commission)
	s.Require().Equal(11.0, sell.StampTax)

	sellTrade, err := s.ledger.Apply(sell)
	s.Require().NoError(err)

	// 11000 - 10000 cost basis - 3.30 commission - 11.00 tax.
	s.InDelta(985.70, sellTrade.PnL, 1e-9)
	s.InDelta(1_000_000-10_003.00+10_985.70, s.ledger.Cash(), 1e-9)

	_, ok = s.ledger.Position("600519")
	s.False(ok)

	// Round-trip profit net of all fees.
	s.InDelta(982.70, s.ledger.TotalValue()-1_000_000, 1e-9)
}

func (s *LedgerTestSuite) TestBuyRejectedOnInsufficientFunds() {
	order := s.order("600519", types.SideBuy, 200_000, 10)

	_, err := s.ledger.Apply(order)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientFunds))

	// A rejected order leaves the ledger untouched.
	s.Equal(1_000_000.0, s.ledger.Cash())
	s.Empty(s.ledger.Trades())
	s.Empty(s.ledger.Positions())
}

func (s *LedgerTestSuite) TestSellRejectedOnInsufficientShares() {
	_, err := s.ledger.Apply(s.order("600519", types.SideBuy, 500, 10))
	s.Require().NoError(err)

	_, err = s.ledger.Apply(s.order("600519", types.SideSell, 1000, 11))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientShares))

	pos, ok := s.ledger.Position("600519")
	s.Require().True(ok)
	s.Equal(int64(500), pos.Shares)
}

func (s *LedgerTestSuite) TestSellUnknownSymbolRejected() {
	_, err := s.ledger.Apply(s.order("000001", types.SideSell, 100, 10))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientShares))
}

func (s *LedgerTestSuite) TestWeightedAverageCost() {
	_, err := s.ledger.Apply(s.order("600519", types.SideBuy, 1000, 10))
	s.Require().NoError(err)

	_, err = s.ledger.Apply(s.order("600519", types.SideBuy, 1000, 12))
	s.Require().NoError(err)

	pos, ok := s.ledger.Position("600519")
	s.Require().True(ok)
	s.Equal(int64(2000), pos.Shares)

	// Commission is expensed, so the basis is the pure share average.
	s.InDelta(11.0, pos.AvgCost, 1e-9)
}

func (s *LedgerTestSuite) TestPartialSellKeepsBasis() {
	_, err := s.ledger.Apply(s.order("600519", types.SideBuy, 1000, 10))
	s.Require().NoError(err)

	_, err = s.ledger.Apply(s.order("600519", types.SideSell, 400, 12))
	s.Require().NoError(err)

	pos, ok := s.ledger.Position("600519")
	s.Require().True(ok)
	s.Equal(int64(600), pos.Shares)
	s.InDelta(10.0, pos.AvgCost, 1e-9)
}

func (s *LedgerTestSuite) TestMarkPriceMovesValuationOnly() {
	_, err := s.ledger.Apply(s.order("600519", types.SideBuy, 1000, 10))
	s.Require().NoError(err)

	cashBefore := s.ledger.Cash()
	s.ledger.MarkPrice("600519", 12)

	s.Equal(cashBefore, s.ledger.Cash())
	s.InDelta(12_000.0, s.ledger.PositionsValue(), 1e-9)

	// Marks for symbols without positions are dropped.
	s.ledger.MarkPrice("000001", 99)
	s.InDelta(12_000.0, s.ledger.PositionsValue(), 1e-9)
}

func (s *LedgerTestSuite) TestSnapshotIdentity() {
	_, err := s.ledger.Apply(s.order("600519", types.SideBuy, 1000, 10))
	s.Require().NoError(err)

	ts := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	snap := s.ledger.Snapshot(ts)

	s.Equal(ts, snap.Time)
	s.InDelta(snap.Cash+snap.PositionsValue, snap.TotalValue, 1e-9)
	s.InDelta(snap.TotalValue-1_000_000, snap.CumulativePnL, 1e-9)

	s.ledger.MarkPrice("600519", 11)
	next := s.ledger.Snapshot(ts.AddDate(0, 0, 1))

	s.InDelta(next.TotalValue-snap.TotalValue, next.DailyPnL, 1e-9)
	s.Len(s.ledger.History(), 2)
}

func (s *LedgerTestSuite) TestPositionsSortedBySymbol() {
	for _, symbol := range []string{"600519", "000001", "300750"} {
		_, err := s.ledger.Apply(s.order(symbol, types.SideBuy, 100, 10))
		s.Require().NoError(err)
	}

	positions := s.ledger.Positions()
	s.Require().Len(positions, 3)
	s.Equal("000001", positions[0].Symbol)
	s.Equal("300750", positions[1].Symbol)
	s.Equal("600519", positions[2].Symbol)
}

func (s *LedgerTestSuite) TestInvalidOrderRejected() {
	order := s.order("600519", types.SideBuy, 100, 10)
	order.StampTax = 5 // buy-side tax is never valid

	_, err := s.ledger.Apply(order)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

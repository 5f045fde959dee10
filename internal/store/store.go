// Package store archives the trades, snapshots and signals of a run
// in an embedded DuckDB, so results survive the process and can be
// exported for inspection.
package store

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// Store persists run results. Pass ":memory:" as the path for an
// ephemeral store, a file path for a durable one.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens the store and creates its tables.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	dsn := path
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open store database", err)
	}

	s := &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			shares BIGINT,
			price DOUBLE,
			commission DOUBLE,
			stamp_tax DOUBLE,
			timestamp TIMESTAMP,
			reason TEXT,
			message TEXT,
			strategy TEXT,
			pnl DOUBLE,
			cash_after DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			timestamp TIMESTAMP,
			total_value DOUBLE,
			cash DOUBLE,
			positions_value DOUBLE,
			daily_pnl DOUBLE,
			cumulative_pnl DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create snapshots table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			symbol TEXT,
			kind TEXT,
			strength DOUBLE,
			price DOUBLE,
			timestamp TIMESTAMP,
			strategy TEXT,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create signals table", err)
	}

	return nil
}

// SaveTrade archives one settled trade.
func (s *Store) SaveTrade(trade types.Trade) error {
	order := trade.Order

	_, err := s.sq.
		Insert("trades").
		Columns(
			"order_id", "symbol", "side", "shares", "price", "commission",
			"stamp_tax", "timestamp", "reason", "message", "strategy",
			"pnl", "cash_after",
		).
		Values(
			order.ID, order.Symbol, string(order.Side), order.Shares, order.Price,
			order.Commission, order.StampTax, order.Time, order.Reason.Reason,
			order.Reason.Message, order.Strategy, trade.PnL, trade.CashAfter,
		).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to save trade %s", order.ID)
	}

	return nil
}

// SaveSnapshot archives one valuation point.
func (s *Store) SaveSnapshot(snap types.Snapshot) error {
	_, err := s.sq.
		Insert("snapshots").
		Columns("timestamp", "total_value", "cash", "positions_value", "daily_pnl", "cumulative_pnl").
		Values(snap.Time, snap.TotalValue, snap.Cash, snap.PositionsValue, snap.DailyPnL, snap.CumulativePnL).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to save snapshot", err)
	}

	return nil
}

// SaveSignal archives one raw strategy signal.
func (s *Store) SaveSignal(sig types.Signal) error {
	_, err := s.sq.
		Insert("signals").
		Columns("symbol", "kind", "strength", "price", "timestamp", "strategy", "reason").
		Values(sig.Symbol, string(sig.Kind), sig.Strength, sig.Price, sig.Time, sig.Strategy, sig.Reason).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to save signal", err)
	}

	return nil
}

// Trades returns the archived trades in execution order.
func (s *Store) Trades() ([]types.Trade, error) {
	query, args, err := s.sq.
		Select(
			"order_id", "symbol", "side", "shares", "price", "commission",
			"stamp_tax", "timestamp", "reason", "message", "strategy",
			"pnl", "cash_after",
		).
		From("trades").
		OrderBy("timestamp ASC, order_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to build trades query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "trades query failed", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade types.Trade
			side  string
		)

		err := rows.Scan(
			&trade.Order.ID, &trade.Order.Symbol, &side, &trade.Order.Shares,
			&trade.Order.Price, &trade.Order.Commission, &trade.Order.StampTax,
			&trade.Order.Time, &trade.Order.Reason.Reason, &trade.Order.Reason.Message,
			&trade.Order.Strategy, &trade.PnL, &trade.CashAfter,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan trade", err)
		}

		trade.Order.Side = types.Side(side)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "trade row iteration failed", err)
	}

	return trades, nil
}

// Snapshots returns the archived valuation history in time order.
func (s *Store) Snapshots() ([]types.Snapshot, error) {
	query, args, err := s.sq.
		Select("timestamp", "total_value", "cash", "positions_value", "daily_pnl", "cumulative_pnl").
		From("snapshots").
		OrderBy("timestamp ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to build snapshots query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "snapshots query failed", err)
	}
	defer rows.Close()

	var snaps []types.Snapshot

	for rows.Next() {
		var snap types.Snapshot
		if err := rows.Scan(&snap.Time, &snap.TotalValue, &snap.Cash, &snap.PositionsValue, &snap.DailyPnL, &snap.CumulativePnL); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to scan snapshot", err)
		}

		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "snapshot row iteration failed", err)
	}

	return snaps, nil
}

// Export copies the trades table out as CSV. COPY has no squirrel
// builder, so this is raw SQL.
func (s *Store) Export(path string) error {
	s.logger.Debug("exporting trades", zap.String("path", path))

	_, err := s.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT CSV, HEADER)`, path))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to export trades to %s", path)
	}

	return nil
}

// Cleanup drops all archived rows.
func (s *Store) Cleanup() error {
	for _, table := range []string{"trades", "snapshots", "signals"} {
		if _, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return errors.Wrapf(errors.ErrCodeStoreFailed, err, "failed to clean table %s", table)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantforge/papertrade/internal/logger"
	"github.com/quantforge/papertrade/internal/types"
	"github.com/quantforge/papertrade/pkg/errors"
)

// DuckDBSource serves daily bars out of a CSV or Parquet file through
// an in-process DuckDB view. The file must carry time, symbol, open,
// high, low, close and volume columns.
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB and exposes the data file
// as the bars view.
func NewDuckDBSource(dataPath string, log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataFetchFailure, "failed to open duckdb", err)
	}

	s := &DuckDBSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := s.initialize(dataPath); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// initialize creates the bars view over the data file. CREATE VIEW is
// raw SQL; squirrel has no builder for it.
func (s *DuckDBSource) initialize(dataPath string) error {
	s.logger.Debug("initializing duckdb data source", zap.String("path", dataPath))

	// A-share tickers are numeric strings with leading zeros, so the
	// symbol column must not be type-inferred as an integer.
	reader := fmt.Sprintf("read_csv_auto('%s', types={'symbol': 'VARCHAR'})", dataPath)
	if ext := strings.ToLower(filepath.Ext(dataPath)); ext == ".parquet" {
		reader = fmt.Sprintf("read_parquet('%s')", dataPath)
	}

	query := fmt.Sprintf(`
		CREATE OR REPLACE VIEW bars AS
		SELECT time, symbol, open, high, low, close, volume
		FROM %s;
	`, reader)

	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataFetchFailure, err, "failed to load %s", dataPath)
	}

	return nil
}

// History implements HistorySource.
func (s *DuckDBSource) History(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	query, args, err := s.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.GtOrEq{"time": start}).
		Where(squirrel.LtOrEq{"time": end}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build history query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "history query failed for %s", symbol)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "history row iteration failed", err)
	}

	return bars, nil
}

// Symbols implements HistorySource.
func (s *DuckDBSource) Symbols(ctx context.Context) ([]string, error) {
	query, args, err := s.sq.
		Select("DISTINCT symbol").
		From("bars").
		OrderBy("symbol ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbols query failed", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbol row iteration failed", err)
	}

	return symbols, nil
}

// Close implements HistorySource.
func (s *DuckDBSource) Close() error {
	return s.db.Close()
}

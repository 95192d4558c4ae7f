// Package store reads previously exported candle Parquet files back into
// series, so callers can extend or splice stored history with fresh fetches.
package store

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-candles/internal/logger"
	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// DuckDBStore queries candle Parquet exports through a DuckDB view.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens an in-memory DuckDB session for querying exports.
// Call Initialize to point it at a Parquet file.
func NewDuckDBStore(log *logger.Logger) (*DuckDBStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open DuckDB connection", err)
	}

	return &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize builds the candles view over the Parquet file at path,
// replacing any previously initialized view.
func (s *DuckDBStore) Initialize(path string) error {
	s.logger.Debug("initializing candle store", zap.String("path", path))

	_, err := s.db.Exec(`DROP VIEW IF EXISTS candles;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// Squirrel has no CREATE VIEW support; raw SQL here.
	query := fmt.Sprintf(`
		CREATE VIEW candles AS
		SELECT * FROM read_parquet('%s');
	`, path)

	_, err = s.db.Exec(query)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create candles view", err)
	}

	return nil
}

// Count returns the number of stored bars with open times inside the optional
// [start, end) bounds.
func (s *DuckDBStore) Count(start optional.Option[int64], end optional.Option[int64]) (int, error) {
	query := s.sq.Select("COUNT(*)").From("candles")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"open_time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.Lt{"open_time": end.Unwrap()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := s.db.QueryRow(sqlStr, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count stored bars", err)
	}

	return count, nil
}

// ReadSeries loads the stored series for pair at interval, restricted to the
// optional [start, end) bounds, ordered by open time.
func (s *DuckDBStore) ReadSeries(pair string, interval types.Interval, start optional.Option[int64], end optional.Option[int64]) (types.Series, error) {
	query := s.sq.
		Select("open_time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.And{
			squirrel.Eq{"pair": pair},
			squirrel.Eq{"interval": string(interval)},
		}).
		OrderBy("open_time ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"open_time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.Lt{"open_time": end.Unwrap()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build series query", err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read stored series", err)
	}
	defer rows.Close()

	series := types.Series{Pair: pair, Interval: interval}

	for rows.Next() {
		var (
			openTime                     int64
			open, high, low, close_, vol float64
		)

		if err := rows.Scan(&openTime, &open, &high, &low, &close_, &vol); err != nil {
			return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan stored bar", err)
		}

		series.Bars = append(series.Bars, types.Bar{
			OpenTime: openTime,
			Open:     decimal.NewFromFloat(open),
			High:     decimal.NewFromFloat(high),
			Low:      decimal.NewFromFloat(low),
			Close:    decimal.NewFromFloat(close_),
			Volume:   decimal.NewFromFloat(vol),
		})
	}

	if err := rows.Err(); err != nil {
		return types.Series{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate stored series", err)
	}

	return series, nil
}

// LastOpenTime returns the newest stored open time for pair at interval, or
// None when nothing is stored. Callers use it as the start of an extending
// fetch.
func (s *DuckDBStore) LastOpenTime(pair string, interval types.Interval) (optional.Option[int64], error) {
	query := s.sq.
		Select("MAX(open_time)").
		From("candles").
		Where(squirrel.And{
			squirrel.Eq{"pair": pair},
			squirrel.Eq{"interval": string(interval)},
		})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return optional.None[int64](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build last-open-time query", err)
	}

	var last sql.NullInt64
	if err := s.db.QueryRow(sqlStr, args...).Scan(&last); err != nil {
		return optional.None[int64](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to read last open time", err)
	}

	if !last.Valid {
		return optional.None[int64](), nil
	}

	return optional.Some(last.Int64), nil
}

// Close releases the database connection.
func (s *DuckDBStore) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to close store", err)
	}

	return nil
}

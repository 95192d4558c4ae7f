package store

import (
	"path/filepath"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/candles/writer"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	parquetPath string
	store       *DuckDBStore
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (s *DuckDBStoreTestSuite) SetupTest() {
	s.parquetPath = filepath.Join(s.T().TempDir(), "candles.parquet")

	// Produce a fixture export through the writer: 10 one-minute bars.
	w := writer.NewDuckDBWriter(s.parquetPath, "BTC-USD", types.Interval1m)
	s.Require().NoError(w.Initialize())

	for i := int64(0); i < 10; i++ {
		s.Require().NoError(w.Write(types.Bar{
			OpenTime: i * 60,
			Open:     decimal.NewFromInt(100),
			High:     decimal.NewFromInt(110),
			Low:      decimal.NewFromInt(90),
			Close:    decimal.NewFromInt(100 + i),
			Volume:   decimal.NewFromInt(1),
		}))
	}

	_, err := w.Finalize()
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	s.store, err = NewDuckDBStore(nil)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Initialize(s.parquetPath))
}

func (s *DuckDBStoreTestSuite) TearDownTest() {
	s.store.Close()
}

func (s *DuckDBStoreTestSuite) TestCountAll() {
	count, err := s.store.Count(optional.None[int64](), optional.None[int64]())
	s.Require().NoError(err)
	s.Equal(10, count)
}

func (s *DuckDBStoreTestSuite) TestCountBounded() {
	// [120, 360) covers open times 120, 180, 240, 300.
	count, err := s.store.Count(optional.Some[int64](120), optional.Some[int64](360))
	s.Require().NoError(err)
	s.Equal(4, count)
}

func (s *DuckDBStoreTestSuite) TestReadSeries() {
	series, err := s.store.ReadSeries("BTC-USD", types.Interval1m, optional.None[int64](), optional.None[int64]())
	s.Require().NoError(err)

	s.Equal("BTC-USD", series.Pair)
	s.Equal(types.Interval1m, series.Interval)
	s.Require().Equal(10, series.Len())
	s.Equal(int64(0), series.Bars[0].OpenTime)
	s.Equal(int64(540), series.Bars[9].OpenTime)
	s.True(series.Bars[9].Close.Equal(decimal.NewFromInt(109)))
}

func (s *DuckDBStoreTestSuite) TestReadSeriesBounded() {
	series, err := s.store.ReadSeries("BTC-USD", types.Interval1m, optional.Some[int64](120), optional.Some[int64](240))
	s.Require().NoError(err)

	s.Require().Equal(2, series.Len())
	s.Equal(int64(120), series.Bars[0].OpenTime)
	s.Equal(int64(180), series.Bars[1].OpenTime)
}

func (s *DuckDBStoreTestSuite) TestReadSeriesUnknownPair() {
	series, err := s.store.ReadSeries("ETH-USD", types.Interval1m, optional.None[int64](), optional.None[int64]())
	s.Require().NoError(err)
	s.True(series.Empty())
}

func (s *DuckDBStoreTestSuite) TestLastOpenTime() {
	last, err := s.store.LastOpenTime("BTC-USD", types.Interval1m)
	s.Require().NoError(err)
	s.Require().True(last.IsSome())
	s.Equal(int64(540), last.Unwrap())
}

func (s *DuckDBStoreTestSuite) TestLastOpenTimeEmpty() {
	last, err := s.store.LastOpenTime("ETH-USD", types.Interval1m)
	s.Require().NoError(err)
	s.True(last.IsNone())
}

func (s *DuckDBStoreTestSuite) TestReinitializeReplacesView() {
	otherPath := filepath.Join(s.T().TempDir(), "other.parquet")

	w := writer.NewDuckDBWriter(otherPath, "ETH-USD", types.Interval1h)
	s.Require().NoError(w.Initialize())
	s.Require().NoError(w.Write(types.Bar{
		OpenTime: 3600,
		Open:     decimal.NewFromInt(10),
		High:     decimal.NewFromInt(11),
		Low:      decimal.NewFromInt(9),
		Close:    decimal.NewFromInt(10),
		Volume:   decimal.NewFromInt(5),
	}))

	_, err := w.Finalize()
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	s.Require().NoError(s.store.Initialize(otherPath))

	count, err := s.store.Count(optional.None[int64](), optional.None[int64]())
	s.Require().NoError(err)
	s.Equal(1, count)
}

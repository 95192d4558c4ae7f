package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	outputPath string
	writer     SeriesWriter
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (s *DuckDBWriterTestSuite) SetupTest() {
	s.outputPath = filepath.Join(s.T().TempDir(), "candles.parquet")
	s.writer = NewDuckDBWriter(s.outputPath, "BTC-USD", types.Interval1m)
}

func (s *DuckDBWriterTestSuite) TearDownTest() {
	s.writer.Close()
}

func (s *DuckDBWriterTestSuite) TestWriteAndFinalizeProducesParquet() {
	s.Require().NoError(s.writer.Initialize())

	for i := int64(0); i < 5; i++ {
		s.Require().NoError(s.writer.Write(testBar(i*60, "105.5")))
	}

	path, err := s.writer.Finalize()
	s.Require().NoError(err)
	s.Equal(s.outputPath, path)
	s.Require().NoError(s.writer.Close())

	// Read the exported file back through an independent connection.
	db, err := sql.Open("duckdb", ":memory:")
	s.Require().NoError(err)
	defer db.Close()

	var count int
	row := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM read_parquet('%s')`, s.outputPath))
	s.Require().NoError(row.Scan(&count))
	s.Equal(5, count)

	var pair, interval string

	var openTime int64

	row = db.QueryRow(fmt.Sprintf(`SELECT pair, interval, open_time FROM read_parquet('%s') ORDER BY open_time LIMIT 1`, s.outputPath))
	s.Require().NoError(row.Scan(&pair, &interval, &openTime))
	s.Equal("BTC-USD", pair)
	s.Equal("1m", interval)
	s.Equal(int64(0), openTime)
}

func (s *DuckDBWriterTestSuite) TestWriteBeforeInitializeFails() {
	err := s.writer.Write(testBar(0, "1"))
	s.Require().Error(err)
}

func (s *DuckDBWriterTestSuite) TestFinalizeTwiceFails() {
	s.Require().NoError(s.writer.Initialize())
	s.Require().NoError(s.writer.Write(testBar(0, "1")))

	_, err := s.writer.Finalize()
	s.Require().NoError(err)

	_, err = s.writer.Finalize()
	s.Require().Error(err)
}

func (s *DuckDBWriterTestSuite) TestCloseWithoutFinalizeDiscardsRows() {
	s.Require().NoError(s.writer.Initialize())
	s.Require().NoError(s.writer.Write(testBar(0, "1")))
	s.Require().NoError(s.writer.Close())

	// Nothing was exported.
	s.NoFileExists(s.outputPath)
}

func (s *DuckDBWriterTestSuite) TestGetOutputPath() {
	s.Equal(s.outputPath, s.writer.GetOutputPath())
}

package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

type CSVWriterTestSuite struct {
	suite.Suite
	outputPath string
	writer     SeriesWriter
}

func TestCSVWriterSuite(t *testing.T) {
	suite.Run(t, new(CSVWriterTestSuite))
}

func (s *CSVWriterTestSuite) SetupTest() {
	s.outputPath = filepath.Join(s.T().TempDir(), "candles.csv")
	s.writer = NewCSVWriter(s.outputPath, "BTC-USD", types.Interval1m)
}

func (s *CSVWriterTestSuite) TearDownTest() {
	s.writer.Close()
}

func testBar(openTime int64, close string) types.Bar {
	return types.Bar{
		OpenTime: openTime,
		Open:     decimal.RequireFromString("100.5"),
		High:     decimal.RequireFromString("110.25"),
		Low:      decimal.RequireFromString("90.75"),
		Close:    decimal.RequireFromString(close),
		Volume:   decimal.RequireFromString("42.125"),
	}
}

func (s *CSVWriterTestSuite) TestWritesHeaderAndRows() {
	s.Require().NoError(s.writer.Initialize())
	s.Require().NoError(s.writer.Write(testBar(0, "105.5")))
	s.Require().NoError(s.writer.Write(testBar(60, "106")))

	path, err := s.writer.Finalize()
	s.Require().NoError(err)
	s.Equal(s.outputPath, path)
	s.Require().NoError(s.writer.Close())

	file, err := os.Open(s.outputPath)
	s.Require().NoError(err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 3)

	s.Equal([]string{"pair", "interval", "open_time", "open", "high", "low", "close", "volume"}, rows[0])
	s.Equal([]string{"BTC-USD", "1m", "0", "100.5", "110.25", "90.75", "105.5", "42.125"}, rows[1])
	s.Equal("106", rows[2][6], "decimal values survive without float drift")
}

func (s *CSVWriterTestSuite) TestWriteBeforeInitializeFails() {
	err := s.writer.Write(testBar(0, "1"))
	s.Require().Error(err)
}

func (s *CSVWriterTestSuite) TestGetOutputPath() {
	s.Equal(s.outputPath, s.writer.GetOutputPath())
}

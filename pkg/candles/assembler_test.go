package candles

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

type AssemblerTestSuite struct {
	suite.Suite
	assembler *Assembler
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}

func (s *AssemblerTestSuite) SetupTest() {
	s.assembler = NewAssembler(nil)
}

func bar(openTime int64, close float64) types.Bar {
	return types.Bar{
		OpenTime: openTime,
		Open:     decimal.NewFromInt(100),
		High:     decimal.NewFromInt(110),
		Low:      decimal.NewFromInt(90),
		Close:    decimal.NewFromFloat(close),
		Volume:   decimal.NewFromInt(1),
	}
}

func (s *AssemblerTestSuite) TestSortsOutOfOrderBars() {
	series, gaps, duplicates, err := s.assembler.Assemble("BTC-USD", types.Interval1m, []types.Bar{
		bar(120, 1), bar(0, 2), bar(60, 3),
	})
	s.Require().NoError(err)
	s.Empty(gaps)
	s.Zero(duplicates)

	s.Require().Equal(3, series.Len())
	s.Equal(int64(0), series.Bars[0].OpenTime)
	s.Equal(int64(60), series.Bars[1].OpenTime)
	s.Equal(int64(120), series.Bars[2].OpenTime)
}

func (s *AssemblerTestSuite) TestLaterReceivedDuplicateWins() {
	series, _, duplicates, err := s.assembler.Assemble("BTC-USD", types.Interval1m, []types.Bar{
		bar(0, 1),
		bar(60, 100),
		bar(60, 200), // revision of the same period, received later
	})
	s.Require().NoError(err)
	s.Equal(1, duplicates)

	s.Require().Equal(2, series.Len())
	s.True(series.Bars[1].Close.Equal(decimal.NewFromInt(200)))
}

func (s *AssemblerTestSuite) TestReportsSingleGap() {
	// t=0, 60, 240 at 1m: bars for 120 and 180 are missing.
	series, gaps, _, err := s.assembler.Assemble("BTC-USD", types.Interval1m, []types.Bar{
		bar(0, 1), bar(60, 2), bar(240, 3),
	})
	s.Require().NoError(err)
	s.Equal(3, series.Len())

	s.Require().Len(gaps, 1)
	s.Equal(int64(120), gaps[0].GapStart)
	s.Equal(int64(180), gaps[0].GapEnd)
	s.Equal(int64(2), gaps[0].MissingCount)
	s.Equal(int64(2), gaps.TotalMissing())
}

func (s *AssemblerTestSuite) TestReportsMultipleGaps() {
	series, gaps, _, err := s.assembler.Assemble("BTC-USD", types.Interval1m, []types.Bar{
		bar(0, 1), bar(120, 2), bar(300, 3),
	})
	s.Require().NoError(err)
	s.Equal(3, series.Len())

	s.Require().Len(gaps, 2)
	s.Equal(int64(60), gaps[0].GapStart)
	s.Equal(int64(60), gaps[0].GapEnd)
	s.Equal(int64(180), gaps[1].GapStart)
	s.Equal(int64(240), gaps[1].GapEnd)
	s.Equal(int64(3), gaps.TotalMissing())
}

func (s *AssemblerTestSuite) TestContiguousSeriesHasNoGaps() {
	_, gaps, _, err := s.assembler.Assemble("BTC-USD", types.Interval1m, []types.Bar{
		bar(0, 1), bar(60, 2), bar(120, 3), bar(180, 4),
	})
	s.Require().NoError(err)
	s.Empty(gaps)
}

func (s *AssemblerTestSuite) TestEmptyInput() {
	series, gaps, duplicates, err := s.assembler.Assemble("BTC-USD", types.Interval1m, nil)
	s.Require().NoError(err)
	s.True(series.Empty())
	s.Empty(gaps)
	s.Zero(duplicates)
}

func (s *AssemblerTestSuite) TestIdempotent() {
	input := []types.Bar{bar(240, 1), bar(0, 2), bar(0, 3), bar(120, 4)}

	first, firstGaps, _, err := s.assembler.Assemble("BTC-USD", types.Interval1m, input)
	s.Require().NoError(err)

	second, secondGaps, duplicates, err := s.assembler.Assemble("BTC-USD", types.Interval1m, first.Bars)
	s.Require().NoError(err)

	s.Zero(duplicates)
	s.Equal(first.Bars, second.Bars)
	s.Equal(firstGaps, secondGaps)
}

func (s *AssemblerTestSuite) TestDoesNotMutateInput() {
	input := []types.Bar{bar(120, 1), bar(0, 2)}

	_, _, _, err := s.assembler.Assemble("BTC-USD", types.Interval1m, input)
	s.Require().NoError(err)

	s.Equal(int64(120), input[0].OpenTime)
	s.Equal(int64(0), input[1].OpenTime)
}

func (s *AssemblerTestSuite) TestSpliceFreshBarsWin() {
	stored := types.Series{
		Pair:     "BTC-USD",
		Interval: types.Interval1m,
		Bars:     []types.Bar{bar(0, 1), bar(60, 2)},
	}
	fresh := types.Series{
		Pair:     "BTC-USD",
		Interval: types.Interval1m,
		Bars:     []types.Bar{bar(60, 20), bar(120, 3)},
	}

	merged, gaps, duplicates, err := s.assembler.Splice(stored, fresh)
	s.Require().NoError(err)
	s.Empty(gaps)
	s.Equal(1, duplicates)

	s.Require().Equal(3, merged.Len())
	s.True(merged.Bars[1].Close.Equal(decimal.NewFromInt(20)), "the re-fetched revision replaces the stored bar")
}

func (s *AssemblerTestSuite) TestSpliceMismatchedSeries() {
	stored := types.Series{Pair: "BTC-USD", Interval: types.Interval1m}
	fresh := types.Series{Pair: "BTC-USD", Interval: types.Interval5m}

	_, _, _, err := s.assembler.Splice(stored, fresh)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeSeriesCorrupted))
}

func (s *AssemblerTestSuite) TestFractionalSpacingIsCorruption() {
	// 1h cadence with a bar 30 minutes off the grid between two valid ones.
	_, _, _, err := s.assembler.Assemble("BTC-USD", types.Interval1h, []types.Bar{
		bar(0, 1), bar(1800, 2), bar(3600, 3),
	})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeSeriesCorrupted))
}

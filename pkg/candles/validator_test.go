package candles

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

type ValidatorTestSuite struct {
	suite.Suite
	validator *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorTestSuite))
}

func (s *ValidatorTestSuite) SetupTest() {
	s.validator = NewValidator(types.Interval1m)
}

func rawBar(openTime int64, open, high, low, close, volume float64) types.RawBar {
	return types.RawBar{
		OpenTime: openTime,
		Open:     decimal.NewFromFloat(open),
		High:     decimal.NewFromFloat(high),
		Low:      decimal.NewFromFloat(low),
		Close:    decimal.NewFromFloat(close),
		Volume:   decimal.NewFromFloat(volume),
	}
}

func (s *ValidatorTestSuite) TestAcceptsWellFormedBar() {
	bar, rejection := s.validator.Validate(rawBar(1200, 100, 110, 90, 105, 12.5))
	s.Require().Nil(rejection)
	s.Equal(int64(1200), bar.OpenTime)
	s.True(bar.Close.Equal(decimal.NewFromFloat(105)))
}

func (s *ValidatorTestSuite) TestRejectsMisalignedTimestamp() {
	_, rejection := s.validator.Validate(rawBar(1230, 100, 110, 90, 105, 1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectMisalignedTimestamp, rejection.Reason)
}

func (s *ValidatorTestSuite) TestRejectsHighBelowOpen() {
	_, rejection := s.validator.Validate(rawBar(1200, 100, 99, 90, 95, 1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectInvalidOHLC, rejection.Reason)
}

func (s *ValidatorTestSuite) TestRejectsLowAboveClose() {
	_, rejection := s.validator.Validate(rawBar(1200, 100, 110, 96, 95, 1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectInvalidOHLC, rejection.Reason)
}

func (s *ValidatorTestSuite) TestRejectsNonPositivePrice() {
	_, rejection := s.validator.Validate(rawBar(1200, 0, 110, 0, 105, 1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectInvalidOHLC, rejection.Reason)
}

func (s *ValidatorTestSuite) TestRejectsNegativeVolume() {
	_, rejection := s.validator.Validate(rawBar(1200, 100, 110, 90, 105, -1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectNegativeVolume, rejection.Reason)
}

func (s *ValidatorTestSuite) TestAcceptsZeroVolume() {
	// Quiet periods legitimately trade nothing.
	_, rejection := s.validator.Validate(rawBar(1200, 100, 100, 100, 100, 0))
	s.Nil(rejection)
}

func (s *ValidatorTestSuite) TestAcceptsFlatBar() {
	_, rejection := s.validator.Validate(rawBar(1200, 100, 100, 100, 100, 3))
	s.Nil(rejection)
}

func (s *ValidatorTestSuite) TestMisalignmentCheckedBeforeOHLC() {
	// A bar failing both checks reports the timestamp problem.
	_, rejection := s.validator.Validate(rawBar(1230, 100, 99, 90, 95, -1))
	s.Require().NotNil(rejection)
	s.Equal(types.RejectMisalignedTimestamp, rejection.Reason)
}

func (s *ValidatorTestSuite) TestValidateAllSplitsBatch() {
	raw := []types.RawBar{
		rawBar(1200, 100, 110, 90, 105, 1),
		rawBar(1230, 100, 110, 90, 105, 1), // misaligned
		rawBar(1260, 100, 110, 90, 105, 1),
		rawBar(1320, 100, 99, 90, 95, 1), // broken OHLC
	}

	bars, rejections := s.validator.ValidateAll(raw)
	s.Len(bars, 2)
	s.Require().Len(rejections, 2)
	s.Equal(types.RejectMisalignedTimestamp, rejections[0].Reason)
	s.Equal(types.RejectInvalidOHLC, rejections[1].Reason)
}

package types

import (
	"github.com/shopspring/decimal"
)

// RawBar is a single candlestick exactly as provided by an exchange,
// before any validation has run.
type RawBar struct {
	// OpenTime is the bar's opening timestamp in epoch seconds.
	OpenTime int64
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// Bar is a validated candlestick. Invariants:
// low <= min(open, close) <= max(open, close) <= high, volume >= 0,
// and OpenTime is aligned to the bar's interval boundary.
type Bar struct {
	OpenTime int64           `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// Series is an ordered bar sequence for one (pair, interval).
// OpenTime values are strictly increasing with no duplicates; any cadence
// break between neighbors is recorded in the accompanying GapReport.
type Series struct {
	Pair     string   `json:"pair"`
	Interval Interval `json:"interval"`
	Bars     []Bar    `json:"bars"`
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Bars) }

// Empty reports whether the series holds no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Gap describes a run of missing bars between two present neighbors.
// GapStart and GapEnd are the open times of the first and last missing
// bars (inclusive on both ends).
type Gap struct {
	GapStart     int64 `json:"gap_start"`
	GapEnd       int64 `json:"gap_end"`
	MissingCount int64 `json:"missing_count"`
}

// GapReport is an ordered sequence of gaps, ascending by GapStart.
type GapReport []Gap

// TotalMissing returns the number of missing bars across all gaps.
func (r GapReport) TotalMissing() int64 {
	var total int64
	for _, g := range r {
		total += g.MissingCount
	}

	return total
}

// RejectReason identifies why a raw bar failed validation.
type RejectReason string

const (
	RejectMisalignedTimestamp RejectReason = "misaligned_timestamp"
	RejectInvalidOHLC         RejectReason = "invalid_ohlc"
	RejectNegativeVolume      RejectReason = "negative_volume"
)

// Rejection is a soft diagnostic for one raw bar dropped during validation.
// Rejections never abort a fetch; they ride back alongside the series.
type Rejection struct {
	Bar    RawBar       `json:"bar"`
	Reason RejectReason `json:"reason"`
}

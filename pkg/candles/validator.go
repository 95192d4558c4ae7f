package candles

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

// Validator screens raw bars for one interval. Checks run in order:
// timestamp alignment, OHLC relation, volume sign. A rejected bar is a
// diagnostic, never a fetch failure.
type Validator struct {
	interval types.Interval
}

// NewValidator returns a validator for bars at the given interval.
func NewValidator(interval types.Interval) *Validator {
	return &Validator{interval: interval}
}

// Validate checks one raw bar. On success the returned rejection is nil.
func (v *Validator) Validate(raw types.RawBar) (types.Bar, *types.Rejection) {
	if !v.interval.Aligned(raw.OpenTime) {
		return types.Bar{}, &types.Rejection{Bar: raw, Reason: types.RejectMisalignedTimestamp}
	}

	if !validOHLC(raw) {
		return types.Bar{}, &types.Rejection{Bar: raw, Reason: types.RejectInvalidOHLC}
	}

	if raw.Volume.IsNegative() {
		return types.Bar{}, &types.Rejection{Bar: raw, Reason: types.RejectNegativeVolume}
	}

	return types.Bar{
		OpenTime: raw.OpenTime,
		Open:     raw.Open,
		High:     raw.High,
		Low:      raw.Low,
		Close:    raw.Close,
		Volume:   raw.Volume,
	}, nil
}

// ValidateAll screens a batch, splitting it into accepted bars and rejections.
func (v *Validator) ValidateAll(raw []types.RawBar) ([]types.Bar, []types.Rejection) {
	bars := make([]types.Bar, 0, len(raw))

	var rejections []types.Rejection

	for _, r := range raw {
		bar, rejection := v.Validate(r)
		if rejection != nil {
			rejections = append(rejections, *rejection)
			continue
		}

		bars = append(bars, bar)
	}

	return bars, rejections
}

// validOHLC checks that all prices are positive and that
// low <= min(open, close) <= max(open, close) <= high.
func validOHLC(b types.RawBar) bool {
	if !b.Open.IsPositive() || !b.High.IsPositive() || !b.Low.IsPositive() || !b.Close.IsPositive() {
		return false
	}

	lowest := decimal.Min(b.Open, b.Close)
	highest := decimal.Max(b.Open, b.Close)

	return b.Low.LessThanOrEqual(lowest) && highest.LessThanOrEqual(b.High)
}

package candles

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// Resample derives a coarser series from fine. The target interval must be an
// exact integer multiple of the fine series' interval.
//
// Each target period folds its fine bars as open = first open, close = last
// close, high = max of highs, low = min of lows, volume = sum of volumes.
// A period is only emitted when every fine slot it covers is present; an
// incomplete period (trailing or gapped) is withheld and reported as a gap in
// the returned report rather than emitted as a misleading under-counted bar.
func Resample(fine types.Series, target types.Interval) (types.Series, types.GapReport, error) {
	source := fine.Interval

	if !target.DerivableFrom(source) {
		return types.Series{}, nil, errors.Newf(errors.ErrCodeUnsupportedResampling,
			"cannot derive %s from %s: target duration must be a strict integer multiple of the source",
			target, source)
	}

	out := types.Series{
		Pair:     fine.Pair,
		Interval: target,
	}

	if fine.Empty() {
		return out, nil, nil
	}

	ratio := target.Seconds() / source.Seconds()
	sourceStep := source.Seconds()
	targetStep := target.Seconds()

	// Bucket fine bars by target boundary. The fine series is already sorted
	// and duplicate-free, so buckets arrive in order.
	buckets := make(map[int64][]types.Bar)
	for _, b := range fine.Bars {
		key := target.AlignDown(b.OpenTime)
		buckets[key] = append(buckets[key], b)
	}

	first := target.AlignDown(fine.Bars[0].OpenTime)
	last := target.AlignDown(fine.Bars[len(fine.Bars)-1].OpenTime)

	var gaps types.GapReport

	for boundary := first; boundary <= last; boundary += targetStep {
		group := buckets[boundary]
		if !groupComplete(group, boundary, ratio, sourceStep) {
			if n := len(gaps); n > 0 && gaps[n-1].GapEnd+targetStep == boundary {
				gaps[n-1].GapEnd = boundary
				gaps[n-1].MissingCount++
			} else {
				gaps = append(gaps, types.Gap{
					GapStart:     boundary,
					GapEnd:       boundary,
					MissingCount: 1,
				})
			}

			continue
		}

		out.Bars = append(out.Bars, foldGroup(boundary, group))
	}

	return out, gaps, nil
}

// groupComplete reports whether group covers every fine slot of its period.
// Bars are sorted and unique, so count plus bound checks suffice.
func groupComplete(group []types.Bar, boundary, ratio, sourceStep int64) bool {
	if int64(len(group)) != ratio {
		return false
	}

	return group[0].OpenTime == boundary &&
		group[len(group)-1].OpenTime == boundary+(ratio-1)*sourceStep
}

// foldGroup collapses one complete group of fine bars into a target bar.
func foldGroup(boundary int64, group []types.Bar) types.Bar {
	bar := types.Bar{
		OpenTime: boundary,
		Open:     group[0].Open,
		High:     group[0].High,
		Low:      group[0].Low,
		Close:    group[len(group)-1].Close,
		Volume:   decimal.Zero,
	}

	for _, b := range group {
		bar.High = decimal.Max(bar.High, b.High)
		bar.Low = decimal.Min(bar.Low, b.Low)
		bar.Volume = bar.Volume.Add(b.Volume)
	}

	return bar
}

package types

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// Interval is an enumerated candlestick granularity.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval1d  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval1d:  24 * time.Hour,
}

// ParseInterval returns the Interval for a string like "5m" or "1h".
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if _, ok := intervalDurations[iv]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", s)
	}

	return iv, nil
}

// SupportedIntervals returns all intervals ordered from finest to coarsest.
func SupportedIntervals() []Interval {
	intervals := make([]Interval, 0, len(intervalDurations))
	for iv := range intervalDurations {
		intervals = append(intervals, iv)
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervalDurations[intervals[i]] < intervalDurations[intervals[j]]
	})

	return intervals
}

// Duration returns the interval length. Zero for unknown intervals.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// Seconds returns the interval length in seconds.
func (i Interval) Seconds() int64 {
	return int64(intervalDurations[i] / time.Second)
}

// Valid reports whether the interval is one of the supported granularities.
func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Aligned reports whether ts (epoch seconds) falls exactly on an interval boundary.
// Boundaries are anchored at the Unix epoch, which places daily boundaries at 00:00 UTC.
func (i Interval) Aligned(ts int64) bool {
	step := i.Seconds()
	if step <= 0 {
		return false
	}

	return ts%step == 0
}

// AlignDown returns the largest interval boundary that is <= ts.
func (i Interval) AlignDown(ts int64) int64 {
	step := i.Seconds()
	if step <= 0 {
		return ts
	}

	rem := ts % step
	if rem < 0 {
		rem += step
	}

	return ts - rem
}

// DerivableFrom reports whether this interval can be resampled from finer.
// Only a strictly finer interval whose duration evenly divides this one qualifies.
func (i Interval) DerivableFrom(finer Interval) bool {
	target := i.Seconds()
	source := finer.Seconds()

	if target <= 0 || source <= 0 {
		return false
	}

	return source < target && target%source == 0
}

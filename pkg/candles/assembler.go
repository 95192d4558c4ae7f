package candles

import (
	"sort"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-candles/internal/logger"
	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// Assembler turns validated bars into a canonical series: sorted ascending,
// de-duplicated by open time, with every cadence break recorded as a gap.
type Assembler struct {
	logger *logger.Logger
}

// NewAssembler returns an assembler logging through log.
func NewAssembler(log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Assembler{logger: log}
}

// Assemble sorts bars, resolves duplicates (the later-received bar wins, since
// exchanges resend revised bars for the still-forming period), and scans for
// gaps against the interval cadence. Returns the series, its gap report, and
// the number of duplicates discarded.
func (a *Assembler) Assemble(pair string, interval types.Interval, bars []types.Bar) (types.Series, types.GapReport, int, error) {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)

	// Stable sort preserves arrival order within equal open times, so the
	// de-dup pass below keeps the latest-received revision.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime < sorted[j].OpenTime
	})

	deduped := make([]types.Bar, 0, len(sorted))
	duplicates := 0

	for _, b := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].OpenTime == b.OpenTime {
			deduped[n-1] = b
			duplicates++

			continue
		}

		deduped = append(deduped, b)
	}

	if duplicates > 0 {
		a.logger.Info("discarded duplicate bars",
			zap.String("pair", pair),
			zap.String("interval", string(interval)),
			zap.Int("count", duplicates),
		)
	}

	step := interval.Seconds()

	var gaps types.GapReport

	for i := 1; i < len(deduped); i++ {
		diff := deduped[i].OpenTime - deduped[i-1].OpenTime

		switch {
		case diff == step:
			// contiguous
		case diff > step && diff%step == 0:
			gaps = append(gaps, types.Gap{
				GapStart:     deduped[i-1].OpenTime + step,
				GapEnd:       deduped[i].OpenTime - step,
				MissingCount: diff/step - 1,
			})
		default:
			// Validation already enforced boundary alignment, so spacing that
			// is not a positive multiple of the interval signals a defect in
			// the pipeline, not a data condition.
			return types.Series{}, nil, 0, errors.Newf(errors.ErrCodeSeriesCorrupted,
				"bars at %d and %d are %ds apart, not a positive multiple of %ds",
				deduped[i-1].OpenTime, deduped[i].OpenTime, diff, step)
		}
	}

	series := types.Series{
		Pair:     pair,
		Interval: interval,
		Bars:     deduped,
	}

	return series, gaps, duplicates, nil
}

// Splice merges freshly fetched bars into a stored series. Where both cover
// the same period the fresh bar wins, so re-fetching a span that included a
// still-forming bar replaces it with the final revision.
func (a *Assembler) Splice(stored, fresh types.Series) (types.Series, types.GapReport, int, error) {
	if stored.Pair != fresh.Pair || stored.Interval != fresh.Interval {
		return types.Series{}, nil, 0, errors.Newf(errors.ErrCodeSeriesCorrupted,
			"cannot splice %s/%s into %s/%s",
			fresh.Pair, fresh.Interval, stored.Pair, stored.Interval)
	}

	merged := make([]types.Bar, 0, len(stored.Bars)+len(fresh.Bars))
	merged = append(merged, stored.Bars...)
	merged = append(merged, fresh.Bars...)

	return a.Assemble(stored.Pair, stored.Interval, merged)
}

package candles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-candles/internal/logger"
	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// FetchFailure reports a terminal pagination failure with enough context for
// the caller to resume: restart the fetch with window start set to ResumeFrom.
type FetchFailure struct {
	Err         *errors.Error
	Pair        string
	Interval    types.Interval
	WindowStart int64 // sub-window in progress when the failure became terminal
	WindowEnd   int64
	Attempts    int
	ResumeFrom  int64 // everything before this point was retrieved successfully
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("%v (pair=%s interval=%s sub-window=[%d,%d) attempts=%d resume_from=%d)",
		f.Err, f.Pair, f.Interval, f.WindowStart, f.WindowEnd, f.Attempts, f.ResumeFrom)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// OnPageProgress is invoked after each sub-window is fully retrieved.
type OnPageProgress func(completed int, total int)

// PaginatorConfig bounds the retry behaviour of a Paginator.
type PaginatorConfig struct {
	// MaxRetries is the number of additional attempts per sub-window beyond
	// the first call.
	MaxRetries int
	// PageSize is the number of bars each source call may cover. Defaults to
	// the source's MaxPageSize.
	PageSize int
	Backoff  Backoff
}

// Paginator drives repeated RawBarSource calls to cover an arbitrary window.
// Sub-window boundaries are computed from the interval duration and page size
// alone; no server-returned cursors are used. A fetch is all-or-nothing:
// partial pages retrieved before a terminal failure are discarded.
type Paginator struct {
	source  RawBarSource
	limiter *AccountLimiter
	clock   Clock
	cfg     PaginatorConfig
	logger  *logger.Logger
}

// NewPaginator wires a paginator over source, spacing its calls through
// limiter. A nil limiter disables rate spacing.
func NewPaginator(source RawBarSource, limiter *AccountLimiter, cfg PaginatorConfig, clock Clock, log *logger.Logger) *Paginator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = source.MaxPageSize()
	}

	if limiter == nil {
		limiter = NewAccountLimiter(0)
	}

	if clock == nil {
		clock = NewSystemClock()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Paginator{
		source:  source,
		limiter: limiter,
		clock:   clock,
		cfg:     cfg,
		logger:  log,
	}
}

// Fetch retrieves all raw bars for pair over [start, end) at interval,
// splitting the window into page-sized sub-windows and retrying each one
// under the configured backoff policy.
func (p *Paginator) Fetch(ctx context.Context, pair string, interval types.Interval, start, end int64, onProgress OnPageProgress) ([]types.RawBar, error) {
	if start >= end {
		return nil, nil
	}

	step := interval.Seconds()
	span := step * int64(p.cfg.PageSize)
	total := int((end - start + span - 1) / span)

	raw := make([]types.RawBar, 0, (end-start)/step)
	completed := 0

	for ws := start; ws < end; ws += span {
		we := ws + span
		if we > end {
			we = end
		}

		bars, err := p.fetchPage(ctx, pair, interval, ws, we)
		if err != nil {
			return nil, err
		}

		raw = append(raw, bars...)
		completed++

		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	return raw, nil
}

// fetchPage retrieves one sub-window, retrying up to MaxRetries times.
func (p *Paginator) fetchPage(ctx context.Context, pair string, interval types.Interval, ws, we int64) ([]types.RawBar, error) {
	var lastErr error

	rateLimited := false

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if wait := p.limiter.Reserve(p.clock.Now()); wait > 0 {
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCancelled, "fetch cancelled while waiting for rate-limit slot", err)
			}
		}

		bars, err := p.source.FetchRaw(ctx, pair, interval, ws, we)
		if err == nil {
			return bars, nil
		}

		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeCancelled, "fetch cancelled", err)
		}

		lastErr = err
		rateLimited = errors.HasCode(err, errors.ErrCodeRateLimited)

		if attempt == p.cfg.MaxRetries {
			break
		}

		delay := p.cfg.Backoff.Delay(attempt)
		p.logger.Warn("source call failed, retrying sub-window",
			zap.String("pair", pair),
			zap.String("interval", string(interval)),
			zap.Int64("window_start", ws),
			zap.Int64("window_end", we),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if err := p.clock.Sleep(ctx, delay); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCancelled, "fetch cancelled during backoff", err)
		}
	}

	code := errors.ErrCodeSourceUnavailable
	message := "source unavailable after retries"

	if rateLimited {
		code = errors.ErrCodeRateLimitExceeded
		message = "rate limit retries exhausted"
	}

	return nil, &FetchFailure{
		Err:         errors.Wrap(code, message, lastErr),
		Pair:        pair,
		Interval:    interval,
		WindowStart: ws,
		WindowEnd:   we,
		Attempts:    p.cfg.MaxRetries + 1,
		ResumeFrom:  ws,
	}
}

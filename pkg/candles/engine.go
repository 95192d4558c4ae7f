package candles

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-candles/internal/logger"
	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// Config tunes the engine's pagination, retry, and guard behaviour.
type Config struct {
	// MaxRetries bounds additional attempts per sub-window beyond the first call.
	MaxRetries int `json:"maxRetries" jsonschema:"title=Max Retries,description=Retry attempts per sub-window beyond the first call" validate:"gte=0"`
	// BackoffBase is the first retry delay; subsequent delays double up to BackoffCap.
	BackoffBase time.Duration `json:"backoffBase" jsonschema:"title=Backoff Base,description=First retry delay in nanoseconds"`
	BackoffCap  time.Duration `json:"backoffCap" jsonschema:"title=Backoff Cap,description=Upper bound on any retry delay in nanoseconds"`
	// BackoffJitter is the 0..1 fraction of each delay that is randomized.
	BackoffJitter float64 `json:"backoffJitter" jsonschema:"title=Backoff Jitter,description=Fraction of each delay randomized (0 to 1)" validate:"gte=0,lte=1"`
	// PageSizeOverride caps bars per source call below the source's own maximum.
	PageSizeOverride optional.Option[int] `json:"pageSizeOverride,omitempty" jsonschema:"title=Page Size Override"`
	// MaxBars rejects requests that would fetch more than this many bars.
	// Zero disables the guard.
	MaxBars int64 `json:"maxBars" jsonschema:"title=Max Bars,description=Reject requests larger than this many bars (0 = unlimited)" validate:"gte=0"`
	// MinRequestSpacing is the minimum gap between calls against the account.
	MinRequestSpacing time.Duration `json:"minRequestSpacing" jsonschema:"title=Min Request Spacing"`
	// ValidatePair checks the requested pair against the exchange's product
	// list before fetching, when the source supports listing.
	ValidatePair bool `json:"validatePair" jsonschema:"title=Validate Pair"`
}

// DefaultConfig returns the engine defaults: 5 retries, 1s base backoff
// capped at 30s with 20% jitter, no bar guard, no request spacing.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    5,
		BackoffBase:   time.Second,
		BackoffCap:    30 * time.Second,
		BackoffJitter: 0.2,
	}
}

// Result is the output of one engine call: the canonical series, its gap
// report, and the soft diagnostics accumulated along the way.
type Result struct {
	Series         types.Series
	Gaps           types.GapReport
	Rejections     []types.Rejection
	DuplicateCount int
}

// phase names the stages of one fetch call, used for logging and failure context.
type phase string

const (
	phaseRequested  phase = "requested"
	phaseFetching   phase = "fetching"
	phaseValidating phase = "validating"
	phaseAssembling phase = "assembling"
	phaseResampling phase = "resampling"
	phaseCompleted  phase = "completed"
	phaseFailed     phase = "failed"
)

// Engine is the sole entry point for candle consumers. It answers "give me
// validated, gap-annotated bars for pair P, interval I, window [start, end)",
// fetching the interval directly when the exchange serves it natively and
// resampling from the finest native divisor otherwise.
//
// Each call is a pure function of its request; the only state shared across
// calls is the account rate limiter.
type Engine struct {
	source    RawBarSource
	limiter   *AccountLimiter
	cfg       Config
	clock     Clock
	logger    *logger.Logger
	validate  *validator.Validate
	paginator *Paginator
	assembler *Assembler
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock substitutes the wall clock; tests use this to avoid real waits.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLimiter shares an externally owned account limiter, for callers running
// several engines against one exchange account.
func WithLimiter(l *AccountLimiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithLogger routes engine logging through log.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.logger = log }
}

// NewEngine validates cfg and wires an engine over source.
func NewEngine(source RawBarSource, cfg Config, opts ...Option) (*Engine, error) {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine configuration", err)
	}

	e := &Engine{
		source:   source,
		cfg:      cfg,
		clock:    NewSystemClock(),
		logger:   logger.NewNopLogger(),
		validate: validate,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.limiter == nil {
		e.limiter = NewAccountLimiter(cfg.MinRequestSpacing)
	}

	e.paginator = NewPaginator(source, e.limiter, PaginatorConfig{
		MaxRetries: cfg.MaxRetries,
		PageSize:   cfg.PageSizeOverride.TakeOr(source.MaxPageSize()),
		Backoff: Backoff{
			Base:   cfg.BackoffBase,
			Cap:    cfg.BackoffCap,
			Jitter: cfg.BackoffJitter,
		},
	}, e.clock, e.logger)

	e.assembler = NewAssembler(e.logger)

	return e, nil
}

// GetCandles fetches, validates, assembles, and (when needed) resamples bars
// for the request. It either fully succeeds, possibly with a non-empty gap
// report and diagnostics, or fully fails with a typed error; there is no
// silent partial success.
func (e *Engine) GetCandles(ctx context.Context, req FetchRequest) (Result, error) {
	return e.GetCandlesWithProgress(ctx, req, nil)
}

// GetCandlesWithProgress is GetCandles with a per-page progress callback.
func (e *Engine) GetCandlesWithProgress(ctx context.Context, req FetchRequest, onProgress OnPageProgress) (Result, error) {
	state := phaseRequested

	if err := e.validateRequest(ctx, req); err != nil {
		return Result{}, err
	}

	e.logger.Debug("request accepted",
		zap.String("pair", req.Pair),
		zap.String("interval", string(req.Interval)),
		zap.String("phase", string(state)),
	)

	// Align the window onto the interval grid. End is exclusive and aligned
	// down, so a still-forming final bar is never requested.
	start := req.Interval.AlignDown(req.Start)
	end := req.Interval.AlignDown(req.End)

	fetchInterval, needResample, err := e.planInterval(req.Interval)
	if err != nil {
		return Result{}, err
	}

	if e.cfg.MaxBars > 0 && end > start {
		if barCount := (end - start) / fetchInterval.Seconds(); barCount > e.cfg.MaxBars {
			return Result{}, errors.Newf(errors.ErrCodeTooManyBars,
				"request spans %d %s bars, above the configured limit of %d; shorten the window",
				barCount, fetchInterval, e.cfg.MaxBars)
		}
	}

	state = phaseFetching
	e.logger.Debug("fetching raw bars",
		zap.String("pair", req.Pair),
		zap.String("interval", string(fetchInterval)),
		zap.Bool("resample", needResample),
		zap.Int64("start", start),
		zap.Int64("end", end),
	)

	raw, err := e.paginator.Fetch(ctx, req.Pair, fetchInterval, start, end, onProgress)
	if err != nil {
		state = phaseFailed
		e.logger.Warn("fetch failed",
			zap.String("pair", req.Pair),
			zap.String("phase", string(state)),
			zap.Error(err),
		)

		return Result{}, err
	}

	state = phaseValidating
	bars, rejections := NewValidator(fetchInterval).ValidateAll(raw)

	e.logger.Debug("validated raw bars",
		zap.String("phase", string(state)),
		zap.Int("accepted", len(bars)),
		zap.Int("rejected", len(rejections)),
	)

	state = phaseAssembling

	series, gaps, duplicates, err := e.assembler.Assemble(req.Pair, fetchInterval, bars)
	if err != nil {
		e.logger.Warn("assembly failed", zap.String("phase", string(state)), zap.Error(err))

		return Result{}, err
	}

	if needResample {
		state = phaseResampling

		series, gaps, err = Resample(series, req.Interval)
		if err != nil {
			e.logger.Warn("resampling failed", zap.String("phase", string(state)), zap.Error(err))

			return Result{}, err
		}
	}

	state = phaseCompleted
	e.logger.Info("fetch completed",
		zap.String("pair", req.Pair),
		zap.String("interval", string(req.Interval)),
		zap.String("phase", string(state)),
		zap.Int("bars", series.Len()),
		zap.Int("gaps", len(gaps)),
		zap.Int("rejections", len(rejections)),
		zap.Int("duplicates", duplicates),
	)

	return Result{
		Series:         series,
		Gaps:           gaps,
		Rejections:     rejections,
		DuplicateCount: duplicates,
	}, nil
}

// validateRequest applies structural validation, interval support, and the
// optional pair check.
func (e *Engine) validateRequest(ctx context.Context, req FetchRequest) error {
	if err := e.validate.Struct(req); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid fetch request", err)
	}

	if !req.Interval.Valid() {
		return errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", req.Interval)
	}

	if e.cfg.ValidatePair {
		if lister, ok := e.source.(PairLister); ok {
			if err := e.checkPair(ctx, lister, req.Pair); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkPair verifies the pair exists on the exchange.
func (e *Engine) checkPair(ctx context.Context, lister PairLister, pair string) error {
	pairs, err := lister.ListPairs(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to list trading pairs", err)
	}

	for _, p := range pairs {
		if p.ID == pair {
			return nil
		}
	}

	return errors.Newf(errors.ErrCodeInvalidPair, "pair %s is not listed on %s", pair, e.source.Name())
}

// planInterval decides whether the requested interval is natively fetchable;
// if not, it selects the finest native interval that evenly divides it.
func (e *Engine) planInterval(target types.Interval) (types.Interval, bool, error) {
	native := e.source.NativeIntervals()

	for _, iv := range native {
		if iv == target {
			return target, false, nil
		}
	}

	var best types.Interval

	for _, iv := range native {
		if !target.DerivableFrom(iv) {
			continue
		}

		if best == "" || iv.Duration() < best.Duration() {
			best = iv
		}
	}

	if best == "" {
		return "", false, errors.Newf(errors.ErrCodeUnsupportedResampling,
			"%s serves no interval that evenly divides %s", e.source.Name(), target)
	}

	return best, true, nil
}

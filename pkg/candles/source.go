package candles

import (
	"context"
	"iter"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

// RawBarSource is the exchange-facing collaborator: it fetches raw,
// unvalidated bars for one pair over a half-open time window.
//
// FetchRaw must return bars whose open time falls within [start, end)
// (epoch seconds) at the given interval. Failures are reported through
// pkg/errors codes so the paginator can tell rate limiting
// (ErrCodeRateLimited) apart from transport trouble (ErrCodeSourceUnavailable,
// ErrCodeTimeout, ErrCodeMalformedResponse).
type RawBarSource interface {
	// Name identifies the exchange, e.g. "binance" or "coinbase".
	Name() string
	// NativeIntervals lists the granularities the exchange serves directly.
	NativeIntervals() []types.Interval
	// MaxPageSize is the largest number of bars one FetchRaw call may cover.
	MaxPageSize() int
	// FetchRaw fetches raw bars for pair over [start, end) at interval.
	FetchRaw(ctx context.Context, pair string, interval types.Interval, start, end int64) ([]types.RawBar, error)
}

// Pair describes one tradeable product on an exchange.
type Pair struct {
	ID            string `json:"id"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Status        string `json:"status"`
}

// PairLister is implemented by sources that can enumerate their tradeable
// pairs. The engine uses it to validate requested pairs when configured to.
type PairLister interface {
	ListPairs(ctx context.Context) ([]Pair, error)
}

// StreamingSource is implemented by sources that can serve live bars over a
// persistent connection. The iterator yields raw bars as periods close;
// cancel the context to stop streaming.
type StreamingSource interface {
	Stream(ctx context.Context, pair string, interval types.Interval) iter.Seq2[types.RawBar, error]
}

// FetchRequest asks for bars of one pair at one interval over [Start, End),
// both epoch seconds. End is exclusive; Start must not exceed End.
type FetchRequest struct {
	Pair     string         `json:"pair" validate:"required"`
	Interval types.Interval `json:"interval" validate:"required"`
	Start    int64          `json:"window_start" validate:"gte=0"`
	End      int64          `json:"window_end" validate:"gtefield=Start"`
}

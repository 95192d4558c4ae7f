package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// PolygonSource serves raw bars from Polygon.io aggregates. Polygon covers US
// equities rather than crypto pairs, but its aggregate bars carry the same
// OHLCV shape, so it plugs into the pipeline unchanged.
type PolygonSource struct {
	client *polygon.Client
}

// NewPolygonSource creates a Polygon-backed raw bar source.
func NewPolygonSource(apiKey string) *PolygonSource {
	return &PolygonSource{client: polygon.New(apiKey)}
}

func (s *PolygonSource) Name() string {
	return string(SourcePolygon)
}

// NativeIntervals is limited to granularities expressible as one Polygon
// timespan with multiplier 1; the engine resamples the rest.
func (s *PolygonSource) NativeIntervals() []types.Interval {
	return []types.Interval{
		types.Interval1m,
		types.Interval1h,
		types.Interval1d,
	}
}

func (s *PolygonSource) MaxPageSize() int {
	return 5000
}

// FetchRaw fetches aggregates for ticker over [start, end).
func (s *PolygonSource) FetchRaw(ctx context.Context, pair string, interval types.Interval, start, end int64) ([]types.RawBar, error) {
	timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     pair,
		Multiplier: 1,
		Timespan:   timespan,
		From:       models.Millis(time.Unix(start, 0).UTC()),
		To:         models.Millis(time.Unix(end-interval.Seconds(), 0).UTC()),
	}.WithLimit(50000)

	iter := s.client.ListAggs(ctx, params)

	var bars []types.RawBar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.RawBar{
			OpenTime: time.Time(agg.Timestamp).Unix(),
			Open:     decimal.NewFromFloat(agg.Open),
			High:     decimal.NewFromFloat(agg.High),
			Low:      decimal.NewFromFloat(agg.Low),
			Close:    decimal.NewFromFloat(agg.Close),
			Volume:   decimal.NewFromFloat(agg.Volume),
		})
	}

	if iterErr := iter.Err(); iterErr != nil {
		return nil, classifyPolygonError(iterErr)
	}

	return bars, nil
}

// polygonTimespan maps an interval onto a Polygon timespan with multiplier 1.
func polygonTimespan(interval types.Interval) (models.Timespan, error) {
	switch interval {
	case types.Interval1m:
		return models.Minute, nil
	case types.Interval1h:
		return models.Hour, nil
	case types.Interval1d:
		return models.Day, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "polygon does not serve %s natively", interval)
	}
}

// classifyPolygonError maps Polygon client failures onto retryable codes.
func classifyPolygonError(err error) error {
	var respErr *models.ErrorResponse

	if errors.As(err, &respErr) {
		if respErr.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(errors.ErrCodeRateLimited, "polygon rate limit hit", err)
		}

		if respErr.StatusCode >= 500 {
			return errors.Wrap(errors.ErrCodeSourceUnavailable, "polygon server error", err)
		}

		return errors.Wrap(errors.ErrCodeMalformedResponse, "polygon rejected the request", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, "polygon request timed out", err)
	}

	// The client wraps 429s in plain errors in some paths; fall back to
	// string matching before declaring the source unavailable.
	if strings.Contains(err.Error(), "429") {
		return errors.Wrap(errors.ErrCodeRateLimited, "polygon rate limit hit", err)
	}

	return errors.Wrap(errors.ErrCodeSourceUnavailable, "polygon request failed", err)
}

package provider

import (
	"context"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// binanceRequestWeightExceeded is the Binance API error code for breaching
// the request-weight limit.
const binanceRequestWeightExceeded = -1003

// klinesFetcher is the slice of the Binance client the source needs; tests
// substitute a scripted implementation.
type klinesFetcher interface {
	Klines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]*binance.Kline, error)
}

type binanceKlinesClient struct {
	client *binance.Client
}

func (c *binanceKlinesClient) Klines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]*binance.Kline, error) {
	return c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMs).
		EndTime(endMs).
		Limit(limit).
		Do(ctx)
}

// BinanceSource serves raw bars from the Binance spot klines API. No
// authentication is needed for market data.
type BinanceSource struct {
	fetcher klinesFetcher
}

// NewBinanceSource creates a Binance-backed raw bar source.
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		fetcher: &binanceKlinesClient{client: binance.NewClient("", "")},
	}
}

func (s *BinanceSource) Name() string {
	return string(SourceBinance)
}

// NativeIntervals lists the granularities Binance serves directly. Binance
// also offers 3m, 2h, 8h, 12h, 3d, 1w, and 1M, which fall outside the
// supported interval set.
func (s *BinanceSource) NativeIntervals() []types.Interval {
	return types.SupportedIntervals()
}

func (s *BinanceSource) MaxPageSize() int {
	return 1000
}

// FetchRaw fetches klines for pair over [start, end). Binance symbols carry
// no separator, so "BTC-USD" style pairs are not translated; callers pass
// Binance-native symbols like "BTCUSDT".
func (s *BinanceSource) FetchRaw(ctx context.Context, pair string, interval types.Interval, start, end int64) ([]types.RawBar, error) {
	step := interval.Seconds()
	limit := int((end - start) / step)

	if limit > s.MaxPageSize() {
		limit = s.MaxPageSize()
	}

	// Binance takes inclusive millisecond bounds.
	klines, err := s.fetcher.Klines(ctx, pair, string(interval), start*1000, end*1000-1, limit)
	if err != nil {
		return nil, classifyBinanceError(err)
	}

	bars := make([]types.RawBar, 0, len(klines))

	for _, k := range klines {
		bar, convErr := convertKline(k)
		if convErr != nil {
			return nil, convErr
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// convertKline parses one Binance kline into a raw bar. Binance serializes
// prices as strings, which decimal parses without float round-tripping.
func convertKline(k *binance.Kline) (types.RawBar, error) {
	return convertKlineStrings(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume)
}

// classifyBinanceError maps Binance API errors onto retryable error codes.
func classifyBinanceError(err error) error {
	var apiErr *common.APIError

	if errors.As(err, &apiErr) {
		if apiErr.Code == binanceRequestWeightExceeded {
			return errors.Wrap(errors.ErrCodeRateLimited, "binance request weight exceeded", err)
		}

		return errors.Wrap(errors.ErrCodeSourceUnavailable, "binance API error", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeTimeout, "binance request timed out", err)
	}

	return errors.Wrap(errors.ErrCodeSourceUnavailable, "binance request failed", err)
}

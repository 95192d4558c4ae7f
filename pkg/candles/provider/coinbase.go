package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/candles"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

const (
	coinbaseBaseURL = "https://api.exchange.coinbase.com"
	// Coinbase caps each candles call at 300 rows.
	coinbaseMaxCandles = 300
)

// CoinbaseSource serves raw bars from the Coinbase Exchange public REST API.
// No Go SDK covers the candles endpoint, so this talks HTTP directly.
type CoinbaseSource struct {
	baseURL string
	client  *http.Client
}

// NewCoinbaseSource creates a Coinbase-backed raw bar source.
func NewCoinbaseSource() *CoinbaseSource {
	return &CoinbaseSource{
		baseURL: coinbaseBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *CoinbaseSource) Name() string {
	return string(SourceCoinbase)
}

// NativeIntervals lists the granularities the candles endpoint accepts.
// Coinbase rejects any other granularity outright.
func (s *CoinbaseSource) NativeIntervals() []types.Interval {
	return []types.Interval{
		types.Interval1m,
		types.Interval5m,
		types.Interval15m,
		types.Interval1h,
		types.Interval6h,
		types.Interval1d,
	}
}

func (s *CoinbaseSource) MaxPageSize() int {
	return coinbaseMaxCandles
}

// FetchRaw fetches candles for pair over [start, end). Coinbase takes
// inclusive RFC3339 bounds on candle open times, so the end parameter is
// pulled back by one interval.
func (s *CoinbaseSource) FetchRaw(ctx context.Context, pair string, interval types.Interval, start, end int64) ([]types.RawBar, error) {
	step := interval.Seconds()
	if end-start < step {
		return nil, nil
	}

	query := url.Values{}
	query.Set("granularity", fmt.Sprintf("%d", step))
	query.Set("start", time.Unix(start, 0).UTC().Format(time.RFC3339))
	query.Set("end", time.Unix(end-step, 0).UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/products/%s/candles?%s", s.baseURL, url.PathEscape(pair), query.Encode())

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// Rows arrive as [time, low, high, open, close, volume] tuples, newest
	// first. json.Number keeps the values out of float64 on the way to
	// decimal.
	var rows [][]json.Number
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedResponse, "unparseable coinbase candles payload", err)
	}

	bars := make([]types.RawBar, 0, len(rows))

	for _, row := range rows {
		bar, convErr := convertCandleRow(row)
		if convErr != nil {
			return nil, convErr
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// ListPairs enumerates the products Coinbase currently lists, sorted by ID.
func (s *CoinbaseSource) ListPairs(ctx context.Context) ([]candles.Pair, error) {
	body, err := s.get(ctx, s.baseURL+"/products")
	if err != nil {
		return nil, err
	}

	var pairs []candles.Pair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedResponse, "unparseable coinbase products payload", err)
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].ID < pairs[j].ID
	})

	return pairs, nil
}

// get issues one GET and classifies HTTP failures onto error codes.
func (s *CoinbaseSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to build coinbase request", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "coinbase request timed out", err)
		}

		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, "coinbase request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to read coinbase response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Newf(errors.ErrCodeRateLimited, "coinbase rate limit hit: %s", firstLine(body))
	case resp.StatusCode >= 500:
		return nil, errors.Newf(errors.ErrCodeSourceUnavailable, "coinbase returned %d: %s", resp.StatusCode, firstLine(body))
	default:
		return nil, errors.Newf(errors.ErrCodeMalformedResponse, "coinbase returned %d: %s", resp.StatusCode, firstLine(body))
	}
}

// convertCandleRow parses one [time, low, high, open, close, volume] tuple.
func convertCandleRow(row []json.Number) (types.RawBar, error) {
	if len(row) != 6 {
		return types.RawBar{}, errors.Newf(errors.ErrCodeMalformedResponse, "candle row has %d fields, want 6", len(row))
	}

	openTime, err := row[0].Int64()
	if err != nil {
		return types.RawBar{}, errors.Wrapf(errors.ErrCodeMalformedResponse, err, "unparseable candle timestamp %q", row[0])
	}

	prices := make([]decimal.Decimal, 5)

	for i, field := range row[1:] {
		prices[i], err = decimal.NewFromString(field.String())
		if err != nil {
			return types.RawBar{}, errors.Wrapf(errors.ErrCodeMalformedResponse, err, "unparseable candle field %q", field)
		}
	}

	return types.RawBar{
		OpenTime: openTime,
		Low:      prices[0],
		High:     prices[1],
		Open:     prices[2],
		Close:    prices[3],
		Volume:   prices[4],
	}, nil
}

// firstLine truncates an error body to something loggable.
func firstLine(body []byte) string {
	const limit = 200

	for i, b := range body {
		if b == '\n' || i == limit {
			return string(body[:i])
		}
	}

	return string(body)
}

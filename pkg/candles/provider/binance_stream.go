package provider

import (
	"context"
	"encoding/json"
	"iter"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

const binanceWSBaseURL = "wss://stream.binance.com:9443/ws"

// wsKlineMessage is the Binance kline stream envelope.
type wsKlineMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime int64  `json:"t"`
		Interval string `json:"i"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		IsClosed bool   `json:"x"`
	} `json:"k"`
}

// Stream yields one raw bar per closed kline period over a Binance WebSocket
// connection. Interim updates for the still-forming period are dropped; only
// final bars reach the pipeline. Cancel the context to stop streaming.
func (s *BinanceSource) Stream(ctx context.Context, pair string, interval types.Interval) iter.Seq2[types.RawBar, error] {
	return func(yield func(types.RawBar, error) bool) {
		streamName := strings.ToLower(pair) + "@kline_" + string(interval)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, binanceWSBaseURL+"/"+streamName, nil)
		if err != nil {
			yield(types.RawBar{}, errors.Wrap(errors.ErrCodeSourceUnavailable, "failed to dial binance stream", err))

			return
		}
		defer conn.Close()

		// Close the connection when the context is cancelled so the blocked
		// read below returns.
		go func() {
			<-ctx.Done()

			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				yield(types.RawBar{}, errors.Wrap(errors.ErrCodeSourceUnavailable, "binance stream read failed", err))

				return
			}

			bar, closed, err := parseStreamKline(msg)
			if err != nil {
				if !yield(types.RawBar{}, err) {
					return
				}

				continue
			}

			if !closed {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// parseStreamKline decodes one stream message. The bool reports whether the
// kline's period has closed.
func parseStreamKline(msg []byte) (types.RawBar, bool, error) {
	var m wsKlineMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return types.RawBar{}, false, errors.Wrap(errors.ErrCodeMalformedResponse, "unparseable stream message", err)
	}

	if m.EventType != "kline" {
		return types.RawBar{}, false, errors.Newf(errors.ErrCodeMalformedResponse, "unexpected stream event type: %s", m.EventType)
	}

	k := m.Kline

	bar, err := convertKlineStrings(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return types.RawBar{}, false, err
	}

	return bar, k.IsClosed, nil
}

// convertKlineStrings parses Binance string-encoded OHLCV fields.
func convertKlineStrings(openTimeMs int64, open, high, low, closePrice, volume string) (types.RawBar, error) {
	fields := [5]string{open, high, low, closePrice, volume}
	parsed := [5]decimal.Decimal{}

	for i, field := range fields {
		value, err := decimal.NewFromString(field)
		if err != nil {
			return types.RawBar{}, errors.Wrapf(errors.ErrCodeMalformedResponse, err, "unparseable kline field %q", field)
		}

		parsed[i] = value
	}

	return types.RawBar{
		OpenTime: openTimeMs / 1000,
		Open:     parsed[0],
		High:     parsed[1],
		Low:      parsed[2],
		Close:    parsed[3],
		Volume:   parsed[4],
	}, nil
}

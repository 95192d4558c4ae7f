// Package provider implements exchange-specific raw bar sources. Each source
// translates one exchange's candlestick API into the engine's RawBarSource
// contract: epoch-second windows in, unvalidated bars out, failures mapped to
// typed error codes so the retry policy can classify them.
package provider

import (
	"github.com/rxtech-lab/argo-candles/pkg/candles"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// SourceType identifies an exchange data source.
type SourceType string

const (
	SourceBinance  SourceType = "binance"
	SourceCoinbase SourceType = "coinbase"
	SourcePolygon  SourceType = "polygon"
)

// SourceInfo contains metadata about an exchange data source.
type SourceInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// sourceRegistry holds metadata about all supported sources.
var sourceRegistry = map[SourceType]SourceInfo{
	SourceBinance: {
		Name:         string(SourceBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange with extensive candlestick history for crypto pairs",
		RequiresAuth: false,
	},
	SourceCoinbase: {
		Name:         string(SourceCoinbase),
		DisplayName:  "Coinbase Exchange",
		Description:  "Cryptocurrency exchange serving OHLCV candles for listed products",
		RequiresAuth: false,
	},
	SourcePolygon: {
		Name:         string(SourcePolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market data provider with historical OHLCV aggregates",
		RequiresAuth: true,
	},
}

// GetSupportedSources returns a list of all supported source names.
func GetSupportedSources() []string {
	sources := make([]string, 0, len(sourceRegistry))
	for sourceType := range sourceRegistry {
		sources = append(sources, string(sourceType))
	}

	return sources
}

// GetSourceInfo returns metadata for a specific source.
func GetSourceInfo(sourceName string) (SourceInfo, error) {
	info, exists := sourceRegistry[SourceType(sourceName)]
	if !exists {
		return SourceInfo{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported source: %s", sourceName)
	}

	return info, nil
}

// NewRawBarSource creates an exchange source of the given type. The apiKey is
// required for sources whose registry entry sets RequiresAuth and ignored
// otherwise.
func NewRawBarSource(sourceType SourceType, apiKey string) (candles.RawBarSource, error) {
	switch sourceType {
	case SourceBinance:
		return NewBinanceSource(), nil
	case SourceCoinbase:
		return NewCoinbaseSource(), nil
	case SourcePolygon:
		if apiKey == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon source requires an API key")
		}

		return NewPolygonSource(apiKey), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported source: %s", sourceType)
	}
}

package mocks

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-candles/internal/types"
)

// BarGenerator generates realistic raw candle data for testing and
// benchmarking.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a new BarGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candle data is generated.
type GeneratorConfig struct {
	// StartTime is the open time of the first bar, epoch seconds.
	StartTime int64
	// Interval is the cadence between bars.
	Interval types.Interval
	// Count is the number of bars to generate.
	Count int
	// InitialPrice is the starting price.
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical move per bar).
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish).
	Trend float64
	// VolumeBase is the average volume per bar.
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0).
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      1_700_000_000 - 1_700_000_000%60,
		Interval:       types.Interval1m,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates raw bars following a geometric Brownian motion model, on
// the interval grid, contiguous and duplicate-free. Every generated bar
// satisfies the OHLC relation and carries non-negative volume.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.RawBar {
	bars := make([]types.RawBar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.Interval.AlignDown(config.StartTime)
	step := config.Interval.Seconds()

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for normally distributed moves.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension

		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance

		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bar := types.RawBar{
			OpenTime: currentTime,
			Open:     decimal.NewFromFloat(open).Round(4),
			High:     decimal.NewFromFloat(high).Round(4),
			Low:      decimal.NewFromFloat(low).Round(4),
			Close:    decimal.NewFromFloat(closePrice).Round(4),
			Volume:   decimal.NewFromFloat(volume).Round(2),
		}

		// Rounding can nudge the extremes past the body; re-clamp so the
		// OHLC relation always holds.
		bar.High = decimal.Max(bar.High, bar.Open, bar.Close)
		bar.Low = decimal.Min(bar.Low, bar.Open, bar.Close)

		bars[i] = bar

		currentPrice = closePrice
		currentTime += step
	}

	return bars
}

// GenerateWithGaps generates bars and then removes the slots named in
// missing, producing series with known holes for gap-detection tests.
func (g *BarGenerator) GenerateWithGaps(config GeneratorConfig, missing map[int64]bool) []types.RawBar {
	full := g.Generate(config)

	bars := make([]types.RawBar, 0, len(full))

	for _, bar := range full {
		if missing[bar.OpenTime] {
			continue
		}

		bars = append(bars, bar)
	}

	return bars
}

// Generate10K is a convenience function to generate 10,000 one-minute bars
// with default settings for benchmarking.
func Generate10K() []types.RawBar {
	gen := NewBarGenerator(42)
	config := DefaultConfig()
	config.Count = 10000

	return gen.Generate(config)
}

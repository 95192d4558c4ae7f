// Package config loads exchange profiles from YAML. A profile records the
// REST endpoints, supported granularities, and rate-limit posture of one
// exchange, so operational tuning lives in configuration instead of code.
package config

import (
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// ExchangeProfile describes one exchange's API surface and limits.
type ExchangeProfile struct {
	// BaseURL is the REST endpoint root.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// CandlestickURL overrides the candles endpoint host when the exchange
	// serves market data from a separate domain. Empty means BaseURL.
	CandlestickURL string `yaml:"candlestick_url" validate:"omitempty,url"`
	// TimeIntervals maps interval names onto the exchange's granularity
	// parameter in seconds.
	TimeIntervals map[types.Interval]int64 `yaml:"time_intervals" validate:"required,min=1"`
	// PageSize is the exchange's per-call row cap.
	PageSize int `yaml:"page_size" validate:"required,gt=0"`
	// MinRequestSpacingMs is the minimum spacing between calls against one
	// account, in milliseconds.
	MinRequestSpacingMs int64 `yaml:"min_request_spacing_ms" validate:"gte=0"`
}

// MinRequestSpacing returns the spacing as a duration.
func (p ExchangeProfile) MinRequestSpacing() time.Duration {
	return time.Duration(p.MinRequestSpacingMs) * time.Millisecond
}

// Intervals returns the profile's interval names sorted fine to coarse.
func (p ExchangeProfile) Intervals() []types.Interval {
	intervals := make([]types.Interval, 0, len(p.TimeIntervals))
	for interval := range p.TimeIntervals {
		intervals = append(intervals, interval)
	}

	sort.Slice(intervals, func(i, j int) bool {
		return p.TimeIntervals[intervals[i]] < p.TimeIntervals[intervals[j]]
	})

	return intervals
}

// Config is the root of an exchange configuration file.
type Config struct {
	Exchanges map[string]ExchangeProfile `yaml:"exchanges" validate:"required,min=1,dive"`
}

// Names returns the configured exchange names, sorted.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Exchanges))
	for name := range c.Exchanges {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Profile returns the profile for the named exchange.
func (c Config) Profile(name string) (ExchangeProfile, error) {
	profile, ok := c.Exchanges[name]
	if !ok {
		return ExchangeProfile{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "no profile for exchange %q", name)
	}

	return profile, nil
}

// Load reads and validates an exchange configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes and validates exchange configuration YAML.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config YAML", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid exchange configuration", err)
	}

	for name, profile := range cfg.Exchanges {
		for interval, seconds := range profile.TimeIntervals {
			if !interval.Valid() {
				return Config{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
					"exchange %q maps unsupported interval %q", name, interval)
			}

			if interval.Seconds() != seconds {
				return Config{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
					"exchange %q maps %s to %d seconds, want %d", name, interval, seconds, interval.Seconds())
			}
		}
	}

	return cfg, nil
}

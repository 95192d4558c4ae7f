// Package writer persists assembled candle series to files. Writers are
// single-use: Initialize, a sequence of Write calls, Finalize, Close.
package writer

import (
	"github.com/rxtech-lab/argo-candles/internal/types"
)

// SeriesWriter defines the interface for persisting bars of one series.
type SeriesWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process (e.g., commits transactions, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}

package writer

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rxtech-lab/argo-candles/internal/types"
	"github.com/rxtech-lab/argo-candles/pkg/errors"
)

// CSVWriter streams bars to a CSV file. Unlike the Parquet path there is no
// buffering table; prices keep their exact decimal representation.
type CSVWriter struct {
	file       *os.File
	csv        *csv.Writer
	pair       string
	interval   types.Interval
	outputPath string
}

// NewCSVWriter creates a writer that exports the series for pair at interval
// to a CSV file at outputPath.
func NewCSVWriter(outputPath, pair string, interval types.Interval) SeriesWriter {
	return &CSVWriter{
		pair:       pair,
		interval:   interval,
		outputPath: outputPath,
	}
}

// Initialize creates the output file and writes the header row.
func (w *CSVWriter) Initialize() error {
	file, err := os.Create(w.outputPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create output file", err)
	}

	w.file = file
	w.csv = csv.NewWriter(file)

	header := []string{"pair", "interval", "open_time", "open", "high", "low", "close", "volume"}
	if err := w.csv.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write header", err)
	}

	return nil
}

// Write appends one bar row.
func (w *CSVWriter) Write(bar types.Bar) error {
	if w.csv == nil {
		return errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	row := []string{
		w.pair,
		string(w.interval),
		strconv.FormatInt(bar.OpenTime, 10),
		bar.Open.String(),
		bar.High.String(),
		bar.Low.String(),
		bar.Close.String(),
		bar.Volume.String(),
	}

	if err := w.csv.Write(row); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write row", err)
	}

	return nil
}

// Finalize flushes buffered rows to disk.
func (w *CSVWriter) Finalize() (string, error) {
	if w.csv == nil {
		return "", errors.New(errors.ErrCodeWriteFailed, "writer not initialized")
	}

	w.csv.Flush()

	if err := w.csv.Error(); err != nil {
		return "", errors.Wrap(errors.ErrCodeWriteFailed, "failed to flush rows", err)
	}

	return w.outputPath, nil
}

// Close closes the output file.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	w.csv = nil

	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to close output file", err)
	}

	return nil
}

// GetOutputPath returns the configured output file path.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}

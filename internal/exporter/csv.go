package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"turnstilecli/internal/analytics"
	apperrors "turnstilecli/internal/errors"
	"turnstilecli/pkg/contracts/domain"
)

// CSVWriter writes report CSV files under a directory
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer rooted at dir
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM for Excel
}

// WriteCSV writes headers and records to filePath, replacing any existing
// file. Relative paths resolve against the writer's directory.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create directory", err).WithContext("path", fullPath)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create file", err).WithContext("path", fullPath)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

// WriteSeries writes a ranked series as rank, key and value columns
func (w *CSVWriter) WriteSeries(filePath string, series domain.Series) (string, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   seriesHeaders,
		Records:   seriesRows(series),
		BOMPrefix: true,
	})
}

// WriteDailyRates writes one row per (station, date) with its mean
// hourly rate and exit total
func (w *CSVWriter) WriteDailyRates(filePath string, rates []analytics.DailyRate) (string, error) {
	records := make([][]string, len(rates))
	for i, r := range rates {
		records[i] = []string{
			r.Station.Name,
			r.Station.LineName,
			r.Date.Format(domain.DateLayout),
			formatFloat(r.MeanRate),
			formatInt(r.Exits),
		}
	}
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   []string{"Station", "Lines", "Date", "MeanHourlyExits", "Exits"},
		Records:   records,
		BOMPrefix: true,
	})
}

var seriesHeaders = []string{"Rank", "Key", "Value"}

func seriesRows(series domain.Series) [][]string {
	rows := make([][]string, len(series))
	for i, e := range series {
		rows[i] = []string{formatInt(int64(i + 1)), e.Label, formatInt(e.Value)}
	}
	return rows
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.dir == "" {
		return filePath
	}
	return filepath.Join(w.dir, filePath)
}

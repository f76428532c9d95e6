package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "turnstilecli/internal/errors"
	"turnstilecli/pkg/contracts/domain"
)

// ReadResult holds the records decoded from one source plus the rows that
// were rejected.
type ReadResult struct {
	Source   string
	Records  []domain.RawRecord
	Failures []*apperrors.RowError
}

// Reader decodes turnstile source files into raw records.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a reader. A nil logger falls back to slog.Default().
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger.With(slog.String("component", "reader"))}
}

// ReadFile opens and decodes one source file. Text files (.txt, .csv) are
// read as comma-delimited rows, .xlsx archives from their first sheet.
// The returned error is file-level; row failures are in the result.
func (r *Reader) ReadFile(ctx context.Context, path string) (*ReadResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return r.ReadWorkbook(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &apperrors.FileError{Path: path, Err: err}
	}
	defer f.Close()

	result, err := r.Read(ctx, f, filepath.Base(path))
	if err != nil {
		return nil, &apperrors.FileError{Path: path, Err: err}
	}
	return result, nil
}

// Read decodes comma-delimited rows from src. Header rows are passed through
// untouched; removing them is the sanitizer's job.
func (r *Reader) Read(ctx context.Context, src io.Reader, source string) (*ReadResult, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	result := &ReadResult{Source: source}
	for rows := 0; ; rows++ {
		if rows%4096 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				result.Failures = append(result.Failures,
					apperrors.NewParseRowError(source, pe.StartLine, "", "", pe.Err))
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := cr.FieldPos(0)
		r.collect(result, fields, line)
	}

	r.logger.InfoContext(ctx, "source decoded",
		slog.String("source", source),
		slog.Int("records", len(result.Records)),
		slog.Int("failures", len(result.Failures)))

	return result, nil
}

func (r *Reader) collect(result *ReadResult, fields []string, line int) {
	rec, rowErr := DecodeRow(fields, result.Source, line)
	if rowErr != nil {
		r.logger.Debug("row rejected", slog.String("error", rowErr.Error()))
		result.Failures = append(result.Failures, rowErr)
		return
	}
	rec.Seq = len(result.Records)
	result.Records = append(result.Records, rec)
}

// DecodeRow turns the 11 fields of one source row into a RawRecord. Header
// artifacts are returned without validation.
func DecodeRow(fields []string, source string, line int) (domain.RawRecord, *apperrors.RowError) {
	if len(fields) != domain.FieldCount {
		return domain.RawRecord{}, apperrors.NewParseRowError(source, line, "", "",
			fmt.Errorf("expected %d fields, got %d", domain.FieldCount, len(fields)))
	}

	get := func(i int) string { return strings.TrimSpace(fields[i]) }
	rec := domain.RawRecord{
		ControlArea: get(0),
		Unit:        get(1),
		SCP:         get(2),
		Station:     get(3),
		LineName:    domain.CanonicalLineName(get(4)),
		Division:    get(5),
		Date:        get(6),
		Time:        get(7),
		Description: get(8),
		EntriesText: get(9),
		ExitsText:   get(10),
		Source:      source,
		Line:        line,
	}
	if rec.IsHeaderArtifact() {
		return rec, nil
	}

	for i, value := range []string{rec.ControlArea, rec.Unit, rec.SCP, rec.Station} {
		if value == "" {
			return domain.RawRecord{}, apperrors.NewParseRowError(source, line, domain.Columns[i], value,
				errors.New("missing value"))
		}
	}

	ts, err := ParseTimestamp(rec.Date, rec.Time)
	if err != nil {
		return domain.RawRecord{}, apperrors.NewParseRowError(source, line, "DATE/TIME", rec.Date+" "+rec.Time, err)
	}
	rec.Timestamp = ts

	if _, err := ParseCounter(rec.EntriesText); err != nil {
		return domain.RawRecord{}, apperrors.NewParseRowError(source, line, domain.HeaderEntriesToken, rec.EntriesText, err)
	}
	if _, err := ParseCounter(rec.ExitsText); err != nil {
		return domain.RawRecord{}, apperrors.NewParseRowError(source, line, domain.HeaderExitsToken, rec.ExitsText, err)
	}
	return rec, nil
}

// ParseTimestamp combines a MM/DD/YYYY date and an HH:MM:SS time.
func ParseTimestamp(date, clock string) (time.Time, error) {
	return time.Parse(domain.TimestampLayout, date+clock)
}

// ParseCounter parses a cumulative counter value.
func ParseCounter(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative counter %d", v)
	}
	return v, nil
}

// Concat joins per-file results in the given order and numbers every record
// with its position in the batch.
func Concat(results []*ReadResult) []domain.RawRecord {
	total := 0
	for _, res := range results {
		if res != nil {
			total += len(res.Records)
		}
	}

	records := make([]domain.RawRecord, 0, total)
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, rec := range res.Records {
			rec.Seq = len(records)
			records = append(records, rec)
		}
	}
	return records
}

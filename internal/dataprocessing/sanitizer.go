package dataprocessing

import (
	"context"
	"log/slog"

	apperrors "turnstilecli/internal/errors"
	"turnstilecli/pkg/contracts/domain"
)

// SanitizeResult holds the records that survived sanitizing.
type SanitizeResult struct {
	Records        []domain.RawRecord
	HeadersRemoved int
	Failures       []*apperrors.RowError
}

// Sanitizer removes header rows re-emitted by concatenated source files and
// coerces the counters of the remaining rows.
type Sanitizer struct {
	logger *slog.Logger
}

// NewSanitizer creates a sanitizer
func NewSanitizer(logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sanitizer{logger: logger.With(slog.String("component", "sanitizer"))}
}

// Sanitize returns a new record set without header artifacts, with Entries
// and Exits populated. Records that are already coerced pass through
// unchanged, so sanitizing twice is a no-op.
func (s *Sanitizer) Sanitize(ctx context.Context, records []domain.RawRecord) *SanitizeResult {
	result := &SanitizeResult{Records: make([]domain.RawRecord, 0, len(records))}

	for _, rec := range records {
		if rec.Coerced {
			result.Records = append(result.Records, rec)
			continue
		}
		if rec.IsHeaderArtifact() {
			result.HeadersRemoved++
			continue
		}

		entries, err := ParseCounter(rec.EntriesText)
		if err != nil {
			result.Failures = append(result.Failures,
				apperrors.NewFormatRowError(rec.Source, rec.Line, domain.HeaderEntriesToken, rec.EntriesText, err))
			continue
		}
		exits, err := ParseCounter(rec.ExitsText)
		if err != nil {
			result.Failures = append(result.Failures,
				apperrors.NewFormatRowError(rec.Source, rec.Line, domain.HeaderExitsToken, rec.ExitsText, err))
			continue
		}
		if rec.Timestamp.IsZero() {
			ts, err := ParseTimestamp(rec.Date, rec.Time)
			if err != nil {
				result.Failures = append(result.Failures,
					apperrors.NewFormatRowError(rec.Source, rec.Line, "DATE/TIME", rec.Date+" "+rec.Time, err))
				continue
			}
			rec.Timestamp = ts
		}

		rec.Entries = entries
		rec.Exits = exits
		rec.Coerced = true
		result.Records = append(result.Records, rec)
	}

	s.logger.InfoContext(ctx, "records sanitized",
		slog.Int("input", len(records)),
		slog.Int("output", len(result.Records)),
		slog.Int("headers_removed", result.HeadersRemoved),
		slog.Int("format_failures", len(result.Failures)))

	return result
}

package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"turnstilecli/pkg/contracts/domain"
)

// DefaultCeiling is the smallest per-interval count treated as implausible.
// Counters report roughly every four hours; no station reaches this in one
// interval.
const DefaultCeiling int64 = 5000

// Violation reasons
const (
	ReasonNegative = "negative"
	ReasonCeiling  = "ceiling"
)

// CleanPolicy bounds the accepted deltas to [0, Ceiling).
type CleanPolicy struct {
	Ceiling int64
}

// DefaultCleanPolicy returns the standard policy
func DefaultCleanPolicy() CleanPolicy {
	return CleanPolicy{Ceiling: DefaultCeiling}
}

// IntegrityViolation records a delta dropped by the cleaner. It is not an
// error; the pipeline continues without the row.
type IntegrityViolation struct {
	Counter   domain.CounterKey `json:"counter"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Line      int               `json:"line"`
	Field     string            `json:"field"`
	Delta     int64             `json:"delta"`
	Reason    string            `json:"reason"`
}

// CleanStats counts cleaner outcomes
type CleanStats struct {
	Input    int `json:"input"`
	Kept     int `json:"kept"`
	Negative int `json:"negative"`
	Ceiling  int `json:"ceiling"`
}

// Dropped returns the number of rows removed
func (s CleanStats) Dropped() int {
	return s.Negative + s.Ceiling
}

// CleanResult holds cleaned records and the dropped deltas
type CleanResult struct {
	Records    []domain.CleanedRecord
	Violations []IntegrityViolation
	Stats      CleanStats
}

// Cleaner applies the validity policy to delta records.
type Cleaner struct {
	policy CleanPolicy
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A non-positive ceiling falls back to
// DefaultCeiling.
func NewCleaner(policy CleanPolicy, logger *slog.Logger) *Cleaner {
	if policy.Ceiling <= 0 {
		policy.Ceiling = DefaultCeiling
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{policy: policy, logger: logger.With(slog.String("component", "cleaner"))}
}

// Policy returns the effective policy
func (c *Cleaner) Policy() CleanPolicy {
	return c.policy
}

// Clean keeps rows whose entry and exit deltas both fall in [0, Ceiling)
// and derives station identity, date, time and weekday. Out-of-range rows
// are dropped, never clamped.
func (c *Cleaner) Clean(ctx context.Context, deltas []domain.DeltaRecord) *CleanResult {
	result := &CleanResult{
		Records: make([]domain.CleanedRecord, 0, len(deltas)),
		Stats:   CleanStats{Input: len(deltas)},
	}

	for _, dr := range deltas {
		if v, ok := c.check(dr, domain.HeaderEntriesToken, dr.EntryDelta); !ok {
			result.record(v)
			continue
		}
		if v, ok := c.check(dr, domain.HeaderExitsToken, dr.ExitDelta); !ok {
			result.record(v)
			continue
		}

		ts := dr.Record.Timestamp
		result.Records = append(result.Records, domain.CleanedRecord{
			Station:   dr.Record.StationID(),
			Timestamp: ts,
			Date:      time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Time:      ts.Format(domain.TimeLayout),
			Entries:   dr.EntryDelta,
			Exits:     dr.ExitDelta,
			Weekday:   domain.WeekdayOf(ts),
		})
	}
	result.Stats.Kept = len(result.Records)

	for _, v := range result.Violations {
		c.logger.DebugContext(ctx, "delta dropped",
			slog.String("station", v.Counter.Station),
			slog.String("scp", v.Counter.SCP),
			slog.String("field", v.Field),
			slog.Int64("delta", v.Delta),
			slog.String("reason", v.Reason))
	}
	c.logger.InfoContext(ctx, "records cleaned",
		slog.Int("input", result.Stats.Input),
		slog.Int("kept", result.Stats.Kept),
		slog.Int("negative", result.Stats.Negative),
		slog.Int("ceiling", result.Stats.Ceiling),
		slog.Int64("ceiling_value", c.policy.Ceiling))

	return result
}

func (c *Cleaner) check(dr domain.DeltaRecord, field string, delta int64) (IntegrityViolation, bool) {
	var reason string
	switch {
	case delta < 0:
		reason = ReasonNegative
	case delta >= c.policy.Ceiling:
		reason = ReasonCeiling
	default:
		return IntegrityViolation{}, true
	}
	return IntegrityViolation{
		Counter:   dr.Record.Key(),
		Timestamp: dr.Record.Timestamp,
		Source:    dr.Record.Source,
		Line:      dr.Record.Line,
		Field:     field,
		Delta:     delta,
		Reason:    reason,
	}, false
}

func (r *CleanResult) record(v IntegrityViolation) {
	r.Violations = append(r.Violations, v)
	if v.Reason == ReasonNegative {
		r.Stats.Negative++
	} else {
		r.Stats.Ceiling++
	}
}

package dataprocessing

import (
	"context"
	"log/slog"
	"sort"

	"turnstilecli/pkg/contracts/domain"
)

// DeltaStats summarizes one delta computation
type DeltaStats struct {
	Counters  int `json:"counters"`
	Deltas    int `json:"deltas"`
	Uncoerced int `json:"uncoerced"`
}

// DeltaComputer converts cumulative counters into per-interval deltas.
type DeltaComputer struct {
	logger *slog.Logger
}

// NewDeltaComputer creates a delta computer
func NewDeltaComputer(logger *slog.Logger) *DeltaComputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeltaComputer{logger: logger.With(slog.String("component", "delta"))}
}

// Compute partitions records by physical counter, orders each partition by
// timestamp (ties keep input order) and differences every reading against
// its predecessor. The first reading of a counter has no delta and is not
// emitted. Negative or oversized deltas are passed through unchanged.
// Output follows input order.
func (d *DeltaComputer) Compute(ctx context.Context, records []domain.RawRecord) ([]domain.DeltaRecord, DeltaStats) {
	var stats DeltaStats

	partitions := make(map[domain.CounterKey][]int)
	for i, rec := range records {
		if !rec.Coerced {
			stats.Uncoerced++
			continue
		}
		key := rec.Key()
		partitions[key] = append(partitions[key], i)
	}
	stats.Counters = len(partitions)

	// deltas indexed by input position; nil means no predecessor
	computed := make([]*domain.DeltaRecord, len(records))
	for _, idx := range partitions {
		sort.SliceStable(idx, func(a, b int) bool {
			return records[idx[a]].Timestamp.Before(records[idx[b]].Timestamp)
		})
		for n := 1; n < len(idx); n++ {
			prev, cur := records[idx[n-1]], records[idx[n]]
			computed[idx[n]] = &domain.DeltaRecord{
				Record:     cur,
				EntryDelta: cur.Entries - prev.Entries,
				ExitDelta:  cur.Exits - prev.Exits,
			}
		}
	}

	out := make([]domain.DeltaRecord, 0, len(records))
	for _, dr := range computed {
		if dr != nil {
			out = append(out, *dr)
		}
	}
	stats.Deltas = len(out)

	d.logger.InfoContext(ctx, "deltas computed",
		slog.Int("records", len(records)),
		slog.Int("counters", stats.Counters),
		slog.Int("deltas", stats.Deltas),
		slog.Int("uncoerced", stats.Uncoerced))

	return out, stats
}

package dataprocessing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstilecli/internal/analytics"
	apperrors "turnstilecli/internal/errors"
	"turnstilecli/internal/shared/testutil"
	"turnstilecli/pkg/contracts/domain"
)

// readRows decodes rows (header included) from a single source
func readRows(t *testing.T, rows ...testutil.Row) []domain.RawRecord {
	t.Helper()
	res, err := NewReader(nil).Read(context.Background(), strings.NewReader(testutil.SourceText(rows...)), "week.txt")
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	return Concat([]*ReadResult{res})
}

func coerced(t *testing.T, rows ...testutil.Row) []domain.RawRecord {
	t.Helper()
	return NewSanitizer(nil).Sanitize(context.Background(), readRows(t, rows...)).Records
}

func TestSanitizeRemovesHeaders(t *testing.T) {
	first := readRows(t, counter.At("01/02/2021", "03:00:00", 1000, 500))
	second := readRows(t, counter.At("01/02/2021", "07:00:00", 1050, 520))
	batch := append(append([]domain.RawRecord{}, first...), second...)

	res := NewSanitizer(nil).Sanitize(context.Background(), batch)
	assert.Equal(t, 2, res.HeadersRemoved)
	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		assert.True(t, rec.Coerced)
		assert.False(t, rec.IsHeaderArtifact())
	}
	assert.Equal(t, int64(1050), res.Records[1].Entries)
	assert.Equal(t, int64(520), res.Records[1].Exits)
}

func TestSanitizeHeaderCaseInsensitive(t *testing.T) {
	rec := domain.RawRecord{EntriesText: " entries ", ExitsText: "exits"}

	res := NewSanitizer(nil).Sanitize(context.Background(), []domain.RawRecord{rec})
	assert.Equal(t, 1, res.HeadersRemoved)
	assert.Empty(t, res.Records)
}

func TestSanitizeIdempotent(t *testing.T) {
	s := NewSanitizer(nil)
	once := s.Sanitize(context.Background(), readRows(t,
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		counter.At("01/02/2021", "07:00:00", 1050, 520),
	))
	twice := s.Sanitize(context.Background(), once.Records)

	assert.Equal(t, once.Records, twice.Records)
	assert.Zero(t, twice.HeadersRemoved)
}

func TestSanitizeFormatFailure(t *testing.T) {
	recs := []domain.RawRecord{
		{ControlArea: "A002", Station: "59 ST", Date: "01/02/2021", Time: "03:00:00", EntriesText: "12x", ExitsText: "1", Source: "w.txt", Line: 4},
		{ControlArea: "A002", Station: "59 ST", Date: "01/02/2021", Time: "03:00:00", EntriesText: "1", ExitsText: "1", Source: "w.txt", Line: 5},
	}

	res := NewSanitizer(nil).Sanitize(context.Background(), recs)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, apperrors.KindFormat, res.Failures[0].Kind)
	assert.Equal(t, 4, res.Failures[0].Line)
	require.Len(t, res.Records, 1)
	assert.False(t, res.Records[0].Timestamp.IsZero())
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := readRows(t, counter.At("01/02/2021", "03:00:00", 1000, 500))
	NewSanitizer(nil).Sanitize(context.Background(), in)

	assert.Len(t, in, 2)
	assert.False(t, in[1].Coerced)
}

func TestDeltaFirstReadingExcluded(t *testing.T) {
	recs := coerced(t,
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		counter.At("01/02/2021", "07:00:00", 1050, 520),
	)

	deltas, stats := NewDeltaComputer(nil).Compute(context.Background(), recs)
	require.Len(t, deltas, 1)
	assert.Equal(t, int64(50), deltas[0].EntryDelta)
	assert.Equal(t, int64(20), deltas[0].ExitDelta)
	assert.Equal(t, "07:00:00", deltas[0].Record.Time)
	assert.Equal(t, DeltaStats{Counters: 1, Deltas: 1}, stats)
}

func TestDeltaSortsByTimestampWithinCounter(t *testing.T) {
	other := testutil.Turnstile("A002", "R051", "02-00-01", "59 ST")
	recs := coerced(t,
		counter.At("01/02/2021", "11:00:00", 1200, 700),
		other.At("01/02/2021", "03:00:00", 10, 10),
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		other.At("01/02/2021", "07:00:00", 15, 40),
		counter.At("01/02/2021", "07:00:00", 1050, 520),
	)

	deltas, stats := NewDeltaComputer(nil).Compute(context.Background(), recs)
	assert.Equal(t, 2, stats.Counters)
	require.Len(t, deltas, 3)

	// output follows input position of the later reading
	assert.Equal(t, "11:00:00", deltas[0].Record.Time)
	assert.Equal(t, int64(150), deltas[0].EntryDelta)
	assert.Equal(t, int64(180), deltas[0].ExitDelta)

	assert.Equal(t, "02-00-01", deltas[1].Record.SCP)
	assert.Equal(t, int64(5), deltas[1].EntryDelta)
	assert.Equal(t, int64(30), deltas[1].ExitDelta)

	assert.Equal(t, "07:00:00", deltas[2].Record.Time)
	assert.Equal(t, int64(50), deltas[2].EntryDelta)
}

func TestDeltaTieTimestampsKeepFileOrder(t *testing.T) {
	tests := []struct {
		name string
		rows []testutil.Row
		want []int64
	}{
		{
			name: "ties after the earlier reading",
			rows: []testutil.Row{
				counter.At("01/02/2021", "03:00:00", 1000, 500),
				counter.At("01/02/2021", "07:00:00", 1010, 500),
				counter.At("01/02/2021", "07:00:00", 1030, 500),
			},
			want: []int64{10, 20},
		},
		{
			name: "ties before the earlier reading",
			rows: []testutil.Row{
				counter.At("01/02/2021", "07:00:00", 1010, 500),
				counter.At("01/02/2021", "07:00:00", 1030, 500),
				counter.At("01/02/2021", "03:00:00", 1000, 500),
			},
			want: []int64{10, 20},
		},
		{
			name: "reversed ties",
			rows: []testutil.Row{
				counter.At("01/02/2021", "03:00:00", 1000, 500),
				counter.At("01/02/2021", "07:00:00", 1030, 500),
				counter.At("01/02/2021", "07:00:00", 1010, 500),
			},
			want: []int64{30, -20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas, _ := NewDeltaComputer(nil).Compute(context.Background(), coerced(t, tt.rows...))
			require.Len(t, deltas, len(tt.want))

			got := make([]int64, len(deltas))
			for i, d := range deltas {
				got[i] = d.EntryDelta
				assert.Equal(t, "07:00:00", d.Record.Time)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeltaKeepsNegativeAndHugeValues(t *testing.T) {
	recs := coerced(t,
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		counter.At("01/02/2021", "07:00:00", 10, 900000),
	)

	deltas, _ := NewDeltaComputer(nil).Compute(context.Background(), recs)
	require.Len(t, deltas, 1)
	assert.Equal(t, int64(-990), deltas[0].EntryDelta)
	assert.Equal(t, int64(899500), deltas[0].ExitDelta)
}

func TestDeltaSkipsUncoerced(t *testing.T) {
	recs := coerced(t, counter.At("01/02/2021", "03:00:00", 1000, 500))
	recs = append(recs, domain.RawRecord{ControlArea: "A002", EntriesText: "1"})

	deltas, stats := NewDeltaComputer(nil).Compute(context.Background(), recs)
	assert.Empty(t, deltas)
	assert.Equal(t, 1, stats.Uncoerced)
}

func TestDeltaSingleReadingPerCounter(t *testing.T) {
	other := testutil.Turnstile("B001", "R002", "00-00-00", "CANAL ST")
	recs := coerced(t,
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		other.At("01/02/2021", "03:00:00", 10, 10),
	)

	deltas, stats := NewDeltaComputer(nil).Compute(context.Background(), recs)
	assert.Empty(t, deltas)
	assert.Equal(t, 2, stats.Counters)
}

func deltaRecord(entries, exits int64) domain.DeltaRecord {
	ts := time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC)
	return domain.DeltaRecord{
		Record: domain.RawRecord{
			ControlArea: "A002", Unit: "R051", SCP: "02-00-00",
			Station: "59 ST", LineName: "456NQRW",
			Timestamp: ts, Coerced: true, Source: "w.txt", Line: 7,
		},
		EntryDelta: entries,
		ExitDelta:  exits,
	}
}

func TestCleanBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		entries int64
		exits   int64
		kept    bool
		reason  string
		field   string
	}{
		{"zero kept", 0, 0, true, "", ""},
		{"below ceiling kept", 4999, 4999, true, "", ""},
		{"ceiling dropped", 5000, 10, false, ReasonCeiling, "ENTRIES"},
		{"exits at ceiling dropped", 10, 5000, false, ReasonCeiling, "EXITS"},
		{"negative entries dropped", -1, 10, false, ReasonNegative, "ENTRIES"},
		{"negative exits dropped", 10, -1, false, ReasonNegative, "EXITS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewCleaner(DefaultCleanPolicy(), nil).Clean(context.Background(),
				[]domain.DeltaRecord{deltaRecord(tt.entries, tt.exits)})

			if tt.kept {
				require.Len(t, res.Records, 1)
				assert.Empty(t, res.Violations)
				assert.Equal(t, tt.entries, res.Records[0].Entries)
				assert.Equal(t, tt.exits, res.Records[0].Exits)
				return
			}
			assert.Empty(t, res.Records)
			require.Len(t, res.Violations, 1)
			assert.Equal(t, tt.reason, res.Violations[0].Reason)
			assert.Equal(t, tt.field, res.Violations[0].Field)
			assert.Equal(t, 7, res.Violations[0].Line)
			assert.Equal(t, 1, res.Stats.Dropped())
		})
	}
}

func TestCleanDerivesFields(t *testing.T) {
	res := NewCleaner(DefaultCleanPolicy(), nil).Clean(context.Background(),
		[]domain.DeltaRecord{deltaRecord(50, 20)})
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, domain.StationID{Name: "59 ST", LineName: "456NQRW"}, rec.Station)
	assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "08:00:00", rec.Time)
	assert.Equal(t, domain.Monday, rec.Weekday)
	assert.Equal(t, 8, rec.Hour())
	assert.Equal(t, CleanStats{Input: 1, Kept: 1}, res.Stats)
}

func TestCleanCustomCeiling(t *testing.T) {
	c := NewCleaner(CleanPolicy{Ceiling: 100}, nil)
	res := c.Clean(context.Background(), []domain.DeltaRecord{deltaRecord(99, 1), deltaRecord(100, 1)})

	assert.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Stats.Ceiling)
	assert.Equal(t, int64(100), c.Policy().Ceiling)
}

func TestCleanNonPositiveCeilingFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCeiling, NewCleaner(CleanPolicy{}, nil).Policy().Ceiling)
}

func TestPipelineEndToEnd(t *testing.T) {
	a := testutil.Turnstile("A002", "R051", "02-00-00", "59 ST")
	b := testutil.Turnstile("A002", "R051", "02-00-01", "59 ST")

	r := NewReader(nil)
	week1, err := r.Read(context.Background(), strings.NewReader(testutil.SourceText(
		a.At("01/02/2021", "03:00:00", 1000, 500),
		b.At("01/02/2021", "03:00:00", 10, 20),
		a.At("01/02/2021", "07:00:00", 1050, 520),
	)), "w1.txt")
	require.NoError(t, err)
	week2, err := r.Read(context.Background(), strings.NewReader(testutil.SourceText(
		b.At("01/02/2021", "07:00:00", 15, 40),
		a.At("01/02/2021", "11:00:00", 9000, 600),
	)), "w2.txt")
	require.NoError(t, err)

	san := NewSanitizer(nil).Sanitize(context.Background(), Concat([]*ReadResult{week1, week2}))
	assert.Equal(t, 2, san.HeadersRemoved)

	deltas, _ := NewDeltaComputer(nil).Compute(context.Background(), san.Records)
	require.Len(t, deltas, 3)

	clean := NewCleaner(DefaultCleanPolicy(), nil).Clean(context.Background(), deltas)
	require.Len(t, clean.Records, 2)
	assert.Equal(t, 1, clean.Stats.Ceiling)

	var exits int64
	for _, rec := range clean.Records {
		exits += rec.Exits
	}
	assert.Equal(t, int64(40), exits)
}

func TestPermutedLineNamesRankAsOneStation(t *testing.T) {
	a := testutil.Turnstile("R101", "R001", "02-00-00", "TIMES SQ")
	a.LineName = "NQR456"
	b := testutil.Turnstile("R101", "R001", "02-00-01", "TIMES SQ")
	b.LineName = "456RNQ"

	recs := coerced(t,
		a.At("01/04/2021", "03:00:00", 100, 1000),
		b.At("01/04/2021", "03:00:00", 200, 2000),
		a.At("01/04/2021", "07:00:00", 110, 1030),
		b.At("01/04/2021", "07:00:00", 215, 2012),
	)
	deltas, stats := NewDeltaComputer(nil).Compute(context.Background(), recs)
	assert.Equal(t, 2, stats.Counters, "line names do not merge physical counters")
	cleaned := NewCleaner(DefaultCleanPolicy(), nil).Clean(context.Background(), deltas)

	series, err := analytics.Rank(cleaned.Records, domain.GroupByStation, 0)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, domain.StationID{Name: "TIMES SQ", LineName: "456NQR"}, series[0].Key.Station)
	assert.Equal(t, int64(42), series[0].Value)
	assert.Equal(t, "TIMES SQ (456NQR)", series[0].Label)
}

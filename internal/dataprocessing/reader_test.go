package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "turnstilecli/internal/errors"
	"turnstilecli/internal/shared/testutil"
)

var counter = testutil.Turnstile("A002", "R051", "02-00-00", "59 ST")

func TestReadDecodesRows(t *testing.T) {
	body := testutil.SourceText(
		counter.At("01/02/2021", "03:00:00", 1000, 500),
		counter.At("01/02/2021", "07:00:00", 1050, 520),
	)

	res, err := NewReader(nil).Read(context.Background(), strings.NewReader(body), "week.txt")
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, res.Records, 3)

	assert.True(t, res.Records[0].IsHeaderArtifact(), "first line is emitted for the sanitizer")

	rec := res.Records[1]
	assert.Equal(t, "A002", rec.ControlArea)
	assert.Equal(t, "59 ST", rec.Station)
	assert.Equal(t, "456NQRW", rec.LineName)
	assert.Equal(t, "1000", rec.EntriesText)
	assert.Equal(t, time.Date(2021, 1, 2, 3, 0, 0, 0, time.UTC), rec.Timestamp)
	assert.Equal(t, "week.txt", rec.Source)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, 1, rec.Seq)
	assert.False(t, rec.Coerced)
}

func TestReadTrimsFields(t *testing.T) {
	body := testutil.SourceHeader + "\n" +
		"A002 ,R051,02-00-00,59 ST ,NQR456W,BMT,01/02/2021,03:00:00,REGULAR,0000001000 ,0000000500   \n"

	res, err := NewReader(nil).Read(context.Background(), strings.NewReader(body), "week.txt")
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "A002", res.Records[1].ControlArea)
	assert.Equal(t, "59 ST", res.Records[1].Station)
	assert.Equal(t, "0000000500", res.Records[1].ExitsText)
}

func TestReadRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"too few fields", "A002,R051,02-00-00,59 ST", ""},
		{"missing station", "A002,R051,02-00-00,,NQR456W,BMT,01/02/2021,03:00:00,REGULAR,1,1", "STATION"},
		{"bad date", "A002,R051,02-00-00,59 ST,NQR456W,BMT,2021-01-02,03:00:00,REGULAR,1,1", "DATE/TIME"},
		{"bad time", "A002,R051,02-00-00,59 ST,NQR456W,BMT,01/02/2021,3pm,REGULAR,1,1", "DATE/TIME"},
		{"non numeric entries", "A002,R051,02-00-00,59 ST,NQR456W,BMT,01/02/2021,03:00:00,REGULAR,lots,1", "ENTRIES"},
		{"negative exits", "A002,R051,02-00-00,59 ST,NQR456W,BMT,01/02/2021,03:00:00,REGULAR,1,-4", "EXITS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := testutil.SourceText(counter.At("01/02/2021", "03:00:00", 1, 1)) + tt.line + "\n"

			res, err := NewReader(nil).Read(context.Background(), strings.NewReader(body), "bad.txt")
			require.NoError(t, err)
			assert.Len(t, res.Records, 2, "good rows survive")
			require.Len(t, res.Failures, 1)

			failure := res.Failures[0]
			assert.Equal(t, apperrors.KindParse, failure.Kind)
			assert.Equal(t, "bad.txt", failure.Source)
			assert.Equal(t, 3, failure.Line)
			assert.Equal(t, tt.field, failure.Field)
		})
	}
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(nil).Read(ctx, strings.NewReader(testutil.SourceText()), "x.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFileMissing(t *testing.T) {
	_, err := NewReader(nil).ReadFile(context.Background(), filepath.Join(t.TempDir(), "turnstile_210102.txt"))

	var fileErr *apperrors.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Contains(t, fileErr.Path, "turnstile_210102.txt")
}

func TestReadFileText(t *testing.T) {
	path := testutil.WriteSourceFile(t, t.TempDir(), "turnstile_210102.txt",
		counter.At("01/02/2021", "03:00:00", 1000, 500))

	res, err := NewReader(nil).ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "turnstile_210102.txt", res.Source)
	assert.Len(t, res.Records, 2)
}

func TestReadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turnstile_210102.xlsx")

	f := excelize.NewFile()
	rows := [][]string{
		strings.Split(testutil.SourceHeader, ","),
		counter.At("01/02/2021", "03:00:00", 1000, 500).Fields(),
		{},
		counter.At("01/02/2021", "07:00:00", 1050, 520).Fields(),
		{"A002", "R051"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res, err := NewReader(nil).ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 5, res.Failures[0].Line)
	assert.Equal(t, "1050", res.Records[2].EntriesText)
}

func TestReadWorkbookCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turnstile_210102.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(testutil.SourceHeader+"\n"), 0o644))

	_, err := NewReader(nil).ReadFile(context.Background(), path)
	require.Error(t, err)

	var fileErr *apperrors.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, path, fileErr.Path)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestConcatNumbersRecords(t *testing.T) {
	r := NewReader(nil)
	a, err := r.Read(context.Background(), strings.NewReader(testutil.SourceText(counter.At("01/02/2021", "03:00:00", 1, 1))), "a.txt")
	require.NoError(t, err)
	b, err := r.Read(context.Background(), strings.NewReader(testutil.SourceText(counter.At("01/09/2021", "03:00:00", 2, 2))), "b.txt")
	require.NoError(t, err)

	all := Concat([]*ReadResult{a, nil, b})
	require.Len(t, all, 4)
	for i, rec := range all {
		assert.Equal(t, i, rec.Seq)
	}
	assert.Equal(t, "a.txt", all[1].Source)
	assert.Equal(t, "b.txt", all[2].Source)
	assert.True(t, all[2].IsHeaderArtifact())
}

func TestParseCounter(t *testing.T) {
	v, err := ParseCounter(" 0000001234 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)

	_, err = ParseCounter("-1")
	assert.Error(t, err)
	_, err = ParseCounter("ENTRIES")
	assert.Error(t, err)
}

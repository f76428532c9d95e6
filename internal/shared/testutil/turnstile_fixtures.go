package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SourceHeader is the header line of a weekly turnstile file
const SourceHeader = "C/A,UNIT,SCP,STATION,LINENAME,DIVISION,DATE,TIME,DESC,ENTRIES,EXITS"

// Row builds one source line. Dates are MM/DD/YYYY, times HH:MM:SS.
type Row struct {
	ControlArea string
	Unit        string
	SCP         string
	Station     string
	LineName    string
	Date        string
	Time        string
	Entries     string
	Exits       string
}

// Turnstile returns a row for the given counter identity with defaults for
// the remaining fields
func Turnstile(ca, unit, scp, station string) Row {
	return Row{ControlArea: ca, Unit: unit, SCP: scp, Station: station, LineName: "NQR456W"}
}

// At returns a copy of r read at date and clock
func (r Row) At(date, clock string, entries, exits int64) Row {
	r.Date, r.Time = date, clock
	r.Entries = fmt.Sprintf("%d", entries)
	r.Exits = fmt.Sprintf("%d", exits)
	return r
}

// Line renders the row as it appears in a source file
func (r Row) Line() string {
	return strings.Join([]string{
		r.ControlArea, r.Unit, r.SCP, r.Station, r.LineName, "BMT",
		r.Date, r.Time, "REGULAR", r.Entries, r.Exits,
	}, ",")
}

// Fields returns the row's eleven fields
func (r Row) Fields() []string {
	return strings.Split(r.Line(), ",")
}

// SourceText renders a file body: the header followed by rows
func SourceText(rows ...Row) string {
	var b strings.Builder
	b.WriteString(SourceHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(r.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteSourceFile writes a source file under dir and returns its path
func WriteSourceFile(t *testing.T, dir, name string, rows ...Row) string {
	t.Helper()
	return WriteRawFile(t, dir, name, SourceText(rows...))
}

// WriteRawFile writes body verbatim under dir and returns its path
func WriteRawFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

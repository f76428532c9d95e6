package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	// DateLayout is the source date format (MM/DD/YYYY)
	DateLayout = "01/02/2006"

	// TimeLayout is the source time-of-day format (HH:MM:SS)
	TimeLayout = "15:04:05"

	// TimestampLayout parses the concatenation of a date and a time field
	TimestampLayout = DateLayout + TimeLayout

	// HeaderEntriesToken is the literal value of the entries column in a header row
	HeaderEntriesToken = "ENTRIES"

	// HeaderExitsToken is the literal value of the exits column in a header row
	HeaderExitsToken = "EXITS"
)

// FieldCount is the number of columns in a turnstile source row
const FieldCount = 11

// Column names in source order
var Columns = []string{
	"C/A", "UNIT", "SCP", "STATION", "LINENAME", "DIVISION",
	"DATE", "TIME", "DESC", HeaderEntriesToken, HeaderExitsToken,
}

// CounterKey identifies one physical turnstile counter.
type CounterKey struct {
	ControlArea string `json:"control_area"`
	Unit        string `json:"unit"`
	SCP         string `json:"scp"`
	Station     string `json:"station"`
}

// StationID identifies a station by name and its canonical line-name set.
type StationID struct {
	Name     string `json:"name"`
	LineName string `json:"line_name"`
}

// String renders the station as "NAME (LINES)"
func (s StationID) String() string {
	if s.LineName == "" {
		return s.Name
	}
	return s.Name + " (" + s.LineName + ")"
}

// Compare orders stations by name, then line set.
func (s StationID) Compare(other StationID) int {
	if c := strings.Compare(s.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(s.LineName, other.LineName)
}

// CanonicalLineName sorts the characters of a line-name set so that
// permutations such as "NQR" and "RNQ" compare equal.
func CanonicalLineName(lines string) string {
	runes := []rune(strings.TrimSpace(lines))
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

// RawRecord is one cumulative reading of one physical counter, as read from
// a source file. Entries and Exits are only meaningful once Coerced is set.
type RawRecord struct {
	ControlArea string `json:"control_area"`
	Unit        string `json:"unit"`
	SCP         string `json:"scp"`
	Station     string `json:"station"`
	LineName    string `json:"line_name"`
	Division    string `json:"division"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
	EntriesText string `json:"entries_text"`
	ExitsText   string `json:"exits_text"`

	Timestamp time.Time `json:"timestamp"`
	Entries   int64     `json:"entries"`
	Exits     int64     `json:"exits"`
	Coerced   bool      `json:"coerced"`

	Source string `json:"source"`
	Line   int    `json:"line"`
	Seq    int    `json:"seq"`
}

// Key returns the physical-counter identity of the reading.
func (r RawRecord) Key() CounterKey {
	return CounterKey{
		ControlArea: r.ControlArea,
		Unit:        r.Unit,
		SCP:         r.SCP,
		Station:     r.Station,
	}
}

// StationID returns the station identity of the reading.
func (r RawRecord) StationID() StationID {
	return StationID{Name: r.Station, LineName: r.LineName}
}

// IsHeaderArtifact reports whether the row is a re-emitted column header.
func (r RawRecord) IsHeaderArtifact() bool {
	return strings.EqualFold(strings.TrimSpace(r.EntriesText), HeaderEntriesToken)
}

// DeltaRecord carries the per-interval change of a reading relative to the
// preceding reading of the same counter. Deltas may be negative or huge;
// validity is decided by the cleaner.
type DeltaRecord struct {
	Record     RawRecord `json:"record"`
	EntryDelta int64     `json:"entry_delta"`
	ExitDelta  int64     `json:"exit_delta"`
}

// CleanedRecord is a validated per-interval usage count.
type CleanedRecord struct {
	Station   StationID `json:"station"`
	Timestamp time.Time `json:"timestamp"`
	Date      time.Time `json:"date"`
	Time      string    `json:"time"`
	Entries   int64     `json:"entries"`
	Exits     int64     `json:"exits"`
	Weekday   Weekday   `json:"weekday"`
}

// Hour returns the hour of day of the reading.
func (c CleanedRecord) Hour() int {
	return c.Timestamp.Hour()
}

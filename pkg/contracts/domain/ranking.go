package domain

import (
	"fmt"
	"strings"
	"time"
)

// GroupBy selects the grouping key of a ranking
type GroupBy string

const (
	GroupByStation        GroupBy = "station"
	GroupByStationDate    GroupBy = "station_date"
	GroupByStationTime    GroupBy = "station_time"
	GroupByWeekday        GroupBy = "weekday"
	GroupByStationWeekday GroupBy = "station_weekday"
)

// Groupings lists every supported grouping in report order
var Groupings = []GroupBy{
	GroupByStation,
	GroupByStationDate,
	GroupByStationTime,
	GroupByWeekday,
	GroupByStationWeekday,
}

// ParseGroupBy validates a grouping name
func ParseGroupBy(s string) (GroupBy, error) {
	g := GroupBy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Groupings {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// Title returns a human readable label for the grouping
func (g GroupBy) Title() string {
	switch g {
	case GroupByStation:
		return "Busiest stations"
	case GroupByStationDate:
		return "Busiest station days"
	case GroupByStationTime:
		return "Busiest station times"
	case GroupByWeekday:
		return "Busiest weekdays"
	case GroupByStationWeekday:
		return "Busiest station weekdays"
	default:
		return string(g)
	}
}

// GroupKey is the key of one aggregated group. Only the fields relevant to
// the grouping are populated.
type GroupKey struct {
	Station StationID `json:"station,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Time    string    `json:"time,omitempty"`
	Weekday Weekday   `json:"weekday"`
	HasDay  bool      `json:"has_day"`
}

// Compare orders keys by station, date, time and weekday.
func (k GroupKey) Compare(other GroupKey) int {
	if c := k.Station.Compare(other.Station); c != 0 {
		return c
	}
	if c := k.Date.Compare(other.Date); c != 0 {
		return c
	}
	if c := strings.Compare(k.Time, other.Time); c != 0 {
		return c
	}
	switch {
	case k.HasDay != other.HasDay:
		if k.HasDay {
			return 1
		}
		return -1
	case k.Weekday < other.Weekday:
		return -1
	case k.Weekday > other.Weekday:
		return 1
	}
	return 0
}

// Labels returns the key's populated fields as display strings.
func (k GroupKey) Labels() []string {
	var labels []string
	if k.Station.Name != "" {
		labels = append(labels, k.Station.String())
	}
	if !k.Date.IsZero() {
		labels = append(labels, k.Date.Format(DateLayout))
	}
	if k.Time != "" {
		labels = append(labels, k.Time)
	}
	if k.HasDay {
		labels = append(labels, k.Weekday.String())
	}
	return labels
}

// String joins the key labels
func (k GroupKey) String() string {
	return strings.Join(k.Labels(), " / ")
}

// RankedEntry is one (group, aggregate) pair
type RankedEntry struct {
	Key   GroupKey `json:"key"`
	Label string   `json:"label"`
	Value int64    `json:"value"`
}

// Series is a ranked sequence sorted by descending value
type Series []RankedEntry

// Total sums the values of the series
func (s Series) Total() int64 {
	var total int64
	for _, e := range s {
		total += e.Value
	}
	return total
}

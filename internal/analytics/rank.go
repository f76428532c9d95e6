package analytics

import (
	"fmt"
	"sort"

	"turnstilecli/pkg/contracts/domain"
)

// KeyFor derives the grouping key of a record
func KeyFor(g domain.GroupBy, rec domain.CleanedRecord) (domain.GroupKey, error) {
	switch g {
	case domain.GroupByStation:
		return domain.GroupKey{Station: rec.Station}, nil
	case domain.GroupByStationDate:
		return domain.GroupKey{Station: rec.Station, Date: rec.Date}, nil
	case domain.GroupByStationTime:
		return domain.GroupKey{Station: rec.Station, Time: rec.Time}, nil
	case domain.GroupByWeekday:
		return domain.GroupKey{Weekday: rec.Weekday, HasDay: true}, nil
	case domain.GroupByStationWeekday:
		return domain.GroupKey{Station: rec.Station, Weekday: rec.Weekday, HasDay: true}, nil
	default:
		return domain.GroupKey{}, fmt.Errorf("unknown grouping %q", g)
	}
}

// Rank sums exits per group and returns the n largest groups. Ties are
// ordered by key. A non-positive n returns every group.
func Rank(records []domain.CleanedRecord, g domain.GroupBy, n int) (domain.Series, error) {
	totals := make(map[domain.GroupKey]int64)
	for _, rec := range records {
		key, err := KeyFor(g, rec)
		if err != nil {
			return nil, err
		}
		totals[key] += rec.Exits
	}
	return TopN(totals, n), nil
}

// TopN sorts the totals descending by value, breaking ties by key order,
// and truncates to n entries.
func TopN(totals map[domain.GroupKey]int64, n int) domain.Series {
	series := make(domain.Series, 0, len(totals))
	for key, value := range totals {
		series = append(series, domain.RankedEntry{Key: key, Label: key.String(), Value: value})
	}
	sortSeries(series)
	if n > 0 && len(series) > n {
		series = series[:n]
	}
	return series
}

func sortSeries(series domain.Series) {
	sort.Slice(series, func(i, j int) bool {
		if series[i].Value != series[j].Value {
			return series[i].Value > series[j].Value
		}
		return series[i].Key.Compare(series[j].Key) < 0
	})
}

// BusiestStations ranks stations by total exits
func BusiestStations(records []domain.CleanedRecord, n int) domain.Series {
	s, _ := Rank(records, domain.GroupByStation, n)
	return s
}

// BusiestDays ranks (station, date) pairs by total exits
func BusiestDays(records []domain.CleanedRecord, n int) domain.Series {
	s, _ := Rank(records, domain.GroupByStationDate, n)
	return s
}

// BusiestTimes ranks (station, time of day) pairs by exits accumulated
// across dates
func BusiestTimes(records []domain.CleanedRecord, n int) domain.Series {
	s, _ := Rank(records, domain.GroupByStationTime, n)
	return s
}

// BusiestWeekdays ranks days of week by exits across all stations
func BusiestWeekdays(records []domain.CleanedRecord, n int) domain.Series {
	s, _ := Rank(records, domain.GroupByWeekday, n)
	return s
}

// BusiestStationWeekdays ranks (station, day of week) pairs by total exits
func BusiestStationWeekdays(records []domain.CleanedRecord, n int) domain.Series {
	s, _ := Rank(records, domain.GroupByStationWeekday, n)
	return s
}

// Query is a filtered ranking request
type Query struct {
	GroupBy domain.GroupBy `json:"group_by" validate:"required,oneof=station station_date station_time weekday station_weekday"`
	Window  TimeWindow     `json:"window"`
	Limit   int            `json:"limit" validate:"min=0,max=1000"`
}

// Run applies the window and ranks the remaining records
func (q Query) Run(records []domain.CleanedRecord) (domain.Series, error) {
	if err := q.Window.Validate(); err != nil {
		return nil, err
	}
	return Rank(q.Window.Apply(records), q.GroupBy, q.Limit)
}

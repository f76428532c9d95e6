package analytics

import (
	"math"
	"sort"
	"time"

	"turnstilecli/pkg/contracts/domain"
)

// StationReading is the sum of all counters of a station at one timestamp
type StationReading struct {
	Station   domain.StationID `json:"station"`
	Timestamp time.Time        `json:"timestamp"`
	Date      time.Time        `json:"date"`
	Exits     int64            `json:"exits"`
}

// HourlyRate is a station reading divided by the hours since the
// station's previous reading
type HourlyRate struct {
	StationReading
	Hours float64 `json:"hours"`
	Rate  int64   `json:"rate"`
}

// DailyRate aggregates hourly rates per station and date
type DailyRate struct {
	Station  domain.StationID `json:"station"`
	Date     time.Time        `json:"date"`
	MeanRate float64          `json:"mean_rate"`
	Exits    int64            `json:"exits"`
}

type stationInstant struct {
	station domain.StationID
	ts      time.Time
}

// StationTimeline sums exits over every turnstile of a station per
// timestamp, ordered by station then time.
func StationTimeline(records []domain.CleanedRecord) []StationReading {
	sums := make(map[stationInstant]*StationReading)
	for _, rec := range records {
		k := stationInstant{station: rec.Station, ts: rec.Timestamp}
		if r, ok := sums[k]; ok {
			r.Exits += rec.Exits
			continue
		}
		sums[k] = &StationReading{Station: rec.Station, Timestamp: rec.Timestamp, Date: rec.Date, Exits: rec.Exits}
	}

	timeline := make([]StationReading, 0, len(sums))
	for _, r := range sums {
		timeline = append(timeline, *r)
	}
	sort.Slice(timeline, func(i, j int) bool {
		if c := timeline[i].Station.Compare(timeline[j].Station); c != 0 {
			return c < 0
		}
		return timeline[i].Timestamp.Before(timeline[j].Timestamp)
	})
	return timeline
}

// HourlyRates converts a station timeline into exits per hour. Readings
// less than or equal to minGap after the previous reading of the same
// station are dropped, as is the first reading of every station.
func HourlyRates(timeline []StationReading, minGap time.Duration) []HourlyRate {
	var rates []HourlyRate
	for i := 1; i < len(timeline); i++ {
		prev, cur := timeline[i-1], timeline[i]
		if prev.Station != cur.Station {
			continue
		}
		gap := cur.Timestamp.Sub(prev.Timestamp)
		if gap <= minGap {
			continue
		}
		hours := gap.Hours()
		rates = append(rates, HourlyRate{
			StationReading: cur,
			Hours:          hours,
			Rate:           int64(float64(cur.Exits) / hours),
		})
	}
	return rates
}

// DailyRates averages hourly rates and sums exits per station and date
func DailyRates(rates []HourlyRate) []DailyRate {
	type dayKey struct {
		station domain.StationID
		date    time.Time
	}
	type acc struct {
		sum, n int64
		exits  int64
	}

	accs := make(map[dayKey]*acc)
	for _, r := range rates {
		k := dayKey{station: r.Station, date: r.Date}
		a, ok := accs[k]
		if !ok {
			a = &acc{}
			accs[k] = a
		}
		a.sum += r.Rate
		a.n++
		a.exits += r.Exits
	}

	daily := make([]DailyRate, 0, len(accs))
	for k, a := range accs {
		daily = append(daily, DailyRate{
			Station:  k.station,
			Date:     k.date,
			MeanRate: float64(a.sum) / float64(a.n),
			Exits:    a.exits,
		})
	}
	sort.Slice(daily, func(i, j int) bool {
		if c := daily[i].Station.Compare(daily[j].Station); c != 0 {
			return c < 0
		}
		return daily[i].Date.Before(daily[j].Date)
	})
	return daily
}

// BusiestHourlyRates ranks stations by their mean hourly exit rate,
// rounded to whole exits per hour.
func BusiestHourlyRates(rates []HourlyRate, n int) domain.Series {
	sums := make(map[domain.StationID][2]int64)
	for _, r := range rates {
		s := sums[r.Station]
		s[0] += r.Rate
		s[1]++
		sums[r.Station] = s
	}

	totals := make(map[domain.GroupKey]int64, len(sums))
	for station, s := range sums {
		totals[domain.GroupKey{Station: station}] = int64(math.Round(float64(s[0]) / float64(s[1])))
	}
	return TopN(totals, n)
}

// PeakReadings ranks stations by their single largest timeline reading.
func PeakReadings(timeline []StationReading, n int) domain.Series {
	peaks := make(map[domain.StationID]StationReading)
	for _, r := range timeline {
		if best, ok := peaks[r.Station]; !ok || r.Exits > best.Exits {
			peaks[r.Station] = r
		}
	}

	totals := make(map[domain.GroupKey]int64, len(peaks))
	for station, r := range peaks {
		key := domain.GroupKey{Station: station, Date: r.Date, Time: r.Timestamp.Format(domain.TimeLayout)}
		totals[key] = r.Exits
	}
	return TopN(totals, n)
}

// WeekdayProfile returns the station's exits per day of week divided by the
// number of weeks covered. weeks below one is treated as one.
func WeekdayProfile(records []domain.CleanedRecord, station domain.StationID, weeks int) [7]float64 {
	var profile [7]float64
	if weeks < 1 {
		weeks = 1
	}
	for _, rec := range records {
		if rec.Station == station {
			profile[rec.Weekday] += float64(rec.Exits)
		}
	}
	for i := range profile {
		profile[i] /= float64(weeks)
	}
	return profile
}

// Weeks returns the number of (possibly partial) weeks spanned by the records
func Weeks(records []domain.CleanedRecord) int {
	if len(records) == 0 {
		return 0
	}
	first, last := records[0].Date, records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(first) {
			first = rec.Date
		}
		if rec.Date.After(last) {
			last = rec.Date
		}
	}
	days := int(last.Sub(first).Hours()/24) + 1
	return (days + 6) / 7
}

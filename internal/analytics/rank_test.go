package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstilecli/pkg/contracts/domain"
)

var (
	stationA = domain.StationID{Name: "59 ST", LineName: "456NQRW"}
	stationB = domain.StationID{Name: "CANAL ST", LineName: "JNQRZ6W"}
	stationC = domain.StationID{Name: "ZEREGA AV", LineName: "6"}
)

// record builds a cleaned record at the given day and clock
func record(station domain.StationID, day time.Time, hour int, exits int64) domain.CleanedRecord {
	ts := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
	return domain.CleanedRecord{
		Station:   station,
		Timestamp: ts,
		Date:      time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		Time:      ts.Format(domain.TimeLayout),
		Exits:     exits,
		Weekday:   domain.WeekdayOf(ts),
	}
}

var (
	monday   = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	tuesday  = monday.AddDate(0, 0, 1)
	saturday = monday.AddDate(0, 0, 5)
)

func TestRankTopStation(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 10),
		record(stationA, monday, 12, 20),
		record(stationB, monday, 8, 5),
	}

	series, err := Rank(records, domain.GroupByStation, 1)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, domain.GroupKey{Station: stationA}, series[0].Key)
	assert.Equal(t, int64(30), series[0].Value)
	assert.Equal(t, "59 ST (456NQRW)", series[0].Label)
}

func TestRankNonPositiveNReturnsAll(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 10),
		record(stationB, monday, 8, 5),
		record(stationC, monday, 8, 1),
	}

	for _, n := range []int{0, -1} {
		series, err := Rank(records, domain.GroupByStation, n)
		require.NoError(t, err)
		assert.Len(t, series, 3)
	}

	series, err := Rank(records, domain.GroupByStation, 10)
	require.NoError(t, err)
	assert.Len(t, series, 3, "n larger than the group count returns every group")
}

func TestRankTiesOrderedByKey(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationC, monday, 8, 7),
		record(stationA, monday, 8, 7),
		record(stationB, monday, 8, 7),
	}

	series, err := Rank(records, domain.GroupByStation, 0)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, stationA, series[0].Key.Station)
	assert.Equal(t, stationB, series[1].Key.Station)
	assert.Equal(t, stationC, series[2].Key.Station)
}

func TestRankDescending(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 1),
		record(stationB, monday, 8, 50),
		record(stationC, monday, 8, 9),
	}

	series, err := Rank(records, domain.GroupByStation, 0)
	require.NoError(t, err)
	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i-1].Value, series[i].Value)
	}
	assert.Equal(t, int64(60), series.Total())
}

func TestRankGroupings(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 10),
		record(stationA, tuesday, 8, 20),
		record(stationA, monday, 12, 5),
		record(stationB, saturday, 8, 3),
	}

	tests := []struct {
		group domain.GroupBy
		top   domain.GroupKey
		value int64
		size  int
	}{
		{domain.GroupByStation, domain.GroupKey{Station: stationA}, 35, 2},
		{domain.GroupByStationDate, domain.GroupKey{Station: stationA, Date: tuesday}, 20, 3},
		{domain.GroupByStationTime, domain.GroupKey{Station: stationA, Time: "08:00:00"}, 30, 3},
		{domain.GroupByWeekday, domain.GroupKey{Weekday: domain.Tuesday, HasDay: true}, 20, 3},
		{domain.GroupByStationWeekday, domain.GroupKey{Station: stationA, Weekday: domain.Tuesday, HasDay: true}, 20, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			series, err := Rank(records, tt.group, 0)
			require.NoError(t, err)
			assert.Len(t, series, tt.size)
			assert.Equal(t, tt.top, series[0].Key)
			assert.Equal(t, tt.value, series[0].Value)
		})
	}
}

func TestRankWeekdayLabels(t *testing.T) {
	series, err := Rank([]domain.CleanedRecord{record(stationA, monday, 8, 10)}, domain.GroupByStationWeekday, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"59 ST (456NQRW)", "Monday"}, series[0].Key.Labels())
}

func TestRankUnknownGrouping(t *testing.T) {
	_, err := Rank([]domain.CleanedRecord{record(stationA, monday, 8, 10)}, "borough", 1)
	assert.Error(t, err)
}

func TestRankEmpty(t *testing.T) {
	series, err := Rank(nil, domain.GroupByStation, 5)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestBusiestHelpers(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 10),
		record(stationB, saturday, 8, 30),
	}

	assert.Equal(t, stationB, BusiestStations(records, 1)[0].Key.Station)
	assert.Equal(t, saturday, BusiestDays(records, 1)[0].Key.Date)
	assert.Equal(t, "08:00:00", BusiestTimes(records, 1)[0].Key.Time)
	assert.Equal(t, domain.Saturday, BusiestWeekdays(records, 1)[0].Key.Weekday)
	assert.Equal(t, domain.Saturday, BusiestStationWeekdays(records, 1)[0].Key.Weekday)
}

func TestQueryRun(t *testing.T) {
	records := []domain.CleanedRecord{
		record(stationA, monday, 8, 10),
		record(stationA, monday, 20, 100),
		record(stationB, monday, 9, 15),
		record(stationB, saturday, 9, 500),
	}

	q := Query{
		GroupBy: domain.GroupByStation,
		Window:  TimeWindow{StartHour: 6, EndHour: 10, Days: domain.DayFilterWeekday},
		Limit:   2,
	}
	series, err := q.Run(records)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, stationB, series[0].Key.Station)
	assert.Equal(t, int64(15), series[0].Value)
	assert.Equal(t, int64(10), series[1].Value)

	q.Window = TimeWindow{StartHour: 10, EndHour: 10}
	_, err = q.Run(records)
	assert.Error(t, err)
}

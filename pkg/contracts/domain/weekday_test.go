package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf(t *testing.T) {
	monday := time.Date(2021, 1, 4, 8, 0, 0, 0, time.UTC)
	for i, want := range Weekdays {
		assert.Equal(t, want, WeekdayOf(monday.AddDate(0, 0, i)))
	}
}

func TestWeekdayString(t *testing.T) {
	assert.Equal(t, "Monday", Monday.String())
	assert.Equal(t, "Sunday", Sunday.String())
	assert.Equal(t, "Weekday(9)", Weekday(9).String())

	text, err := Saturday.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Saturday", string(text))
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{"monday", Monday, false},
		{" Friday ", Friday, false},
		{"SUN", Sunday, false},
		{"wed", Wednesday, false},
		{"mo", 0, true},
		{"holiday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayFilter(t *testing.T) {
	tests := []struct {
		filter  DayFilter
		weekday bool
		weekend bool
	}{
		{DayFilterAll, true, true},
		{"", true, true},
		{DayFilterWeekday, true, false},
		{DayFilterWeekend, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			assert.Equal(t, tt.weekday, tt.filter.Matches(Friday))
			assert.Equal(t, tt.weekend, tt.filter.Matches(Sunday))
		})
	}

	f, err := ParseDayFilter("")
	require.NoError(t, err)
	assert.Equal(t, DayFilterAll, f)

	f, err = ParseDayFilter("Weekend")
	require.NoError(t, err)
	assert.Equal(t, DayFilterWeekend, f)

	_, err = ParseDayFilter("holidays")
	assert.Error(t, err)
}

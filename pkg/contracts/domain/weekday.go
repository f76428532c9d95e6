package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of week in ISO order (Monday first).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Weekdays lists all days in order
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf converts a time to its ISO weekday.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// String returns the English day name
func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// IsWeekend reports whether the day is Saturday or Sunday
func (d Weekday) IsWeekend() bool {
	return d == Saturday || d == Sunday
}

// MarshalText implements encoding.TextMarshaler
func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseWeekday parses a day name, case-insensitively. Three-letter
// abbreviations are accepted.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if s == lower || (len(s) == 3 && strings.HasPrefix(lower, s)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// DayFilter restricts records to weekdays, weekends or all days.
type DayFilter string

const (
	DayFilterAll     DayFilter = "all"
	DayFilterWeekday DayFilter = "weekday"
	DayFilterWeekend DayFilter = "weekend"
)

// Matches reports whether d passes the filter. The empty filter matches all days.
func (f DayFilter) Matches(d Weekday) bool {
	switch f {
	case DayFilterWeekday:
		return !d.IsWeekend()
	case DayFilterWeekend:
		return d.IsWeekend()
	default:
		return true
	}
}

// ParseDayFilter validates a filter mode
func ParseDayFilter(s string) (DayFilter, error) {
	switch f := DayFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", DayFilterAll:
		return DayFilterAll, nil
	case DayFilterWeekday, DayFilterWeekend:
		return f, nil
	default:
		return "", fmt.Errorf("unknown day filter %q", s)
	}
}

package analytics

import (
	"fmt"

	"turnstilecli/pkg/contracts/domain"
)

// TimeWindow restricts records to hours in [StartHour, EndHour) on the days
// selected by Days.
type TimeWindow struct {
	StartHour int              `json:"start_hour" validate:"min=0,max=23"`
	EndHour   int              `json:"end_hour" validate:"min=1,max=24,gtfield=StartHour"`
	Days      domain.DayFilter `json:"days" validate:"omitempty,oneof=all weekday weekend"`
}

// FullDay is the window that keeps every record
func FullDay() TimeWindow {
	return TimeWindow{StartHour: 0, EndHour: 24, Days: domain.DayFilterAll}
}

// Validate checks the hour bounds
func (w TimeWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return fmt.Errorf("start hour %d out of range [0,23]", w.StartHour)
	}
	if w.EndHour < 1 || w.EndHour > 24 {
		return fmt.Errorf("end hour %d out of range [1,24]", w.EndHour)
	}
	if w.StartHour >= w.EndHour {
		return fmt.Errorf("start hour %d must be before end hour %d", w.StartHour, w.EndHour)
	}
	if _, err := domain.ParseDayFilter(string(w.Days)); err != nil {
		return err
	}
	return nil
}

// Contains reports whether the record falls inside the window
func (w TimeWindow) Contains(rec domain.CleanedRecord) bool {
	h := rec.Hour()
	return h >= w.StartHour && h < w.EndHour && w.Days.Matches(rec.Weekday)
}

// Apply returns the records inside the window as a new slice
func (w TimeWindow) Apply(records []domain.CleanedRecord) []domain.CleanedRecord {
	out := make([]domain.CleanedRecord, 0, len(records))
	for _, rec := range records {
		if w.Contains(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Package api contains the request and response contracts of the turnstile
// reporting API. Version v1 is the current stable API version.
package api

import (
	"time"

	"turnstilecli/pkg/contracts/domain"
)

// RankingRequest selects a grouping, a time window and a result size.
// Query parameters: n, start, end, days; group comes from the path.
type RankingRequest struct {
	GroupBy string `json:"group" validate:"required,oneof=station station_date station_time weekday station_weekday"`
	N       int    `json:"n" validate:"min=1,max=1000"`
	Start   int    `json:"start" validate:"min=0,max=23"`
	End     int    `json:"end" validate:"min=1,max=24,gtfield=Start"`
	Days    string `json:"days" validate:"oneof=all weekday weekend"`
}

// TopRequest asks for the first n entries of a fixed ranking
type TopRequest struct {
	N int `json:"n" validate:"min=1,max=1000"`
}

// LoadRequest starts a load. With both dates set the weekly files
// published in [from, to) are loaded, otherwise every file in the data
// directory. Setting only one of the dates is rejected.
type LoadRequest struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// RankingEntry is one ranked group
type RankingEntry struct {
	Rank   int      `json:"rank"`
	Key    string   `json:"key"`
	Labels []string `json:"labels"`
	Value  int64    `json:"value"`
}

// RankingResponse is the result of a ranking request
type RankingResponse struct {
	GroupBy string         `json:"group_by"`
	Title   string         `json:"title"`
	Start   int            `json:"start"`
	End     int            `json:"end"`
	Days    string         `json:"days"`
	LoadID  string         `json:"load_id"`
	Total   int64          `json:"total"`
	Entries []RankingEntry `json:"entries"`
}

// WeekdayProfileResponse holds a station's mean weekly exits per weekday
type WeekdayProfileResponse struct {
	Station string             `json:"station"`
	Profile map[string]float64 `json:"profile"`
}

// NewRankingEntries numbers a series from 1
func NewRankingEntries(series domain.Series) []RankingEntry {
	entries := make([]RankingEntry, len(series))
	for i, e := range series {
		entries[i] = RankingEntry{
			Rank:   i + 1,
			Key:    e.Label,
			Labels: e.Key.Labels(),
			Value:  e.Value,
		}
	}
	return entries
}

// ParseDate parses a YYYY-MM-DD request date; empty yields the zero time
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

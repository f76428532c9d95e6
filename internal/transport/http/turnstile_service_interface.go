package http

import (
	"context"
	"time"

	"turnstilecli/internal/analytics"
	"turnstilecli/internal/services"
	"turnstilecli/pkg/contracts/domain"
)

// TurnstileServiceInterface is the part of services.TurnstileService the
// HTTP layer depends on
type TurnstileServiceInterface interface {
	LoadDirectory(ctx context.Context, dir string, start, end time.Time, ext string) (*services.LoadReport, error)
	Report() (*services.LoadReport, error)
	Rank(ctx context.Context, q analytics.Query) (domain.Series, error)
	HourlyRates(n int) (domain.Series, error)
	DailyRates() ([]analytics.DailyRate, error)
	PeakReadings(n int) (domain.Series, error)
	WeekdayProfile(station domain.StationID) ([7]float64, error)
}

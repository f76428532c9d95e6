package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gonum.org/v1/plot"

	"turnstilecli/internal/analytics"
	"turnstilecli/internal/charts"
	apperrors "turnstilecli/internal/errors"
	"turnstilecli/internal/middleware"
	"turnstilecli/internal/services"
	api "turnstilecli/pkg/contracts/api/v1"
	"turnstilecli/pkg/contracts/domain"
)

// QueryDefaults fill in ranking parameters a request leaves out. Zero
// fields fall back to every hour of every day, the top 10 and the station
// grouping.
type QueryDefaults struct {
	TopN      int
	StartHour int
	EndHour   int
	Days      string
	GroupBy   string
}

func (d QueryDefaults) withFallbacks() QueryDefaults {
	if d.TopN <= 0 {
		d.TopN = 10
	}
	if d.EndHour <= 0 {
		d.EndHour = 24
	}
	if d.Days == "" {
		d.Days = string(domain.DayFilterAll)
	}
	if d.GroupBy == "" {
		d.GroupBy = string(domain.GroupByStation)
	}
	return d
}

// Settings tells POST /load where to find source files and supplies the
// query defaults
type Settings struct {
	DataDir  string
	FileExt  string
	Defaults QueryDefaults
}

// TurnstileHandler serves rankings, rates and load reports
type TurnstileHandler struct {
	service      TurnstileServiceInterface
	settings     Settings
	validator    *middleware.Validator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewTurnstileHandler creates a new turnstile handler
func NewTurnstileHandler(service TurnstileServiceInterface, settings Settings, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *TurnstileHandler {
	settings.Defaults = settings.Defaults.withFallbacks()
	return &TurnstileHandler{
		service:      service,
		settings:     settings,
		validator:    middleware.NewValidator(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "turnstile_handler")),
	}
}

// Routes returns the turnstile routes
func (h *TurnstileHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/load", h.Load)
	r.Get("/load/report", h.GetLoadReport)
	r.Get("/rankings", h.GetRanking)
	r.Get("/rankings/{group}", h.GetRanking)
	r.Get("/rates/hourly", h.GetHourlyRates)
	r.Get("/rates/daily", h.GetDailyRates)
	r.Get("/peaks", h.GetPeaks)
	r.Get("/profile", h.GetWeekdayProfile)
	r.Get("/charts/stations.png", h.GetStationsChart)
	r.Get("/charts/profile.png", h.GetProfileChart)

	return r
}

// Load handles POST /load
func (h *TurnstileHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req api.LoadRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apperrors.InvalidParameterError("body", err))
			return
		}
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	from, _ := api.ParseDate(req.From)
	to, _ := api.ParseDate(req.To)
	if from.IsZero() != to.IsZero() {
		h.errorHandler.HandleError(w, r, apperrors.InvalidParameterError("to", errors.New("from and to must be set together")))
		return
	}
	if !from.IsZero() && !from.Before(to) {
		h.errorHandler.HandleError(w, r, apperrors.InvalidParameterError("to", errors.New("to must be after from")))
		return
	}

	report, err := h.service.LoadDirectory(r.Context(), h.settings.DataDir, from, to, h.settings.FileExt)
	if err != nil {
		h.handleServiceError(w, r, report, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded",
		slog.String("load_id", report.ID),
		slog.Int("files_loaded", report.FilesLoaded))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, report)
}

// GetLoadReport handles GET /load/report
func (h *TurnstileHandler) GetLoadReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// GetRanking handles GET /rankings/{group}. Without a group the configured
// grouping is ranked.
func (h *TurnstileHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRankingRequest(r, chi.URLParam(r, "group"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	q := analytics.Query{
		GroupBy: domain.GroupBy(req.GroupBy),
		Window: analytics.TimeWindow{
			StartHour: req.Start,
			EndHour:   req.End,
			Days:      domain.DayFilter(req.Days),
		},
		Limit: req.N,
	}
	series, err := h.service.Rank(r.Context(), q)
	if err != nil {
		h.handleServiceError(w, r, nil, err)
		return
	}

	resp := api.RankingResponse{
		GroupBy: req.GroupBy,
		Title:   q.GroupBy.Title(),
		Start:   req.Start,
		End:     req.End,
		Days:    req.Days,
		Total:   series.Total(),
		Entries: api.NewRankingEntries(series),
	}
	if report, err := h.service.Report(); err == nil {
		resp.LoadID = report.ID
	}
	render.JSON(w, r, resp)
}

// GetHourlyRates handles GET /rates/hourly
func (h *TurnstileHandler) GetHourlyRates(w http.ResponseWriter, r *http.Request) {
	h.renderTop(w, r, h.service.HourlyRates)
}

// GetPeaks handles GET /peaks
func (h *TurnstileHandler) GetPeaks(w http.ResponseWriter, r *http.Request) {
	h.renderTop(w, r, h.service.PeakReadings)
}

// GetDailyRates handles GET /rates/daily
func (h *TurnstileHandler) GetDailyRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.DailyRates()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rates)
}

// GetWeekdayProfile handles GET /profile?station=&lines=
func (h *TurnstileHandler) GetWeekdayProfile(w http.ResponseWriter, r *http.Request) {
	station, ok := h.stationParam(w, r)
	if !ok {
		return
	}

	profile, err := h.service.WeekdayProfile(station)
	if err != nil {
		h.handleServiceError(w, r, nil, err)
		return
	}

	resp := api.WeekdayProfileResponse{Station: station.String(), Profile: make(map[string]float64, len(profile))}
	for _, d := range domain.Weekdays {
		resp.Profile[d.String()] = profile[d]
	}
	render.JSON(w, r, resp)
}

// GetStationsChart handles GET /charts/stations.png?n=&start=&end=&days=
func (h *TurnstileHandler) GetStationsChart(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRankingRequest(r, string(domain.GroupByStation))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	series, err := h.service.Rank(r.Context(), analytics.Query{
		GroupBy: domain.GroupByStation,
		Window:  analytics.TimeWindow{StartHour: req.Start, EndHour: req.End, Days: domain.DayFilter(req.Days)},
		Limit:   req.N,
	})
	if err != nil {
		h.handleServiceError(w, r, nil, err)
		return
	}
	if len(series) == 0 {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("ranking entries"))
		return
	}

	p, err := charts.BarChart(domain.GroupByStation.Title(), "Exits", series)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writePNG(w, r, p)
}

// GetProfileChart handles GET /charts/profile.png?station=&lines=
func (h *TurnstileHandler) GetProfileChart(w http.ResponseWriter, r *http.Request) {
	station, ok := h.stationParam(w, r)
	if !ok {
		return
	}
	profile, err := h.service.WeekdayProfile(station)
	if err != nil {
		h.handleServiceError(w, r, nil, err)
		return
	}

	p, err := charts.WeekdayChart("Weekday profile", []charts.Profile{{Label: station.String(), Values: profile}})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writePNG(w, r, p)
}

func (h *TurnstileHandler) writePNG(w http.ResponseWriter, r *http.Request, p *plot.Plot) {
	var buf bytes.Buffer
	if err := charts.WritePNG(p, &buf, charts.DefaultWidth, charts.DefaultHeight); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "chart write failed", slog.String("error", err.Error()))
	}
}

func (h *TurnstileHandler) stationParam(w http.ResponseWriter, r *http.Request) (domain.StationID, bool) {
	name := strings.TrimSpace(r.URL.Query().Get("station"))
	if name == "" {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationErrors([]apperrors.ValidationError{
			{Field: "station", Message: "station is required"},
		}))
		return domain.StationID{}, false
	}
	return domain.StationID{
		Name:     name,
		LineName: domain.CanonicalLineName(r.URL.Query().Get("lines")),
	}, true
}

func (h *TurnstileHandler) renderTop(w http.ResponseWriter, r *http.Request, top func(int) (domain.Series, error)) {
	n, err := intParam(r, "n", h.settings.Defaults.TopN)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(api.TopRequest{N: n}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series, err := top(n)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.NewRankingEntries(series))
}

func (h *TurnstileHandler) parseRankingRequest(r *http.Request, group string) (api.RankingRequest, error) {
	defaults := h.settings.Defaults
	req := api.RankingRequest{
		GroupBy: strings.ToLower(group),
		Days:    strings.ToLower(r.URL.Query().Get("days")),
	}
	if req.GroupBy == "" {
		req.GroupBy = defaults.GroupBy
	}
	if req.Days == "" {
		req.Days = defaults.Days
	}

	var err error
	if req.N, err = intParam(r, "n", defaults.TopN); err != nil {
		return req, err
	}
	if req.Start, err = intParam(r, "start", defaults.StartHour); err != nil {
		return req, err
	}
	if req.End, err = intParam(r, "end", defaults.EndHour); err != nil {
		return req, err
	}

	return req, h.validator.ValidateStruct(req)
}

// handleServiceError maps load sentinels onto API errors. Query failures
// already carry an AppError type and are rendered as is.
func (h *TurnstileHandler) handleServiceError(w http.ResponseWriter, r *http.Request, report *services.LoadReport, err error) {
	switch {
	case errors.Is(err, services.ErrLoadInProgress):
		err = apperrors.ErrLoadRunning
	case errors.Is(err, services.ErrAllFilesFailed):
		if report != nil {
			err = apperrors.NewWithDetails(http.StatusUnprocessableEntity, "LOAD_FAILED", err.Error(), report)
		} else {
			err = apperrors.LoadFailedError(err)
		}
	case errors.Is(err, services.ErrNoFilesFound):
		err = apperrors.NotFoundError("source files")
	}
	h.errorHandler.HandleError(w, r, err)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidParameterError(name, fmt.Errorf("%q is not an integer", raw))
	}
	return v, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"turnstilecli/internal/analytics"
	"turnstilecli/internal/dataprocessing"
	apperrors "turnstilecli/internal/errors"
	"turnstilecli/internal/files"
	"turnstilecli/internal/infrastructure"
	"turnstilecli/pkg/contracts/domain"
)

// maxSamples bounds the failures and violations kept in a load report
const maxSamples = 100

// Minimum gap between two station readings for an hourly rate
const minRateGap = time.Hour

// File load statuses
const (
	FileStatusLoaded = "loaded"
	FileStatusFailed = "failed"
)

// FileReport describes the outcome of reading one source file
type FileReport struct {
	Path          string `json:"path"`
	Status        string `json:"status"`
	Records       int    `json:"records"`
	ParseFailures int    `json:"parse_failures"`
	Error         string `json:"error,omitempty"`
}

// LoadReport summarizes one run of the ingestion pipeline
type LoadReport struct {
	ID             string                              `json:"id"`
	StartedAt      time.Time                           `json:"started_at"`
	FinishedAt     time.Time                           `json:"finished_at"`
	Duration       string                              `json:"duration"`
	Files          []FileReport                        `json:"files"`
	FilesLoaded    int                                 `json:"files_loaded"`
	FilesFailed    int                                 `json:"files_failed"`
	RowsRead       int                                 `json:"rows_read"`
	ParseFailures  int                                 `json:"parse_failures"`
	FormatFailures int                                 `json:"format_failures"`
	HeadersRemoved int                                 `json:"headers_removed"`
	Delta          dataprocessing.DeltaStats           `json:"delta"`
	Clean          dataprocessing.CleanStats           `json:"clean"`
	Ceiling        int64                               `json:"ceiling"`
	Failures       []*apperrors.RowError               `json:"failures,omitempty"`
	Violations     []dataprocessing.IntegrityViolation `json:"violations,omitempty"`
}

// Dataset is the cleaned output of a successful load
type Dataset struct {
	Report   *LoadReport
	Records  []domain.CleanedRecord
	Timeline []analytics.StationReading
	Rates    []analytics.HourlyRate
}

// ServiceOptions configures a TurnstileService
type ServiceOptions struct {
	Ceiling   int64
	Workers   int
	DataDir   string
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
}

// TurnstileService runs the ingestion pipeline and answers ranking queries
// against the most recently loaded dataset.
type TurnstileService struct {
	reader    *dataprocessing.Reader
	sanitizer *dataprocessing.Sanitizer
	delta     *dataprocessing.DeltaComputer
	cleaner   *dataprocessing.Cleaner
	discovery *files.Discovery
	workers   int

	metrics *infrastructure.PipelineMetrics
	tracer  trace.Tracer
	logger  *slog.Logger

	loadMu  sync.Mutex
	mu      sync.RWMutex
	dataset *Dataset
}

// NewTurnstileService wires the pipeline stages
func NewTurnstileService(opts ServiceOptions) (*TurnstileService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providers := opts.Providers
	if providers == nil {
		providers = infrastructure.NoopProviders(logger)
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	policy := dataprocessing.DefaultCleanPolicy()
	if opts.Ceiling > 0 {
		policy.Ceiling = opts.Ceiling
	}

	logger = infrastructure.WithComponent(logger, "turnstile_service")
	logger.Info("TurnstileService initialized",
		slog.Int("workers", workers),
		slog.Int64("ceiling", policy.Ceiling),
		slog.String("data_dir", opts.DataDir))

	return &TurnstileService{
		reader:    dataprocessing.NewReader(logger),
		sanitizer: dataprocessing.NewSanitizer(logger),
		delta:     dataprocessing.NewDeltaComputer(logger),
		cleaner:   dataprocessing.NewCleaner(policy, logger),
		discovery: files.NewDiscovery(opts.DataDir),
		workers:   workers,
		metrics:   metrics,
		tracer:    providers.Tracer,
		logger:    logger,
	}, nil
}

// DiscoverFiles lists the source files of dir. With a non-zero range it
// lists the weekly files published in [start, end), missing ones included,
// plus any other dated file of that extension in the range; otherwise every
// turnstile file in dir.
func (s *TurnstileService) DiscoverFiles(dir string, start, end time.Time, ext string) ([]string, error) {
	if !start.IsZero() && !end.IsZero() {
		paths := s.discovery.FilesInRange(dir, start, end, ext)
		if len(paths) == 0 {
			return nil, ErrNoFilesFound
		}
		return paths, nil
	}

	found, err := s.discovery.FindTurnstileFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNoFilesFound
	}
	return files.Paths(found), nil
}

// LoadDirectory discovers and loads the source files of dir
func (s *TurnstileService) LoadDirectory(ctx context.Context, dir string, start, end time.Time, ext string) (*LoadReport, error) {
	paths, err := s.DiscoverFiles(dir, start, end, ext)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, paths)
}

// Load reads the given files in parallel, runs the pipeline over their
// concatenation in path order and replaces the current dataset. A file that
// cannot be read is reported and skipped; if every file fails the current
// dataset is kept and ErrAllFilesFailed is returned with the report.
func (s *TurnstileService) Load(ctx context.Context, paths []string) (*LoadReport, error) {
	if len(paths) == 0 {
		return nil, ErrNoFilesFound
	}
	if !s.loadMu.TryLock() {
		return nil, ErrLoadInProgress
	}
	defer s.loadMu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	ctx, span := s.tracer.Start(ctx, "turnstile.load",
		trace.WithAttributes(attribute.Int("files", len(paths))))
	defer span.End()

	report := &LoadReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Ceiling:   s.cleaner.Policy().Ceiling,
	}
	s.logger.InfoContext(ctx, "load started",
		slog.String("load_id", report.ID),
		slog.Int("files", len(paths)))

	results, err := s.readAll(ctx, paths, report)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if report.FilesLoaded == 0 {
		s.finish(report)
		infrastructure.RecordError(ctx, ErrAllFilesFailed)
		s.logger.ErrorContext(ctx, "load failed",
			slog.String("load_id", report.ID),
			slog.Int("files_failed", report.FilesFailed))
		return report, ErrAllFilesFailed
	}

	dataset, err := s.process(ctx, results, report)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	s.finish(report)

	s.mu.Lock()
	s.dataset = dataset
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "load completed",
		slog.String("load_id", report.ID),
		slog.Int("files_loaded", report.FilesLoaded),
		slog.Int("files_failed", report.FilesFailed),
		slog.Int("rows_read", report.RowsRead),
		slog.Int("cleaned", report.Clean.Kept),
		slog.String("duration", report.Duration))

	return report, nil
}

// readAll decodes every file with at most s.workers files in flight. Results
// are stored by index so the merge order does not depend on scheduling.
func (s *TurnstileService) readAll(ctx context.Context, paths []string, report *LoadReport) ([]*dataprocessing.ReadResult, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "turnstile.read")
	defer span.End()

	results := make([]*dataprocessing.ReadResult, len(paths))
	fileErrs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			res, err := s.reader.ReadFile(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fileErrs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Files = make([]FileReport, len(paths))
	for i, path := range paths {
		fr := FileReport{Path: path}
		if fileErrs[i] != nil {
			fr.Status = FileStatusFailed
			fr.Error = fileErrs[i].Error()
			report.FilesFailed++
			s.logger.WarnContext(ctx, "source file skipped",
				slog.String("path", path),
				slog.String("error", fr.Error))
		} else {
			res := results[i]
			fr.Status = FileStatusLoaded
			fr.Records = len(res.Records)
			fr.ParseFailures = len(res.Failures)
			report.FilesLoaded++
			report.RowsRead += len(res.Records)
			report.ParseFailures += len(res.Failures)
			report.addFailures(res.Failures)
		}
		report.Files[i] = fr
	}

	s.metrics.FilesLoaded.Add(ctx, int64(report.FilesLoaded))
	s.metrics.FilesFailed.Add(ctx, int64(report.FilesFailed))
	s.metrics.RowsRead.Add(ctx, int64(report.RowsRead))
	s.metrics.RowFailures.Add(ctx, int64(report.ParseFailures),
		metric.WithAttributes(attribute.String("kind", string(apperrors.KindParse))))
	s.metrics.RecordStage(ctx, "read", time.Since(started))

	loaded := results[:0]
	for _, res := range results {
		if res != nil {
			loaded = append(loaded, res)
		}
	}
	return loaded, nil
}

// process runs the sanitizer, delta computer and cleaner in sequence
func (s *TurnstileService) process(ctx context.Context, results []*dataprocessing.ReadResult, report *LoadReport) (*Dataset, error) {
	raw := dataprocessing.Concat(results)

	var sanitized *dataprocessing.SanitizeResult
	if err := s.stage(ctx, "sanitize", func(ctx context.Context) {
		sanitized = s.sanitizer.Sanitize(ctx, raw)
	}); err != nil {
		return nil, err
	}
	report.HeadersRemoved = sanitized.HeadersRemoved
	report.FormatFailures = len(sanitized.Failures)
	report.addFailures(sanitized.Failures)
	s.metrics.HeadersRemoved.Add(ctx, int64(sanitized.HeadersRemoved))
	s.metrics.RowFailures.Add(ctx, int64(len(sanitized.Failures)),
		metric.WithAttributes(attribute.String("kind", string(apperrors.KindFormat))))

	var deltas []domain.DeltaRecord
	if err := s.stage(ctx, "delta", func(ctx context.Context) {
		deltas, report.Delta = s.delta.Compute(ctx, sanitized.Records)
	}); err != nil {
		return nil, err
	}

	var cleaned *dataprocessing.CleanResult
	if err := s.stage(ctx, "clean", func(ctx context.Context) {
		cleaned = s.cleaner.Clean(ctx, deltas)
	}); err != nil {
		return nil, err
	}
	report.Clean = cleaned.Stats
	if len(cleaned.Violations) > maxSamples {
		report.Violations = cleaned.Violations[:maxSamples]
	} else {
		report.Violations = cleaned.Violations
	}
	s.metrics.IntegrityViolations.Add(ctx, int64(cleaned.Stats.Negative),
		metric.WithAttributes(attribute.String("reason", dataprocessing.ReasonNegative)))
	s.metrics.IntegrityViolations.Add(ctx, int64(cleaned.Stats.Ceiling),
		metric.WithAttributes(attribute.String("reason", dataprocessing.ReasonCeiling)))
	s.metrics.CleanedRecords.Add(ctx, int64(cleaned.Stats.Kept))

	dataset := &Dataset{Report: report, Records: cleaned.Records}
	if err := s.stage(ctx, "rates", func(ctx context.Context) {
		dataset.Timeline = analytics.StationTimeline(cleaned.Records)
		dataset.Rates = analytics.HourlyRates(dataset.Timeline, minRateGap)
	}); err != nil {
		return nil, err
	}
	return dataset, nil
}

// stage runs fn inside a span and records its duration. Stages are CPU
// bound, so cancellation is only checked between them.
func (s *TurnstileService) stage(ctx context.Context, name string, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "turnstile."+name)
	defer span.End()

	fn(ctx)

	s.metrics.RecordStage(ctx, name, time.Since(started))
	return nil
}

func (s *TurnstileService) finish(report *LoadReport) {
	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt).String()
}

func (r *LoadReport) addFailures(failures []*apperrors.RowError) {
	room := maxSamples - len(r.Failures)
	if room <= 0 {
		return
	}
	if len(failures) > room {
		failures = failures[:room]
	}
	r.Failures = append(r.Failures, failures...)
}

// Sources returns the base names of the files that loaded
func (r *LoadReport) Sources() []string {
	var names []string
	for _, f := range r.Files {
		if f.Status == FileStatusLoaded {
			names = append(names, filepath.Base(f.Path))
		}
	}
	return names
}

// Dataset returns the current dataset
func (s *TurnstileService) Dataset() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, apperrors.ErrNotLoaded
	}
	return s.dataset, nil
}

// Report returns the report of the current dataset
func (s *TurnstileService) Report() (*LoadReport, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.Report, nil
}

// Rank runs a ranking query against the current dataset
func (s *TurnstileService) Rank(ctx context.Context, q analytics.Query) (domain.Series, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	_, span := s.tracer.Start(ctx, "turnstile.rank",
		trace.WithAttributes(attribute.String("group_by", string(q.GroupBy))))
	defer span.End()

	series, err := q.Run(ds.Records)
	if err != nil {
		return nil, apperrors.NewAppValidationError(err.Error(), ErrInvalidInput)
	}
	return series, nil
}

// HourlyRates ranks stations by their mean hourly exit rate
func (s *TurnstileService) HourlyRates(n int) (domain.Series, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return analytics.BusiestHourlyRates(ds.Rates, n), nil
}

// DailyRates returns the per station and date mean hourly rates
func (s *TurnstileService) DailyRates() ([]analytics.DailyRate, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return analytics.DailyRates(ds.Rates), nil
}

// PeakReadings returns the largest single station readings
func (s *TurnstileService) PeakReadings(n int) (domain.Series, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return analytics.PeakReadings(ds.Timeline, n), nil
}

// WeekdayProfile returns the mean weekly exits of a station per weekday
func (s *TurnstileService) WeekdayProfile(station domain.StationID) ([7]float64, error) {
	ds, err := s.Dataset()
	if err != nil {
		return [7]float64{}, err
	}
	found := false
	for _, rec := range ds.Records {
		if rec.Station == station {
			found = true
			break
		}
	}
	if !found {
		return [7]float64{}, apperrors.NewNotFoundError("station "+station.String(), ErrUnknownStation)
	}
	return analytics.WeekdayProfile(ds.Records, station, analytics.Weeks(ds.Records)), nil
}

// IsLoaded reports whether a dataset is available
func (s *TurnstileService) IsLoaded() bool {
	_, err := s.Dataset()
	return !errors.Is(err, apperrors.ErrNotLoaded)
}

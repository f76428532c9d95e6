// Command processor loads weekly turnstile files, prints the busiest
// station rankings and writes them as CSV, XLSX, PNG and a JSON load
// report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"turnstilecli/internal/analytics"
	"turnstilecli/internal/charts"
	"turnstilecli/internal/config"
	"turnstilecli/internal/exporter"
	"turnstilecli/internal/infrastructure"
	"turnstilecli/internal/services"
	"turnstilecli/pkg/contracts"
	"turnstilecli/pkg/contracts/domain"
)

// Exit codes
const (
	exitOK         = 0
	exitLoadFailed = 1
	exitUsage      = 2
)

// profileStations is the number of top stations drawn in the weekday chart
const profileStations = 3

type options struct {
	configPath string
	dir        string
	start      string
	end        string
	n          int
	from       int
	to         int
	days       string
	group      string
	out        string
	ceiling    int64
	workers    int
	ext        string
	version    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if err := applyFlags(cfg, opts, set); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	defer infrastructure.CloseLogFile()

	p := &processor{cfg: cfg, opts: opts, stdout: stdout, logger: logger}
	return p.run(ctx)
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configPath, "config", "", "YAML config file (default: $TURNSTILE_CONFIG or ./config.yaml)")
	fs.StringVar(&o.dir, "dir", "", "directory holding turnstile_YYMMDD files")
	fs.StringVar(&o.start, "start", "", "first publish date to load, YYYY-MM-DD")
	fs.StringVar(&o.end, "end", "", "load files published before this date, YYYY-MM-DD")
	fs.IntVar(&o.n, "n", config.DefaultTopN, "number of entries per ranking")
	fs.IntVar(&o.from, "from", 0, "first hour of the time window")
	fs.IntVar(&o.to, "to", 24, "hour after the last hour of the time window")
	fs.StringVar(&o.days, "days", string(domain.DayFilterAll), "days to rank: all, weekday or weekend")
	fs.StringVar(&o.group, "group", "", "grouping to rank, or all (default: configured group_by, else all)")
	fs.StringVar(&o.out, "out", "", "output directory for CSV, XLSX and PNG files")
	fs.Int64Var(&o.ceiling, "ceiling", config.DefaultCeiling, "largest plausible interval count (exclusive)")
	fs.IntVar(&o.workers, "workers", config.DefaultWorkers, "files read in parallel")
	fs.StringVar(&o.ext, "ext", "", "source file extension when a date range is given")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return o, nil, fmt.Errorf("unexpected arguments")
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// applyFlags overrides configured values with the flags given on the
// command line and revalidates
func applyFlags(cfg *config.Config, o options, set map[string]bool) error {
	if set["dir"] {
		cfg.Paths.DataDir = o.dir
	}
	if set["out"] {
		cfg.Paths.ReportsDir = o.out
	}
	if set["start"] {
		cfg.Pipeline.StartDate = o.start
	}
	if set["end"] {
		cfg.Pipeline.EndDate = o.end
	}
	if set["n"] {
		cfg.Pipeline.TopN = o.n
	}
	if set["from"] {
		cfg.Pipeline.StartHour = o.from
	}
	if set["to"] {
		cfg.Pipeline.EndHour = o.to
	}
	if set["days"] {
		cfg.Pipeline.Days = strings.ToLower(o.days)
	}
	if set["group"] && !strings.EqualFold(o.group, "all") {
		cfg.Pipeline.GroupBy = strings.ToLower(o.group)
	}
	if set["ceiling"] {
		cfg.Pipeline.Ceiling = o.ceiling
	}
	if set["workers"] {
		cfg.Pipeline.Workers = o.workers
	}
	if set["ext"] {
		cfg.Pipeline.FileExt = o.ext
	}

	start, end := cfg.Pipeline.StartDate != "", cfg.Pipeline.EndDate != ""
	if start != end {
		return fmt.Errorf("-start and -end must be given together")
	}
	return cfg.Validate()
}

type processor struct {
	cfg    *config.Config
	opts   options
	stdout io.Writer
	logger *slog.Logger
}

// groupings returns the rankings to produce: every grouping for -group all,
// otherwise the flag or configured grouping, and every grouping when
// neither names one
func (p *processor) groupings() []domain.GroupBy {
	if strings.EqualFold(p.opts.group, "all") || p.cfg.Pipeline.GroupBy == "" {
		return domain.Groupings
	}
	return []domain.GroupBy{domain.GroupBy(p.cfg.Pipeline.GroupBy)}
}

func (p *processor) run(ctx context.Context) int {
	paths, err := config.NewPaths(p.cfg.Paths, "")
	if err != nil {
		p.logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		return exitUsage
	}
	if err := paths.EnsureDirectories(); err != nil {
		p.logger.Error("Failed to create output directories", slog.String("error", err.Error()))
		return exitUsage
	}

	svc, err := services.NewTurnstileService(services.ServiceOptions{
		Ceiling: p.cfg.Pipeline.Ceiling,
		Workers: p.cfg.Pipeline.Workers,
		DataDir: paths.DataDir,
		Logger:  p.logger,
	})
	if err != nil {
		p.logger.Error("Failed to create pipeline", slog.String("error", err.Error()))
		return exitUsage
	}

	start, _ := p.cfg.Pipeline.StartTime()
	end, _ := p.cfg.Pipeline.EndTime()
	report, err := svc.LoadDirectory(ctx, paths.DataDir, start, end, p.cfg.Pipeline.FileExt)
	if report != nil {
		p.printLoadSummary(report)
		if werr := exporter.WriteJSON(paths.GetReportPath(config.LoadReportJSON), report); werr != nil {
			p.logger.Warn("Failed to write load report", slog.String("error", werr.Error()))
		}
	}
	if err != nil {
		p.logger.Error("Load failed", slog.String("data_dir", paths.DataDir), slog.String("error", err.Error()))
		fmt.Fprintf(p.stdout, "load failed: %v\n", err)
		return exitLoadFailed
	}

	window := analytics.TimeWindow{
		StartHour: p.cfg.Pipeline.StartHour,
		EndHour:   p.cfg.Pipeline.EndHour,
		Days:      domain.DayFilter(p.cfg.Pipeline.Days),
	}
	n := p.cfg.Pipeline.TopN

	var sheets []exporter.Sheet
	csvWriter := exporter.NewCSVWriter(paths.ReportsDir, p.logger)
	for _, g := range p.groupings() {
		series, err := svc.Rank(ctx, analytics.Query{GroupBy: g, Window: window, Limit: n})
		if err != nil {
			p.logger.Error("Ranking failed", slog.String("group", string(g)), slog.String("error", err.Error()))
			return exitUsage
		}
		p.printSeries(g.Title(), series)
		sheets = append(sheets, exporter.Sheet{Name: string(g), Title: g.Title(), Series: series})
		if _, err := csvWriter.WriteSeries(string(g)+".csv", series); err != nil {
			p.logger.Warn("Failed to write ranking CSV", slog.String("group", string(g)), slog.String("error", err.Error()))
		}
	}

	p.writeRates(svc, csvWriter, &sheets, n)

	if err := exporter.WriteRankingsWorkbook(paths.GetReportPath(config.RankingsWorkbook), sheets, p.logger); err != nil {
		p.logger.Warn("Failed to write workbook", slog.String("error", err.Error()))
	}

	p.writeCharts(ctx, svc, paths, window, n)

	p.logger.Info("Reports written", slog.String("reports_dir", paths.ReportsDir))
	return exitOK
}

func (p *processor) writeRates(svc *services.TurnstileService, csvWriter *exporter.CSVWriter, sheets *[]exporter.Sheet, n int) {
	hourly, err := svc.HourlyRates(n)
	if err == nil {
		p.printSeries("Highest mean hourly exit rates", hourly)
		*sheets = append(*sheets, exporter.Sheet{Name: "hourly_rates", Title: "Highest mean hourly exit rates", Series: hourly})
		if _, err := csvWriter.WriteSeries("hourly_rates.csv", hourly); err != nil {
			p.logger.Warn("Failed to write hourly rates", slog.String("error", err.Error()))
		}
	}

	peaks, err := svc.PeakReadings(n)
	if err == nil {
		p.printSeries("Largest single readings", peaks)
		*sheets = append(*sheets, exporter.Sheet{Name: "peaks", Title: "Largest single readings", Series: peaks})
	}

	daily, err := svc.DailyRates()
	if err == nil {
		if _, err := csvWriter.WriteDailyRates("daily_rates.csv", daily); err != nil {
			p.logger.Warn("Failed to write daily rates", slog.String("error", err.Error()))
		}
	}
}

func (p *processor) writeCharts(ctx context.Context, svc *services.TurnstileService, paths *config.Paths, window analytics.TimeWindow, n int) {
	stations, err := svc.Rank(ctx, analytics.Query{GroupBy: domain.GroupByStation, Window: window, Limit: n})
	if err != nil || len(stations) == 0 {
		return
	}

	bar, err := charts.BarChart(domain.GroupByStation.Title(), "Exits", stations)
	if err == nil {
		err = charts.SavePNG(bar, paths.GetReportPath(config.BusiestStationsPNG), charts.DefaultWidth, charts.DefaultHeight)
	}
	if err != nil {
		p.logger.Warn("Failed to write station chart", slog.String("error", err.Error()))
	}

	var profiles []charts.Profile
	for i, e := range stations {
		if i == profileStations {
			break
		}
		values, err := svc.WeekdayProfile(e.Key.Station)
		if err != nil {
			continue
		}
		profiles = append(profiles, charts.Profile{Label: e.Key.Station.String(), Values: values})
	}
	line, err := charts.WeekdayChart("Weekday profile of the busiest stations", profiles)
	if err == nil {
		err = charts.SavePNG(line, paths.GetReportPath(config.WeekdayProfilePNG), charts.DefaultWidth, charts.DefaultHeight)
	}
	if err != nil {
		p.logger.Warn("Failed to write weekday chart", slog.String("error", err.Error()))
	}
}

func (p *processor) printLoadSummary(r *services.LoadReport) {
	fmt.Fprintf(p.stdout, "Loaded %d of %d files in %s: %d rows, %d parse failures, %d format failures, %d header rows removed, %d records kept\n",
		r.FilesLoaded, len(r.Files), r.Duration, r.RowsRead, r.ParseFailures, r.FormatFailures, r.HeadersRemoved, r.Clean.Kept)
	for _, f := range r.Files {
		if f.Status == services.FileStatusFailed {
			fmt.Fprintf(p.stdout, "  skipped %s: %s\n", filepath.Base(f.Path), f.Error)
		}
	}
}

func (p *processor) printSeries(title string, series domain.Series) {
	fmt.Fprintf(p.stdout, "\n%s\n", title)
	tw := tabwriter.NewWriter(p.stdout, 0, 4, 2, ' ', 0)
	for i, e := range series {
		fmt.Fprintf(tw, "%d.\t%s\t%d\t\n", i+1, e.Label, e.Value)
	}
	tw.Flush()
}

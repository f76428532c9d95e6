package config

// Application constants
const (
	AppName = "turnstilecli"

	// EnvPrefix prefixes every environment variable, e.g. TURNSTILE_PIPELINE_TOP_N
	EnvPrefix = "TURNSTILE"

	// DateFlagLayout is the layout of configured and command-line dates
	DateFlagLayout = "2006-01-02"
)

// Pipeline defaults
const (
	DefaultTopN    = 10
	DefaultCeiling = 5000
	DefaultWorkers = 4
)

// Report file names written under the reports directory
const (
	RankingsWorkbook   = "rankings.xlsx"
	BusiestStationsPNG = "busiest_stations.png"
	WeekdayProfilePNG  = "weekday_profile.png"
	LoadReportJSON     = "load_report.json"
)

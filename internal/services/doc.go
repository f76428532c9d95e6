// Package services implements the business logic layer between the HTTP
// handlers and the ingestion pipeline.
//
// # Services
//
//	- TurnstileService: loads weekly source files through the reader,
//	  sanitizer, delta computer and cleaner, keeps the latest dataset and
//	  answers ranking and rate queries against it
//	- HealthService: liveness, readiness and version reporting
//
// # Loading
//
// Load reads files in parallel with a bounded errgroup and merges them in
// path order. A file that cannot be read is skipped and reported. When no
// file loads, the previous dataset stays in place and ErrAllFilesFailed is
// returned together with the report. Only one load runs at a time; a
// concurrent call fails with ErrLoadInProgress.
//
// Queries made before the first successful load fail with
// errors.ErrNotLoaded.
//
// # Usage
//
//	svc, err := services.NewTurnstileService(services.ServiceOptions{
//	    Ceiling: config.DefaultCeiling,
//	    Workers: 4,
//	    Logger:  logger,
//	})
//	report, err := svc.LoadDirectory(ctx, "data", start, end, ".txt")
//	series, err := svc.Rank(ctx, analytics.Query{GroupBy: domain.GroupByStation, Window: analytics.FullDay(), Limit: 10})
package services

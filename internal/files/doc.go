// Package files locates weekly turnstile source files.
//
// Files are published once a week under the name turnstile_YYMMDD.<ext>,
// dated on a Saturday. WeeklyFileNames enumerates the names for a date
// range; Discovery resolves them against a data directory or lists the
// files that are actually present.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/srv/turnstile")
//	paths := discovery.FilesInRange("data", start, end, ".txt")
//
//	present, err := discovery.FindTurnstileFiles("data")
package files

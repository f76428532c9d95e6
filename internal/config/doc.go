// Package config provides configuration management for the turnstile
// pipeline, its HTTP API and its command-line tool.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TURNSTILE_<SECTION>_<FIELD>:
//
//	TURNSTILE_SERVER_PORT=8080
//	TURNSTILE_PATHS_DATA_DIR=/srv/turnstile/data
//	TURNSTILE_PIPELINE_CEILING=5000
//	TURNSTILE_LOGGING_LEVEL=debug
//
// TURNSTILE_CONFIG names the YAML file. Without it config.yaml and
// configs/config.yaml are tried in the working directory.
//
// # Path Management
//
// Paths resolves the configured directories against a base directory:
//
//	paths, err := config.NewPaths(cfg.Paths, "")
//	workbook := paths.GetReportPath(config.RankingsWorkbook)
//
// # Validation
//
// Load validates every section with go-playground/validator and checks
// that a configured start date precedes the end date.
package config

// Package app wires configuration, logging, telemetry, the turnstile
// service and the HTTP router into a runnable web application.
//
// Initialization order:
//
//  1. Load configuration from defaults, YAML and TURNSTILE_* variables
//  2. Initialize the structured logger
//  3. Resolve and create the output directories
//  4. Initialize OpenTelemetry (Prometheus metrics, optional tracing)
//  5. Create the turnstile and health services
//  6. Build the chi router and the HTTP server
//
// Start performs an initial load of the data directory before serving.
// A failed initial load is logged and the API answers 503 until a
// successful POST /api/load.
package app

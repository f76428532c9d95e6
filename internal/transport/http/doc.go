// Package http implements the HTTP handlers of the turnstile reporting API.
// Handlers parse and validate query parameters, call the turnstile service
// and render JSON. Every failure is rendered as RFC 7807 problem details
// through errors.ErrorHandler.
//
// Routes, relative to /api:
//
//	GET  /health, /health/ready, /health/live, /version
//	POST /load                    reload source files
//	GET  /load/report             report of the current dataset
//	GET  /rankings/{group}        ?n=&start=&end=&days=
//	GET  /rates/hourly            ?n=
//	GET  /rates/daily
//	GET  /peaks                   ?n=
//	GET  /profile                 ?station=&lines=
//	GET  /charts/stations.png     ?n=&start=&end=&days=
//	GET  /charts/profile.png      ?station=&lines=
package http

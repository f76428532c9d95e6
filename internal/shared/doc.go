// Package shared holds helpers used across packages. Its testutil
// subpackage provides a capturing slog handler and builders for weekly
// turnstile source files.
package shared

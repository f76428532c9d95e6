package services

import "errors"

// Turnstile service errors
var (
	ErrNoFilesFound    = errors.New("no source files found")
	ErrAllFilesFailed  = errors.New("every source file failed to load")
	ErrLoadInProgress  = errors.New("a load is already in progress")
	ErrUnknownStation  = errors.New("station not found")
	ErrInvalidInput    = errors.New("invalid input")
)

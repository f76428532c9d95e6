package errors

import (
	"encoding/json"
	"fmt"
)

// RowErrorKind classifies a per-row failure
type RowErrorKind string

const (
	// KindParse marks a row that could not be decoded into a record
	KindParse RowErrorKind = "parse"
	// KindFormat marks a record whose counters could not be coerced after sanitizing
	KindFormat RowErrorKind = "format"
)

// RowError describes one rejected source row. It never aborts a file.
type RowError struct {
	Kind   RowErrorKind `json:"kind"`
	Source string       `json:"source"`
	Line   int          `json:"line"`
	Field  string       `json:"field,omitempty"`
	Value  string       `json:"value,omitempty"`
	Err    error        `json:"-"`
}

// Error implements the error interface
func (e *RowError) Error() string {
	loc := fmt.Sprintf("%s:%d", e.Source, e.Line)
	if e.Field != "" {
		return fmt.Sprintf("%s error at %s field %s=%q: %v", e.Kind, loc, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s error at %s: %v", e.Kind, loc, e.Err)
}

// Unwrap returns the underlying cause
func (e *RowError) Unwrap() error {
	return e.Err
}

// MarshalJSON includes the cause message
func (e *RowError) MarshalJSON() ([]byte, error) {
	type plain RowError
	out := struct {
		*plain
		Error string `json:"error,omitempty"`
	}{plain: (*plain)(e)}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return json.Marshal(out)
}

// NewParseRowError creates a row-level parse failure
func NewParseRowError(source string, line int, field, value string, cause error) *RowError {
	return &RowError{Kind: KindParse, Source: source, Line: line, Field: field, Value: value, Err: cause}
}

// NewFormatRowError creates a row-level format failure
func NewFormatRowError(source string, line int, field, value string, cause error) *RowError {
	return &RowError{Kind: KindFormat, Source: source, Line: line, Field: field, Value: value, Err: cause}
}

// FileError reports a file that could not be read at all
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *FileError) Unwrap() error {
	return e.Err
}

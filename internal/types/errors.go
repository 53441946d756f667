package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoData           = errors.New("no listing data retrieved")
	ErrIndexUnreachable = errors.New("search index unreachable")
	ErrMarkerBackend    = errors.New("completion marker backend failed")
	ErrBlocked          = errors.New("blocked by robots.txt")
	ErrEmptyResponse    = errors.New("empty response body")
	ErrInvalidURL       = errors.New("invalid URL")
)

// FetchError wraps errors that occur during fetching. A non-2xx response
// carries its StatusCode; network failures and timeouts do not.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing or value coercion.
type ParseError struct {
	URL      string
	Selector string
	Raw      string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("parse error for %s (selector=%q, raw=%q): %v", e.URL, e.Selector, e.Raw, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaConflictError reports an existing index whose mapping disagrees
// with the declared product schema.
type SchemaConflictError struct {
	Index string
	Field string
	Want  string
	Got   string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("index %q: field %q has mapping %q, want %q", e.Index, e.Field, e.Got, e.Want)
}

// StorageError wraps errors that occur in an index, marker, or export backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

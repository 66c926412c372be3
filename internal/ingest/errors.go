package ingest

import "fmt"

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrStatus  FetchErrorKind = "http_status"
	FetchErrDecode  FetchErrorKind = "decode"
)

// FetchError is returned by Fetcher implementations. StatusCode is only
// set for the http_status kind.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrStatus:
		return fmt.Sprintf("fetch failed: upstream returned status %d", e.StatusCode)
	default:
		return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NormalizeErrorKind classifies normalization failures.
type NormalizeErrorKind string

// Normalization failure kinds.
const (
	NormalizeErrMissingField NormalizeErrorKind = "missing_field"
)

// NormalizeError rejects a single raw record. It never aborts a batch;
// callers drop the record and continue.
type NormalizeError struct {
	Kind  NormalizeErrorKind
	Field string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize failed (%s): field %q", e.Kind, e.Field)
}

// StoreErrorKind classifies persistence failures.
type StoreErrorKind string

// Store failure kinds.
const (
	StoreErrConnection StoreErrorKind = "connection"
	StoreErrConstraint StoreErrorKind = "constraint"
	StoreErrTimeout    StoreErrorKind = "timeout"
)

// StoreError is returned by Store implementations. Any row-level failure
// rolls back the whole batch before this error is surfaced.
type StoreError struct {
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failed (%s): %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

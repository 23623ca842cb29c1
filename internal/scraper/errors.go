package scraper

import (
	"fmt"
	"time"
)

// FetchError reports a network or decode failure reaching a page or document
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StructureTimeoutError reports that an expected element never appeared
// within the wait bound. It is fatal for the current span.
type StructureTimeoutError struct {
	URL      string
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *StructureTimeoutError) Error() string {
	return fmt.Sprintf("%s: %q did not appear within %v", e.URL, e.Selector, e.Timeout)
}

func (e *StructureTimeoutError) Unwrap() error { return e.Err }

// MissingFieldError reports a row without the cell mapped to a field
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d: no cell for field %q", e.Index, e.Field)
}

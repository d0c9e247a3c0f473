package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the tools. Wrap them with %w so callers can use Is.
var (
	ErrEmptyTable       = stderrors.New("table has a header but no rows")
	ErrNoTables         = stderrors.New("no tables to process")
	ErrMissingColumn    = stderrors.New("column not found")
	ErrInvalidDateRange = stderrors.New("start date must not be after end date")
	ErrYearNotFound     = stderrors.New("year not found")
	ErrNoSelection      = stderrors.New("no items selected")
)

// FetchError describes a failed HTTP retrieval from a data station
type FetchError struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap returns the underlying transport error, if any
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewStatusError creates a FetchError for a non-200 response
func NewStatusError(url string, statusCode int) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode}
}

// NewTransportError creates a FetchError for a request that never got a response
func NewTransportError(url string, cause error) *FetchError {
	return &FetchError{URL: url, Cause: cause}
}

// AsAppError unwraps err into an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// AsFetchError unwraps err into a FetchError if possible
func AsFetchError(err error) (*FetchError, bool) {
	var fetchErr *FetchError
	if stderrors.As(err, &fetchErr) {
		return fetchErr, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// Package apperror defines the error kinds the service surfaces to its callers.
//
// Lower layers wrap one of the sentinels with fmt.Errorf("...: %w", ErrX) and
// the transport edge maps the kind to a status code with errors.Is.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidArgument marks caller input that failed validation. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced order, item, variant, keg or promotion that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a concurrent mutation that aborted the transaction.
	// Callers may retry a bounded number of times.
	ErrConflict = errors.New("conflict")
	// ErrFailedPrecondition marks a request that is well formed but not allowed
	// in the current state: a closed order, insufficient stock, an exhausted promotion.
	ErrFailedPrecondition = errors.New("failed precondition")
)

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func FailedPrecondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailedPrecondition, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error to the status code returned by the HTTP API.
// Anything that is not one of the known kinds is an internal error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrFailedPrecondition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the short machine-readable kind included in HTTP error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrFailedPrecondition):
		return "FAILED_PRECONDITION"
	default:
		return "INTERNAL"
	}
}

// IsRetryable reports whether the caller may retry the operation as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

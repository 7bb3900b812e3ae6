package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single failure type returned by every Client method.
//
// Message is the backend's own error text when the response carried one,
// otherwise a generic text built from the transport failure or status code.
type Error struct {
	Op         string // e.g. "list reports"
	StatusCode int    // 0 when no response was received
	Message    string
	Err        error // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnavailable reports whether err is a transport failure or a 5xx, the
// kind of failure worth retrying later.
func IsUnavailable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return (e.StatusCode == 0 && e.Err != nil) || e.StatusCode >= 500
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

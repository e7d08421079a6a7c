package api

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
)

// Error describes a failed API call. StatusCode is 0 when no response arrived.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Code       string // "error" field of the response body, "unknown" when absent
	Message    string
	RequestID  string
	Err        error // transport failure, nil when a response arrived
}

const unknownCode = "unknown"

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: status %d (%s)", e.Method, e.Path, e.StatusCode, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap exposes the sentinel matching the status together with any transport error
func (e *Error) Unwrap() []error {
	errs := []error{e.kind()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) kind() error {
	switch {
	case e.StatusCode == 0:
		return apperrors.ErrTransient
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return apperrors.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case IsTransientStatus(e.StatusCode):
		return apperrors.ErrTransient
	default:
		return apperrors.ErrRequestFailed
	}
}

// IsTransientStatus reports statuses worth retrying
func IsTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

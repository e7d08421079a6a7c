package errors

import (
	"errors"
	"fmt"
)

// Common error types for the charger client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Store errors
	ErrNotFound = errors.New("not found")

	// API errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTransient     = errors.New("transient failure")
	ErrRequestFailed = errors.New("request failed")

	// Reservation errors
	ErrSlotUnavailable  = errors.New("time slot not available")
	ErrNotOwner         = errors.New("reservation belongs to another user")
	ErrInvalidTimeRange = errors.New("reservation must end after it starts")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

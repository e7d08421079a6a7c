package token

import (
	"errors"
	"time"
)

var (
	ErrEmpty         = errors.New("credential is empty")
	ErrMalformed     = errors.New("credential is malformed")
	ErrMissingExpiry = errors.New("credential has no expiry")
	ErrExpiring      = errors.New("credential expires within margin")
)

// Expiry returns the exp claim of raw
func Expiry(raw string) (time.Time, error) {
	c, err := Inspect(raw)
	if err != nil {
		return time.Time{}, err
	}
	if !c.HasExpiry() {
		return time.Time{}, ErrMissingExpiry
	}
	return c.ExpiresAt, nil
}

// Check returns nil when raw stays valid for at least margin past now,
// that is now <= exp - margin. Otherwise it returns the reason it does not.
func Check(raw string, margin time.Duration, now time.Time) error {
	exp, err := Expiry(raw)
	if err != nil {
		return err
	}
	if now.After(exp.Add(-margin)) {
		return ErrExpiring
	}
	return nil
}

func IsValid(raw string, margin time.Duration, now time.Time) bool {
	return Check(raw, margin, now) == nil
}

// Remaining is how long raw has until exp, zero when it has none or cannot be decoded
func Remaining(raw string, now time.Time) time.Duration {
	exp, err := Expiry(raw)
	if err != nil || !exp.After(now) {
		return 0
	}
	return exp.Sub(now)
}

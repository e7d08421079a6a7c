package session

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy governs how transient renewal failures are retried
type RetryPolicy struct {
	Attempts int           // total attempts including the first
	Base     time.Duration // wait after the first failure, doubled each time
	Max      time.Duration // cap on a single wait, 0 for none
	Jitter   float64       // +/- fraction applied to each wait
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Base:     250 * time.Millisecond,
		Max:      5 * time.Second,
		Jitter:   0.2,
	}
}

func (p RetryPolicy) next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.Base) * math.Pow(2, float64(attempt))
	if p.Max > 0 && time.Duration(d) > p.Max {
		d = float64(p.Max)
	}
	if p.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*p.Jitter
	}
	return time.Duration(d)
}

// do runs fn until it succeeds, fails with a non retryable error or attempts run out.
// onRetry is called before each wait.
func (p RetryPolicy) do(ctx context.Context, fn func() error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			return err
		}
		if onRetry != nil {
			onRetry(i, err)
		}

		t := time.NewTimer(p.next(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}

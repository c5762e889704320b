package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy describes an exponential backoff schedule
type Policy struct {
	// MaxRetries is the number of retries after the first attempt (0 = single attempt)
	MaxRetries int
	// InitialInterval is the wait before the first retry
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry
	Multiplier float64
	// JitterFactor adds +/- jitter as a fraction of the interval (0..1)
	JitterFactor float64
}

// DefaultPolicy is used by infrastructure constructors when dialing backing services
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is one attempt
type Operation func(ctx context.Context) error

// Notify is called before waiting for the next attempt
type Notify func(attempt int, err error, wait time.Duration)

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (p *Policy) normalized() Policy {
	out := *p
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.InitialInterval <= 0 {
		out.InitialInterval = 500 * time.Millisecond
	}
	if out.MaxInterval < out.InitialInterval {
		out.MaxInterval = out.InitialInterval
	}
	if out.Multiplier < 1 {
		out.Multiplier = 1
	}
	if out.JitterFactor < 0 {
		out.JitterFactor = 0
	}
	if out.JitterFactor > 1 {
		out.JitterFactor = 1
	}
	return out
}

// Backoff returns the wait before retry number attempt (0-based)
func (p *Policy) Backoff(attempt int) time.Duration {
	n := p.normalized()

	interval := float64(n.InitialInterval) * math.Pow(n.Multiplier, float64(attempt))
	if n.JitterFactor > 0 {
		jitter := interval * n.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}
	if interval > float64(n.MaxInterval) {
		interval = float64(n.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(n.InitialInterval)
	}
	return time.Duration(interval)
}

// Do runs op until it succeeds, returns a permanent error, runs out of retries or ctx ends.
// The returned error wraps the last attempt's error.
func Do(ctx context.Context, p *Policy, op Operation, notify Notify) error {
	if p == nil {
		p = DefaultPolicy()
	}
	n := p.normalized()

	var lastErr error
	for attempt := 0; attempt <= n.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == n.MaxRetries {
			break
		}

		wait := p.Backoff(attempt)
		if notify != nil {
			notify(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", n.MaxRetries+1, lastErr)
}

package retry

import (
	"context"
	"math/rand"
	"time"
)

// Backoff gives the pause before retry number n (1 for the first retry)
type Backoff interface {
	Delay(n int) time.Duration
}

// Exponential doubles Base on every retry up to Max. Jitter spreads each delay
// by up to that fraction in either direction.
type Exponential struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// Delay implements Backoff
func (e *Exponential) Delay(n int) time.Duration {
	if n < 1 || e.Base <= 0 {
		return 0
	}

	d := e.Base
	for i := 1; i < n && (e.Max <= 0 || d < e.Max); i++ {
		d *= 2
	}
	if e.Max > 0 && d > e.Max {
		d = e.Max
	}

	if e.Jitter > 0 {
		d += time.Duration(float64(d) * e.Jitter * (2*rand.Float64() - 1))
	}
	return d
}

// Constant waits the same time before every retry
type Constant time.Duration

// Delay implements Backoff
func (c Constant) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return time.Duration(c)
}

// sleep pauses for d, returning early with ctx's error if it ends first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

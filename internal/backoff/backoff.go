// Package backoff provides the single delay policy shared by the
// provider client's transient retries, its status poll loop and the
// result download path.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes an exponential backoff schedule. The zero value is
// not usable; construct one of the preset policies or fill every field.
type Policy struct {
	// Initial is the first delay.
	Initial time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Max caps the delay.
	Max time.Duration

	// Jitter is the fraction of random spread applied around a delay,
	// e.g. 0.15 yields delays in [0.85d, 1.15d). Zero disables jitter.
	Jitter float64
}

// Retry returns the policy used for transient HTTP retries:
// 0.6s start, x1.6 growth, 10s cap, +-15% jitter.
func Retry() Policy {
	return Policy{
		Initial:    600 * time.Millisecond,
		Multiplier: 1.6,
		Max:        10 * time.Second,
		Jitter:     0.15,
	}
}

// Poll returns the policy governing status poll intervals:
// 1s start, x1.4 growth, 5s cap, no jitter.
func Poll() Policy {
	return Policy{
		Initial:    time.Second,
		Multiplier: 1.4,
		Max:        5 * time.Second,
	}
}

// Next returns the delay that follows cur in the schedule.
// Passing zero returns the initial delay.
func (p Policy) Next(cur time.Duration) time.Duration {
	if cur <= 0 {
		return p.Initial
	}

	next := time.Duration(float64(cur) * p.Multiplier)
	if next > p.Max {
		next = p.Max
	}
	return next
}

// Jittered applies the policy's random spread to d.
func (p Policy) Jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	spread := 1 - p.Jitter + rand.Float64()*2*p.Jitter
	return time.Duration(float64(d) * spread)
}

// Sleep waits for the jittered delay, returning early with the context
// error if the context is done first. When deadline is non-zero the
// wait is also truncated so it never runs past it.
func (p Policy) Sleep(ctx context.Context, d time.Duration, deadline time.Time) error {
	wait := p.Jittered(d)

	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if wait > remaining {
			wait = remaining
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

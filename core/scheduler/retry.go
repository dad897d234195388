package scheduler

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before retry number n (zero based).
type Backoff interface {
	Next(n int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per retry, capped at
// MaxDelay. With Jitter the delay moves by up to ±25%.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

func NewExponentialBackoff(base, max time.Duration, multiplier float64, jitter bool) *ExponentialBackoff {
	return &ExponentialBackoff{BaseDelay: base, MaxDelay: max, Multiplier: multiplier, Jitter: jitter}
}

func (e *ExponentialBackoff) Next(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := float64(e.BaseDelay) * math.Pow(e.Multiplier, float64(n))
	if delay > float64(e.MaxDelay) {
		delay = float64(e.MaxDelay)
	}
	if e.Jitter && delay > 0 {
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// FixedDelay always waits Delay.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Next(int) time.Duration {
	return f.Delay
}

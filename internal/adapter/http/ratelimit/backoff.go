package ratelimit

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff grows a duration geometrically from Min to Max. With Jitter the
// result is scaled by a random factor in [0.5, 1).
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool
}

func NewBackoff(min, max time.Duration, factor float64) *Backoff {
	return &Backoff{
		Min:    min,
		Max:    max,
		Factor: factor,
		Jitter: true,
	}
}

// Duration returns the wait for the given strike, counting from 1.
func (b *Backoff) Duration(strike int) time.Duration {
	if strike <= 1 {
		return b.jitter(float64(b.Min))
	}

	d := float64(b.Min) * math.Pow(b.Factor, float64(strike-1))
	if d > float64(b.Max) || math.IsInf(d, 1) {
		d = float64(b.Max)
	}
	return b.jitter(d)
}

func (b *Backoff) jitter(d float64) time.Duration {
	if b.Jitter {
		d *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(d)
}

package driver

import "time"

// Backoff computes capped exponential delays for driver initialization
// retries. attempt is zero-based.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the delay before the given retry attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = time.Minute
	}
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

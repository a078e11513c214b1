package transport

import "time"

// Backoff computes the delay before reconnect attempt n (zero-based).
// Both channels run the same reconnect loop; only the strategy differs.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff retries at a constant interval. The chat channel uses it.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// LinearBackoff grows the delay by Base for every attempt, capped at Cap.
// The presence channel uses it.
type LinearBackoff struct {
	Base time.Duration
	Cap  time.Duration
}

func (b LinearBackoff) Delay(attempt int) time.Duration {
	d := b.Base * time.Duration(attempt+1)
	if d > b.Cap {
		return b.Cap
	}
	return d
}

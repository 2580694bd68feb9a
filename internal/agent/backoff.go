package agent

import "time"

// Backoff counts consecutive failures. Below Threshold each failure earns
// the Short pause; reaching it earns the Long pause and restarts the count.
type Backoff struct {
	Short     time.Duration
	Long      time.Duration
	Threshold int

	failures int
}

// Failure registers one failure and returns the pause to take and whether
// it is the long one.
func (b *Backoff) Failure() (time.Duration, bool) {
	b.failures++
	if b.failures >= max(b.Threshold, 1) {
		b.failures = 0
		return b.Long, true
	}
	return b.Short, false
}

// Success resets the count.
func (b *Backoff) Success() {
	b.failures = 0
}

// Count is the number of failures since the last reset.
func (b *Backoff) Count() int {
	return b.failures
}

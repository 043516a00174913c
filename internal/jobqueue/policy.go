package jobqueue

import "time"

// RetryPolicy governs how a job type is retried. Backoff is indexed by
// the number of failed attempts; delays past the last tier repeat it.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Timeout     time.Duration
}

// Delay returns how long to wait before the attempt following attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return time.Minute
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

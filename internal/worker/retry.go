package worker

import "time"

const defaultRetryDelay = time.Second

// RetryPolicy spaces out redeliveries of a notification whose channel failed.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether the failure numbered attempt is the last one allowed.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay grows InitialDelay by BackoffFactor per attempt after the first
// and caps it at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := r.InitialDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * factor)
		if delay <= 0 {
			// overflow
			delay = r.MaxDelay
			break
		}
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			break
		}
	}

	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return delay
}

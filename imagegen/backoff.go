package imagegen

import "time"

// BackoffPolicy is a linear backoff: BaseDelay multiplied by the attempt
// number, capped at MaxDelay. Delays never decrease as attempts grow.
type BackoffPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultBackoffPolicy waits 20s, 40s, 60s, 80s and then 90s.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay: 20 * time.Second,
		MaxDelay:  90 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	if p.MaxDelay > 0 && p.BaseDelay >= p.MaxDelay {
		return p.MaxDelay
	}
	d := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d/time.Duration(attempt) != p.BaseDelay) {
		return p.MaxDelay
	}
	return d
}

// Ceiling is the longest total wait a single request can accumulate when
// it is allowed maxAttempts attempts.
func (p BackoffPolicy) Ceiling(maxAttempts int) time.Duration {
	var total time.Duration
	for attempt := 1; attempt < maxAttempts; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}

package runtime

import "time"

// RetryPolicy spaces failed attempts. Delays[i] applies after attempt i+1; the
// last delay repeats.
type RetryPolicy struct {
	MaxAttempts  int
	Delays       []time.Duration
	StaleRunning time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		Delays:       []time.Duration{60 * time.Second, 120 * time.Second, 300 * time.Second},
		StaleRunning: 10 * time.Minute,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if len(p.Delays) == 0 {
		p.Delays = def.Delays
	}
	if p.StaleRunning <= 0 {
		p.StaleRunning = def.StaleRunning
	}
	return p
}

func (p RetryPolicy) CanRetry(attempts int) bool {
	return attempts < p.withDefaults().MaxAttempts
}

func (p RetryPolicy) DelayFor(attempts int) time.Duration {
	p = p.withDefaults()
	i := attempts - 1
	if i < 0 {
		i = 0
	}
	if i >= len(p.Delays) {
		i = len(p.Delays) - 1
	}
	return p.Delays[i]
}

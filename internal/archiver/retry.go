package archiver

import (
	"math"
	"time"
)

// RetryPolicy computes deterministic exponential backoff. Unlike a jittered
// policy, waits are exact: callers and operators can predict the pacing of a
// long archiving run from the configuration alone.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
}

// Wait returns the backoff before retry index r: BaseDelay × Factor^r.
func (p RetryPolicy) Wait(r int) time.Duration {
	if r < 0 {
		r = 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(r)))
}

// Attempts returns the total attempt budget per URL.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

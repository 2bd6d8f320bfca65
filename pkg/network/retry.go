package network

import "time"

// Retry is a doubling backoff between base and max durations.
type Retry struct {
	t    time.Duration
	base time.Duration
	max  time.Duration
}

func NewRetry(base, max time.Duration) Retry {
	if max < base {
		max = base
	}
	return Retry{t: base, base: base, max: max}
}

// Fail returns the current wait and doubles the next one.
func (r *Retry) Fail() time.Duration {
	t := r.t
	r.t = min(r.t*2, r.max)
	return t
}

func (r *Retry) Success()            { r.t = r.base }
func (r *Retry) Time() time.Duration { return r.t }

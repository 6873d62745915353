package triage

// RateLimiter caps the number of auto-replies sent in one run.
// It is owned by a single run and is not safe for concurrent use.
type RateLimiter struct {
	ceiling int
	used    int
}

// NewRateLimiter returns a limiter allowing ceiling replies. A negative
// ceiling is treated as zero.
func NewRateLimiter(ceiling int) *RateLimiter {
	if ceiling < 0 {
		ceiling = 0
	}
	return &RateLimiter{ceiling: ceiling}
}

// HasCapacity reports whether another reply may be sent.
func (rl *RateLimiter) HasCapacity() bool {
	return rl.used < rl.ceiling
}

// Consume uses one unit of capacity. It is a no-op once the ceiling is hit.
func (rl *RateLimiter) Consume() {
	if rl.used < rl.ceiling {
		rl.used++
	}
}

func (rl *RateLimiter) Used() int {
	return rl.used
}

func (rl *RateLimiter) Remaining() int {
	return rl.ceiling - rl.used
}

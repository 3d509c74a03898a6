package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// RateLimiter limits calls within a sliding time window
type RateLimiter struct {
	mu             sync.Mutex
	maxCalls       int
	windowDuration time.Duration
	callTimestamps []time.Time
	now            func() time.Time
}

// NewRateLimiter creates a new rate limiter with the specified max calls and window duration
func NewRateLimiter(maxCalls int, windowDuration time.Duration) *RateLimiter {
	if maxCalls <= 0 {
		maxCalls = 1 // Minimum 1 call
	}
	if windowDuration <= 0 {
		windowDuration = time.Minute
	}

	return &RateLimiter{
		maxCalls:       maxCalls,
		windowDuration: windowDuration,
		callTimestamps: make([]time.Time, 0, maxCalls),
		now:            time.Now,
	}
}

// Wait blocks until a call fits in the window or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		retryIn, ok := rl.reserveLocked(rl.now())
		rl.mu.Unlock()
		if ok {
			return nil
		}

		timer := time.NewTimer(retryIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserveLocked drops timestamps outside the window and records a call at now
// when there is room. Otherwise it reports how long until the oldest call expires.
func (rl *RateLimiter) reserveLocked(now time.Time) (time.Duration, bool) {
	cutoff := now.Add(-rl.windowDuration)
	valid := rl.callTimestamps[:0]
	for _, ts := range rl.callTimestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	rl.callTimestamps = valid

	if len(rl.callTimestamps) >= rl.maxCalls {
		return rl.callTimestamps[0].Sub(cutoff), false
	}

	rl.callTimestamps = append(rl.callTimestamps, now)
	return 0, true
}

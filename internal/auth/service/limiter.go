package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultOTPMaxAttempts bounds OTP submissions per account per window.
	DefaultOTPMaxAttempts = 5

	// DefaultOTPAttemptWindow is the window the budget refills over.
	DefaultOTPAttemptWindow = 5 * time.Minute

	limiterSweepEvery = 1024
)

// AttemptLimiter is a per-key token bucket holding max attempts that refill
// evenly over window. Callers pass the instant explicitly so a fake clock
// drives it in tests.
type AttemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	max      int
	window   time.Duration
	calls    int
}

// NewAttemptLimiter returns a limiter; max <= 0 disables limiting.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	if window <= 0 {
		window = DefaultOTPAttemptWindow
	}
	return &AttemptLimiter{
		limiters: make(map[string]*rate.Limiter),
		max:      max,
		window:   window,
	}
}

// Allow spends one attempt for key at now and reports whether it was available.
func (l *AttemptLimiter) Allow(key string, now time.Time) bool {
	if l == nil || l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		l.sweep(now)
	}

	lim, ok := l.limiters[key]
	if !ok {
		every := l.window / time.Duration(l.max)
		lim = rate.NewLimiter(rate.Every(every), l.max)
		l.limiters[key] = lim
	}
	return lim.AllowN(now, 1)
}

// Reset forgets key's history, e.g. after a successful verification.
func (l *AttemptLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// sweep drops buckets that have refilled completely; they carry no state
// a fresh bucket would not.
func (l *AttemptLimiter) sweep(now time.Time) {
	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.max) {
			delete(l.limiters, key)
		}
	}
}

package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"repurposer/internal/repositories"
)

// OTPThrottle limits how often a code can be mailed to one address.
type OTPThrottle struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
	limit     rate.Limit
	burst     int
	now       Clock
}

const throttleSweepEvery = 10 * time.Minute

// NewOTPThrottle allows burst sends immediately, then perMinute sends per
// minute for each email. perMinute <= 0 disables throttling.
func NewOTPThrottle(perMinute float64, burst int, now Clock) *OTPThrottle {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &OTPThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		now:      now.orDefault(),
	}
}

// Allow consumes one send for email, or returns ErrOTPThrottled.
func (t *OTPThrottle) Allow(email string) error {
	key := repositories.NormalizeEmail(email)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(now)
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = l
	}
	if !l.AllowN(now, 1) {
		return ErrOTPThrottled
	}
	return nil
}

// sweepLocked forgets limiters that have refilled to a full burst; a fresh
// limiter behaves the same.
func (t *OTPThrottle) sweepLocked(now time.Time) {
	if now.Sub(t.lastSweep) < throttleSweepEvery {
		return
	}
	t.lastSweep = now
	for key, l := range t.limiters {
		if l.TokensAt(now) >= float64(t.burst) {
			delete(t.limiters, key)
		}
	}
}

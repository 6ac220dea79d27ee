package havewecrashedyet

import (
	"sync"
	"time"
)

// loginLimiter rate-limits admin login attempts per IP using a fixed window:
// a bucket counts attempts and resets when its window expires.
type loginLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*loginBucket
	now     func() time.Time
}

type loginBucket struct {
	windowStart time.Time
	attempts    int
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*loginBucket),
		now:     time.Now,
	}
}

// Allow records an attempt for ip and reports whether it is within the limit.
func (l *loginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[ip]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[ip] = &loginBucket{windowStart: now, attempts: 1}
		return true
	}
	b.attempts++
	return b.attempts <= l.max
}

// pruneLocked drops expired buckets so the map stays bounded by the set of
// IPs seen in the last window.
func (l *loginLimiter) pruneLocked(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, ip)
		}
	}
}

package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter throttles unauthenticated endpoints per caller key. The coupon
// validator uses it keyed by remote address so stuffing attempts cannot probe
// codes freely.
type rateLimiter interface {
	Allow(key string) bool
}

type windowRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count    int
	windowAt time.Time
}

func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowRateLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]*rateBucket),
	}
}

func (l *windowRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || !now.Before(bucket.windowAt.Add(l.window)) {
		l.dropStaleLocked(now)
		l.buckets[key] = &rateBucket{count: 1, windowAt: now}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	return true
}

// dropStaleLocked evicts buckets whose window has fully elapsed. Called only
// when a new key is inserted, so steady-state lookups stay O(1).
func (l *windowRateLimiter) dropStaleLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if !now.Before(bucket.windowAt.Add(l.window)) {
			delete(l.buckets, key)
		}
	}
}

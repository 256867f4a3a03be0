package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter rate-limits by key (client IP or user id), one token
// bucket per key. Idle buckets are dropped by a background sweep.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	limit    rate.Limit
	burst    int
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a limiter allowing perMinute requests per
// key with a burst of perMinute/4 (at least 1).
func NewKeyedRateLimiter(perMinute int) *KeyedRateLimiter {
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	l := &KeyedRateLimiter{
		limiters: make(map[string]*keyedEntry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
	go l.sweep()
	return l
}

// Allow reports whether the key may proceed.
func (l *KeyedRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *KeyedRateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for key, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, key)
			}
		}
		l.mu.Unlock()
	}
}

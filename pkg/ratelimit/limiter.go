// Package ratelimit keeps one token bucket per caller key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out per-key token buckets sharing the same QPS and burst.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a keyed limiter. A non-positive qps disables limiting.
func New(qps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = int(qps)
		if burst < 1 {
			burst = 1
		}
	}
	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiters: make(map[string]*entry),
		limit:    limit,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether key may proceed now and, if not, how long to wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	lim := l.get(key, now)
	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Sweep drops buckets that have been idle longer than the idle TTL.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.RLock()
	e, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		e.lastSeen = now
		l.mu.Unlock()
		return e.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	e = &entry{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.limiters[key] = e
	return e.limiter
}

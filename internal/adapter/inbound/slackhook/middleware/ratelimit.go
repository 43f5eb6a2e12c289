package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucket is a per-IP token bucket.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// limiter tracks token buckets per remote IP, with stale entries evicted
// inline to keep the map bounded.
type limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	max        float64
	refillRate float64 // tokens per second
	maxEntries int
	lastSweep  time.Time
}

func (l *limiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > 5*time.Minute {
		cutoff := now.Add(-10 * time.Minute)
		for key, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.maxEntries {
			return false
		}
		b = &bucket{tokens: l.max, lastSeen: now}
		l.buckets[ip] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.refillRate
	if b.tokens > l.max {
		b.tokens = l.max
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// NewRateLimit returns middleware limiting each remote IP to
// requestsPerMinute using a token bucket.
func NewRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	l := &limiter{
		buckets:    make(map[string]*bucket),
		max:        float64(requestsPerMinute),
		refillRate: float64(requestsPerMinute) / 60,
		maxEntries: 10000,
		lastSweep:  time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(remoteIP(r), time.Now()) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP strips the port from RemoteAddr. X-Forwarded-For is deliberately
// not trusted: the webhook is expected to face Slack directly.
func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndexByte(addr, ':'); idx != -1 {
		return addr[:idx]
	}
	return addr
}

package http

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client key. A non-positive rps
// disables limiting.
type rateLimiter struct {
	mu    sync.Mutex
	rps   float64
	burst int
	m     map[string]*rate.Limiter
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{rps: rps, burst: burst, m: make(map[string]*rate.Limiter)}
}

func (r *rateLimiter) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(r.rps), r.burst)
	r.m[key] = l
	return l
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.rps <= 0 {
		return true
	}
	return r.get(key).Allow()
}

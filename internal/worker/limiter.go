package worker

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL evicts the limiter of a key not seen for this long
const limiterIdleTTL = 10 * time.Minute

// Limiter implements per-key rate limiting (client address, upstream service)
type Limiter struct {
	limiters     *gocache.Cache
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     gocache.New(limiterIdleTTL, limiterIdleTTL),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for key
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// RetryAfter returns how long key has to wait for its next token
func (l *Limiter) RetryAfter(key string) time.Duration {
	r := l.getLimiter(key).Reserve()
	defer r.Cancel()

	if !r.OK() {
		return 0
	}
	return r.Delay()
}

// SetKeyRate sets a custom rate limit for a specific key
func (l *Limiter) SetKeyRate(key string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters.Set(key, rate.NewLimiter(rate.Limit(requestsPerSecond), burst), gocache.NoExpiration)
}

// getLimiter returns the limiter for key, creating it on first use
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the lock
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters.SetDefault(key, limiter)

	return limiter
}

package search

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const (
	defaultSourceRatePerSec = 2.0
	defaultSourceBurst      = 4
)

// sourceLimiters keeps one token bucket per source so a burst of searches
// cannot hammer a single tracker.
type sourceLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func newSourceLimiters(perSec float64, burst int) *sourceLimiters {
	if perSec <= 0 {
		perSec = defaultSourceRatePerSec
	}
	if burst <= 0 {
		burst = defaultSourceBurst
	}
	return &sourceLimiters{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *sourceLimiters) wait(ctx context.Context, name string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(l.perSec, l.burst)
		l.limiters[name] = limiter
	}
	l.mu.Unlock()
	return limiter.Wait(ctx)
}

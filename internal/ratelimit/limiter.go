// Package ratelimit paces page navigations so a batch of parallel year or
// course fetches does not hammer the portal.
package ratelimit

import (
	"context"
	"sync"

	"github.com/law-makers/guc/internal/urlutil"
	"golang.org/x/time/rate"
)

// Limiter blocks a navigation until it may proceed.
type Limiter interface {
	// Wait blocks until a navigation to urlStr can proceed or ctx is done.
	Wait(ctx context.Context, urlStr string) error
}

// HostLimiter keeps one token bucket per host.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit // navigations per second per host
	burst    int
}

// NewHostLimiter creates a limiter allowing navigationsPerSecond per host
// with the given burst. A non-positive rate means no limit.
func NewHostLimiter(navigationsPerSecond float64, burst int) *HostLimiter {
	limit := rate.Limit(navigationsPerSecond)
	if navigationsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  limit,
		burst:    burst,
	}
}

// Wait implements Limiter. URLs without a host (about:blank) are not paced.
func (l *HostLimiter) Wait(ctx context.Context, urlStr string) error {
	host := urlutil.Host(urlStr)
	if host == "" {
		return nil
	}
	return l.get(host).Wait(ctx)
}

func (l *HostLimiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.perHost, l.burst)
		l.limiters[host] = lim
	}
	return lim
}

// Unlimited never blocks.
type Unlimited struct{}

// Wait implements Limiter
func (Unlimited) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}

package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter spaces requests to the same domain by a minimum delay.
// Limits are independent per domain, so one slow or throttled site never
// starves fetches from the others.
type DomainLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	delay    time.Duration
	burst    int
}

// NewDomainLimiter creates a limiter enforcing at least delay between
// requests to each distinct domain.
func NewDomainLimiter(delay time.Duration, burst int) *DomainLimiter {
	if delay <= 0 {
		delay = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
		burst:    burst,
	}
}

// Wait blocks until a request to rawURL's domain is allowed, or ctx ends.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := Domain(rawURL)
	if err != nil {
		return err
	}
	return l.limiter(domain).Wait(ctx)
}

// SetDomainDelay overrides the delay for one domain.
func (l *DomainLimiter) SetDomainDelay(domain string, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[normalizeDomain(domain)] = rate.NewLimiter(rate.Every(delay), l.burst)
}

func (l *DomainLimiter) limiter(domain string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[domain]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[domain]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Every(l.delay), l.burst)
	l.limiters[domain] = lim
	return lim
}

// Domain extracts the normalized host from a URL.
func Domain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return normalizeDomain(parsed.Host), nil
}

func normalizeDomain(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

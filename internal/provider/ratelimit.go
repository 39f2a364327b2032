package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per provider (requests per second).
var defaultRateLimits = map[ProviderName]rate.Limit{
	NameMusicBrainz: 10,
	NameDeezer:      5,
	NameLastFM:      5,
}

// RateLimiterMap holds one rate.Limiter per provider, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*rate.Limiter
}

// NewRateLimiterMap creates all provider rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[ProviderName]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, burstFor(limit))
	}
	return m
}

// SetLimit replaces the limit for a provider. A non-positive limit removes
// throttling for that provider.
func (m *RateLimiterMap) SetLimit(name ProviderName, perSecond float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perSecond <= 0 {
		delete(m.limiters, name)
		return
	}
	limit := rate.Limit(perSecond)
	m.limiters[name] = rate.NewLimiter(limit, burstFor(limit))
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// burstFor lets a search fan-out hit each provider once without queueing.
func burstFor(limit rate.Limit) int {
	if limit < 2 {
		return 1
	}
	return 2
}

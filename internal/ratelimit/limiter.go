// Package ratelimit paces outbound DNS queries so large candidate sets do
// not trip resolver abuse protection.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter combines a global token bucket with a minimum gap between queries
// sent to the same upstream. A nil *Limiter never blocks.
type Limiter struct {
	limiter  *rate.Limiter
	minGap   time.Duration
	burst    int
	mu       sync.Mutex
	lastSent map[string]time.Time
}

type Config struct {
	// RequestsPerSecond caps queries across all upstreams. Zero disables limiting.
	RequestsPerSecond float64

	// BurstSize allows brief bursts above the rate.
	BurstSize int

	// MinGap is the minimum delay between two queries to the same upstream.
	MinGap time.Duration
}

// ResolverConfig derives a config from a queries-per-second budget.
func ResolverConfig(qps float64) Config {
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return Config{
		RequestsPerSecond: qps,
		BurstSize:         burst,
	}
}

// NewLimiter returns nil when cfg disables limiting.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		minGap:   cfg.MinGap,
		burst:    burst,
		lastSent: make(map[string]time.Time),
	}
}

// Wait blocks until the global budget allows one more query.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// WaitFor blocks until a query to upstream is allowed.
func (l *Limiter) WaitFor(ctx context.Context, upstream string) error {
	if l == nil {
		return ctx.Err()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	if l.minGap <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastSent[upstream]; ok {
		if elapsed := time.Since(last); elapsed < l.minGap {
			select {
			case <-time.After(l.minGap - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	l.lastSent[upstream] = time.Now()
	return nil
}

// Stats describes the limiter for diagnostics.
type Stats struct {
	Rate      float64
	BurstSize int
	MinGap    time.Duration
	Upstreams int
}

func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Rate:      float64(l.limiter.Limit()),
		BurstSize: l.burst,
		MinGap:    l.minGap,
		Upstreams: len(l.lastSent),
	}
}

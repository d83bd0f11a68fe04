// Package probe resolves candidate domains and fetches the pages of the ones
// that are alive.
package probe

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
)

// Probe stages reported to an ErrorFunc.
const (
	StageResolveA  = "dns.a"
	StageResolveMX = "dns.mx"
	StageResolveNS = "dns.ns"
	StageFetch     = "fetch"
)

// ErrorFunc receives per-candidate failures. Failures never abort a batch.
type ErrorFunc func(stage, domain string, err error)

// ProbeResult holds the records found for one candidate. An empty slice
// means nothing was found or the lookup failed.
type ProbeResult struct {
	Domain string   `json:"domain"`
	A      []string `json:"a_records"`
	MX     []string `json:"mx_records"`
	NS     []string `json:"ns_records"`
}

// Alive reports whether the candidate resolved to at least one address.
func (r ProbeResult) Alive() bool { return len(r.A) > 0 }

type DNSProbe struct {
	resolver    Resolver
	records     Resolver
	concurrency int
	onError     ErrorFunc
	logger      *logger.Logger
}

type DNSOption func(*DNSProbe)

func WithDNSErrorFunc(fn ErrorFunc) DNSOption {
	return func(p *DNSProbe) { p.onError = fn }
}

func WithDNSLogger(log *logger.Logger) DNSOption {
	return func(p *DNSProbe) { p.logger = log }
}

// NewDNSProbe uses resolver for the A phase and records for MX and NS. When
// records is nil the A resolver serves both.
func NewDNSProbe(resolver, records Resolver, concurrency int, opts ...DNSOption) *DNSProbe {
	if records == nil {
		records = resolver
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	p := &DNSProbe{
		resolver:    resolver,
		records:     records,
		concurrency: concurrency,
		onError:     func(string, string, error) {},
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve runs both phases and returns one result per candidate, in input
// order. MX and NS are only queried for alive candidates, after every A
// lookup has finished.
func (p *DNSProbe) Resolve(ctx context.Context, candidates []string) []ProbeResult {
	results := p.ResolveA(ctx, candidates)
	p.Enrich(ctx, results)
	return results
}

// ResolveA performs phase one: a single A lookup per candidate.
func (p *DNSProbe) ResolveA(ctx context.Context, candidates []string) []ProbeResult {
	start := time.Now()
	results := make([]ProbeResult, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, candidate := range candidates {
		results[i] = ProbeResult{Domain: candidate, A: []string{}, MX: []string{}, NS: []string{}}
		if ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			addrs, err := p.resolver.LookupA(ctx, candidate)
			if err != nil {
				p.onError(StageResolveA, candidate, err)
				return nil
			}
			if len(addrs) > 0 {
				results[i].A = addrs
			}
			return nil
		})
	}
	_ = g.Wait()

	alive := 0
	for _, r := range results {
		if r.Alive() {
			alive++
		}
	}
	p.logger.Debugw("A lookups finished",
		"candidates", len(candidates),
		"alive", alive,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// Enrich performs phase two in place: MX and NS lookups for alive results.
// Each lookup is independent; a failure leaves only that list empty.
func (p *DNSProbe) Enrich(ctx context.Context, results []ProbeResult) {
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i := range results {
		if !results[i].Alive() || ctx.Err() != nil {
			continue
		}
		name := results[i].Domain
		g.Go(func() error {
			mx, err := p.records.LookupMX(ctx, name)
			if err != nil {
				p.onError(StageResolveMX, name, err)
			} else if len(mx) > 0 {
				results[i].MX = mx
			}
			return nil
		})
		g.Go(func() error {
			ns, err := p.records.LookupNS(ctx, name)
			if err != nil {
				p.onError(StageResolveNS, name, err)
			} else if len(ns) > 0 {
				results[i].NS = ns
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Alive filters results down to candidates with at least one A record.
func Alive(results []ProbeResult) []ProbeResult {
	out := make([]ProbeResult, 0, len(results))
	for _, r := range results {
		if r.Alive() {
			out = append(out, r)
		}
	}
	return out
}

// Domains returns the candidate names of results.
func Domains(results []ProbeResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Domain
	}
	return out
}

package probe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
)

// ErrNoResolvers is returned when a resolver is built without upstreams.
var ErrNoResolvers = errors.New("no dns resolvers configured")

// Resolver answers the record lookups the probe needs. Implementations must
// be safe for concurrent use.
type Resolver interface {
	LookupA(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]string, error)
	LookupNS(ctx context.Context, name string) ([]string, error)
}

// DNSResolver sends single queries over UDP to a list of upstream servers.
// Each query goes to one server, chosen round-robin, and is never retried.
type DNSResolver struct {
	client  *dns.Client
	servers []string
	limiter *ratelimit.Limiter
	next    atomic.Uint64
}

// NewDNSResolver creates a resolver with a fixed per-query timeout. limiter may be nil.
func NewDNSResolver(servers []string, timeout time.Duration, limiter *ratelimit.Limiter) (*DNSResolver, error) {
	if len(servers) == 0 {
		return nil, ErrNoResolvers
	}
	return &DNSResolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
		servers: servers,
		limiter: limiter,
	}, nil
}

func (r *DNSResolver) LookupA(ctx context.Context, name string) ([]string, error) {
	answers, err := r.query(ctx, name, dns.TypeA)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if a, ok := rr.(*dns.A); ok {
			out = append(out, a.A.String())
		}
	}
	return out, nil
}

func (r *DNSResolver) LookupMX(ctx context.Context, name string) ([]string, error) {
	answers, err := r.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, fmt.Sprintf("%d %s", mx.Preference, mx.Mx))
		}
	}
	return out, nil
}

func (r *DNSResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	answers, err := r.query(ctx, name, dns.TypeNS)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if ns, ok := rr.(*dns.NS); ok {
			out = append(out, ns.Ns)
		}
	}
	return out, nil
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	server := r.servers[r.next.Add(1)%uint64(len(r.servers))]
	if err := r.limiter.WaitFor(ctx, server); err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain.ToASCII(name)), qtype)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("%s %s via %s: %w", dns.TypeToString[qtype], name, server, err)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return resp.Answer, nil
	default:
		return nil, fmt.Errorf("%s %s via %s: %s", dns.TypeToString[qtype], name, server, dns.RcodeToString[resp.Rcode])
	}
}

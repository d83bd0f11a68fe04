// Package whois attaches registration data to live look-alike domains.
package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
)

// ErrNotRegistered is returned when the registry reports no such domain.
var ErrNotRegistered = errors.New("domain not registered")

// Info is the registration summary attached to a report record.
type Info struct {
	Registrar   string   `json:"registrar,omitempty" yaml:"registrar,omitempty"`
	Created     string   `json:"created,omitempty" yaml:"created,omitempty"`
	Expires     string   `json:"expires,omitempty" yaml:"expires,omitempty"`
	NameServers []string `json:"name_servers,omitempty" yaml:"name_servers,omitempty"`
}

// LookupFunc returns the raw WHOIS response for a domain.
type LookupFunc func(ctx context.Context, domain string) (string, error)

type Client struct {
	lookup      LookupFunc
	concurrency int
	logger      *logger.Logger

	mu    sync.Mutex
	cache map[string]*Info
}

// NewClient queries WHOIS servers directly with the given timeout.
func NewClient(timeout time.Duration, concurrency int, log *logger.Logger) *Client {
	wc := whois.NewClient().SetTimeout(timeout)
	return NewClientWithLookup(func(ctx context.Context, domain string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return wc.Whois(domain)
	}, concurrency, log)
}

// NewClientWithLookup uses lookup instead of the network.
func NewClientWithLookup(lookup LookupFunc, concurrency int, log *logger.Logger) *Client {
	if concurrency <= 0 {
		concurrency = 1
	}
	c := &Client{
		lookup:      lookup,
		concurrency: concurrency,
		cache:       make(map[string]*Info),
	}
	if log != nil {
		c.logger = log.WithComponent("whois")
	}
	return c
}

// Lookup returns registration data for domain. Results are cached for the
// client's lifetime.
func (c *Client) Lookup(ctx context.Context, domain string) (*Info, error) {
	c.mu.Lock()
	cached, ok := c.cache[domain]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	raw, err := c.lookup(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("whois lookup failed for %s: %w", domain, err)
	}

	info, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("whois %s: %w", domain, err)
	}

	c.mu.Lock()
	c.cache[domain] = info
	c.mu.Unlock()
	return info, nil
}

// LookupAll resolves domains with bounded concurrency. Failed lookups are
// logged and left out of the result.
func (c *Client) LookupAll(ctx context.Context, domains []string) map[string]*Info {
	var mu sync.Mutex
	out := make(map[string]*Info, len(domains))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for _, d := range domains {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			info, err := c.Lookup(ctx, d)
			if err != nil {
				c.log(ctx).Debugw("WHOIS lookup failed", "domain", d, "error", err)
				return nil
			}
			mu.Lock()
			out[d] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// log returns the client's logger, or the one carried by ctx when the client
// was built without one.
func (c *Client) log(ctx context.Context) *logger.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logger.FromContext(ctx).WithComponent("whois")
}

// Parse extracts the registration summary from a raw WHOIS response. When
// the structured parser cannot handle the format, common field labels are
// read line by line.
func Parse(raw string) (*Info, error) {
	parsed, err := whoisparser.Parse(raw)
	switch {
	case err == nil:
		info := &Info{}
		if parsed.Registrar != nil {
			info.Registrar = parsed.Registrar.Name
		}
		if parsed.Domain != nil {
			info.Created = parsed.Domain.CreatedDate
			info.Expires = parsed.Domain.ExpirationDate
			info.NameServers = normalizeNameServers(parsed.Domain.NameServers)
		}
		return info, nil
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, ErrNotRegistered
	}

	info := parseManual(raw)
	if info.Registrar == "" && info.Created == "" && len(info.NameServers) == 0 {
		return nil, fmt.Errorf("unrecognised whois response: %w", err)
	}
	return info, nil
}

func parseManual(raw string) *Info {
	info := &Info{}
	var servers []string

	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "registrar", "sponsoring registrar":
			if info.Registrar == "" {
				info.Registrar = value
			}
		case "creation date", "created", "created on", "registered on":
			if info.Created == "" {
				info.Created = value
			}
		case "registry expiry date", "registrar registration expiration date", "expiration date", "expiry date", "expires", "expires on":
			if info.Expires == "" {
				info.Expires = value
			}
		case "name server", "nserver", "nameserver":
			servers = append(servers, strings.Fields(value)[0])
		}
	}

	info.NameServers = normalizeNameServers(servers)
	return info
}

func normalizeNameServers(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, ns := range in {
		ns = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(ns)), ".")
		if ns == "" || seen[ns] {
			continue
		}
		seen[ns] = true
		out = append(out, ns)
	}
	return out
}

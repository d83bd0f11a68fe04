// Package httpclient builds the HTTP clients used by a scan: one shared pool
// for candidate fetches, a verifying client for the original site, and a
// client for callback delivery.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Config configures a client built by NewClient.
type Config struct {
	// Timeout bounds the whole exchange. Zero leaves timing to the request context.
	Timeout time.Duration

	// InsecureSkipVerify disables certificate verification.
	InsecureSkipVerify bool

	// BlockPrivate refuses connections to loopback, link-local and private addresses.
	BlockPrivate bool

	MaxIdleConnsPerHost int
	MaxRedirects        int
}

// NewClient creates an HTTP client with a context-aware dialer and bounded redirects.
func NewClient(cfg Config) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}

	idlePerHost := cfg.MaxIdleConnsPerHost
	if idlePerHost <= 0 {
		idlePerHost = 2
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cfg.BlockPrivate {
				if err := validateAddress(ctx, addr); err != nil {
					return nil, fmt.Errorf("blocked destination: %w", err)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{
			// Squatted sites routinely present self-signed or mismatched
			// certificates; candidate fetches must still read them.
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
		},
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   idlePerHost,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	maxRedirects := cfg.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			if maxRedirects == 0 {
				return http.ErrUseLastResponse
			}
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return client
}

// NewCandidateClient returns the shared client for one fetch batch. Certificate
// verification is off and per-attempt deadlines come from the caller's context.
func NewCandidateClient() *http.Client {
	return NewClient(Config{
		InsecureSkipVerify:  true,
		MaxIdleConnsPerHost: 2,
		MaxRedirects:        10,
	})
}

// NewBaselineClient fetches the original site with certificate verification on.
func NewBaselineClient(timeout time.Duration) *http.Client {
	return NewClient(Config{
		Timeout:      timeout,
		MaxRedirects: 10,
	})
}

// NewCallbackClient delivers reports. Redirects are not followed.
func NewCallbackClient(timeout time.Duration, blockPrivate bool) *http.Client {
	return NewClient(Config{
		Timeout:      timeout,
		BlockPrivate: blockPrivate,
	})
}

func validateAddress(ctx context.Context, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("private address %s", ip)
		}
		return nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("private address %s (%s)", ip, host)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

// CloseBody drains and closes a response body so the connection returns to the pool.
func CloseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}

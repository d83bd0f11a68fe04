package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
)

// Fetch failure kinds. Every fetch error wraps exactly one of them.
var (
	ErrFetchTimeout    = errors.New("fetch timed out")
	ErrFetchConnection = errors.New("fetch connection failed")
	ErrFetchInvalidURL = errors.New("fetch url invalid")
	ErrFetchTLS        = errors.New("fetch certificate rejected")
)

// FetchResult is the page body of one candidate. OK=false means the site was
// unreachable or blocked.
type FetchResult struct {
	Domain string `json:"domain"`
	Body   string `json:"-"`
	OK     bool   `json:"ok"`
	Err    error  `json:"-"`
}

// FetchConfig controls attempts and limits for a Fetcher.
type FetchConfig struct {
	Timeout     time.Duration
	Attempts    int
	Concurrency int
	MaxBodySize int64
	UserAgent   string
	// Scheme defaults to https.
	Scheme string
}

// Fetcher GETs candidate home pages through one shared client.
type Fetcher struct {
	client  *http.Client
	cfg     FetchConfig
	onError ErrorFunc
	logger  *logger.Logger
}

type FetchOption func(*Fetcher)

func WithFetchErrorFunc(fn ErrorFunc) FetchOption {
	return func(f *Fetcher) { f.onError = fn }
}

func WithFetchLogger(log *logger.Logger) FetchOption {
	return func(f *Fetcher) { f.logger = log }
}

// NewFetcher wraps client. A nil client gets the insecure candidate client.
func NewFetcher(client *http.Client, cfg FetchConfig, opts ...FetchOption) *Fetcher {
	if client == nil {
		client = httpclient.NewCandidateClient()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 10 << 20
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}

	f := &Fetcher{
		client:  client,
		cfg:     cfg,
		onError: func(string, string, error) {},
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches every domain with bounded concurrency. Every input domain
// has an entry in the result.
func (f *Fetcher) FetchAll(ctx context.Context, domains []string) map[string]FetchResult {
	start := time.Now()
	var mu sync.Mutex
	results := make(map[string]FetchResult, len(domains))

	g := new(errgroup.Group)
	g.SetLimit(f.cfg.Concurrency)
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			results[d] = FetchResult{Domain: d, Err: err}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			body, err := f.Fetch(ctx, d)
			res := FetchResult{Domain: d, Body: body, OK: err == nil, Err: err}
			if err != nil {
				f.onError(StageFetch, d, err)
			}
			mu.Lock()
			results[d] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	f.logger.Debugw("Fetch batch finished",
		"domains", len(domains),
		"reachable", ok,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// Fetch returns the body of the domain's home page. Any status code counts
// as content. Connection failures, malformed URLs and timeouts are retried
// up to the configured attempts; a rejected certificate is not.
func (f *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	target := f.cfg.Scheme + "://" + domain.ToASCII(name) + "/"

	var lastErr error
	for attempt := 1; attempt <= f.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrFetchTimeout, name, err)
		}

		body, err := f.fetchOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if errors.Is(err, ErrFetchTLS) {
			break
		}
		f.logger.Debugw("Fetch attempt failed",
			"domain", name,
			"attempt", attempt,
			"error", err,
		)
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchInvalidURL, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classify(target, err)
	}
	defer httpclient.CloseBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return "", classify(target, err)
	}
	return string(data), nil
}

func classify(target string, err error) error {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownCA   x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
		urlErr      *url.Error
		netErr      net.Error
		dnsErr      *net.DNSError
	)

	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert):
		return fmt.Errorf("%w: %s: %v", ErrFetchTLS, target, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %v", ErrFetchTimeout, target, err)
	case errors.As(err, &dnsErr):
		return fmt.Errorf("%w: %s: %v", ErrFetchConnection, target, err)
	case errors.As(err, &urlErr) && urlErr.Err != nil && isURLSyntaxError(urlErr.Err):
		return fmt.Errorf("%w: %s: %v", ErrFetchInvalidURL, target, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrFetchConnection, target, err)
	}
}

func isURLSyntaxError(err error) bool {
	var escapeErr url.EscapeError
	var hostErr url.InvalidHostError
	return errors.As(err, &escapeErr) || errors.As(err, &hostErr)
}

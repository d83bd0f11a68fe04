// Package scanner runs one look-alike scan end to end: generate candidates,
// resolve them, fetch the live ones, score them against the original site,
// and build the report.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/cache"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/notify"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/permutation"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/probe"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/report"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/similarity"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/whois"
)

// Stages reported to the ErrorHook besides the probe stages.
const (
	StageBaseline = "baseline"
	StageDeliver  = "deliver"
)

// ErrorHook is the single place per-candidate and per-scan failures surface.
// It must be safe for concurrent use.
type ErrorHook func(ctx context.Context, stage, domain string, err error)

// Request describes one scan.
type Request struct {
	ScanID string
	Domain string
	// Mode is a similarity mode name; empty selects the configured default.
	Mode string
	// SimilarityCheck enables scoring against the original site.
	SimilarityCheck bool
	// Source labels the caller in metrics, e.g. "cli" or "api".
	Source string
}

type Scanner struct {
	cfg       *config.Config
	engine    *permutation.Engine
	resolver  probe.Resolver
	records   probe.Resolver
	client    *http.Client
	baseline  *probe.Fetcher
	cache     cache.Cache
	whois     *whois.Client
	telemetry telemetry.Telemetry
	logger    *logger.Logger
	hook      ErrorHook
}

type Option func(*Scanner)

// WithResolvers replaces the DNS resolvers for the A phase and the MX/NS phase.
func WithResolvers(a, records probe.Resolver) Option {
	return func(s *Scanner) {
		s.resolver = a
		s.records = records
	}
}

// WithCandidateClient shares client across fetch batches instead of building
// one per scan.
func WithCandidateClient(client *http.Client) Option {
	return func(s *Scanner) { s.client = client }
}

// WithBaselineClient fetches the original site through client.
func WithBaselineClient(client *http.Client) Option {
	return func(s *Scanner) { s.baseline = s.newBaselineFetcher(client) }
}

func WithCache(c cache.Cache) Option {
	return func(s *Scanner) { s.cache = c }
}

func WithWhois(c *whois.Client) Option {
	return func(s *Scanner) { s.whois = c }
}

func WithTelemetry(t telemetry.Telemetry) Option {
	return func(s *Scanner) { s.telemetry = t }
}

func WithErrorHook(hook ErrorHook) Option {
	return func(s *Scanner) { s.hook = hook }
}

// New builds a scanner from cfg. cfg is validated and defaulted in place.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	engine, err := permutation.New(cfg.Permutation.Strategies...)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		cfg:       cfg,
		engine:    engine,
		telemetry: telemetry.NewNoop(),
		logger:    log.WithComponent("scanner"),
	}
	s.hook = s.logError
	s.baseline = s.newBaselineFetcher(httpclient.NewBaselineClient(cfg.Similarity.BaselineTimeout))

	for _, opt := range opts {
		opt(s)
	}

	if s.resolver == nil {
		limiter := ratelimit.NewLimiter(ratelimit.ResolverConfig(cfg.Probe.RequestsPerSecond))
		r, err := probe.NewDNSResolver(cfg.Probe.Resolvers, cfg.Probe.Timeout, limiter)
		if err != nil {
			return nil, err
		}
		records, err := probe.NewDNSResolver(cfg.Probe.RecordResolvers, cfg.Probe.Timeout, limiter)
		if err != nil {
			return nil, err
		}
		s.resolver, s.records = r, records
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.whois == nil && cfg.Enrichment.Whois {
		// Logs through the scan's context logger so lines carry the scan id.
		s.whois = whois.NewClient(cfg.Enrichment.WhoisTimeout, cfg.Enrichment.WhoisConcurrency, nil)
	}

	return s, nil
}

func (s *Scanner) newBaselineFetcher(client *http.Client) *probe.Fetcher {
	return probe.NewFetcher(client, probe.FetchConfig{
		Timeout:     s.cfg.Similarity.BaselineTimeout,
		Attempts:    s.cfg.Fetch.Attempts,
		Concurrency: 1,
		MaxBodySize: s.cfg.Fetch.MaxBodySize,
		UserAgent:   s.cfg.Fetch.UserAgent,
	})
}

// Engine exposes the candidate generator the scanner uses.
func (s *Scanner) Engine() *permutation.Engine { return s.engine }

func (s *Scanner) logError(ctx context.Context, stage, name string, err error) {
	s.logger.WithContext(ctx).Debugw("Scan step failed",
		"stage", stage,
		"domain", name,
		"error", err,
	)
}

// Run executes a scan and returns the records for live look-alikes. A
// cancelled context stops the scan and returns the context error.
func (s *Scanner) Run(ctx context.Context, req Request) (records []report.Record, err error) {
	start := time.Now()
	source := req.Source
	if source == "" {
		source = "library"
	}
	defer func() {
		s.telemetry.RecordScan(ctx, source, time.Since(start), err == nil)
	}()

	original, err := domain.Parse(req.Domain)
	if err != nil {
		return nil, err
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = s.cfg.Similarity.Mode
	}
	mode, err := similarity.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	ctx, span := s.telemetry.StartScan(ctx, original.String())
	defer span.End()

	log := s.logger.WithScanID(req.ScanID).WithDomain(original.String())
	ctx = logger.WithLogger(ctx, log)
	ctx, opSpan := log.StartOperation(ctx, "scan", "mode", mode, "similarity_check", req.SimilarityCheck)
	defer func() {
		log.FinishOperation(ctx, opSpan, "scan", start, err, "records", len(records))
	}()

	phase := time.Now()
	candidates := s.engine.Generate(original)
	log.LogPhase(ctx, req.ScanID, "permute", 1, len(candidates), phase)
	if len(candidates) == 0 {
		return []report.Record{}, nil
	}

	// The baseline fetch overlaps with DNS resolution.
	type baselineResult struct {
		body string
		err  error
	}
	baselineCh := make(chan baselineResult, 1)
	scoring := req.SimilarityCheck && s.cfg.Similarity.Enabled
	if scoring {
		go func() {
			body, err := s.Baseline(ctx, original)
			baselineCh <- baselineResult{body, err}
		}()
	}

	hook := func(stage, name string, err error) { s.hook(ctx, stage, name, err) }
	dnsProbe := probe.NewDNSProbe(s.resolver, s.records, s.cfg.Probe.Concurrency,
		probe.WithDNSErrorFunc(hook),
		probe.WithDNSLogger(log),
	)

	phase = time.Now()
	resolved := dnsProbe.ResolveA(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	alive := probe.Alive(resolved)
	log.LogPhase(ctx, req.ScanID, "resolve", len(candidates), len(alive), phase)
	s.telemetry.RecordCandidates(ctx, len(candidates), len(alive))

	phase = time.Now()
	dnsProbe.Enrich(ctx, alive)
	log.LogPhase(ctx, req.ScanID, "records", len(alive), len(alive), phase)

	client := s.client
	if client == nil {
		client = httpclient.NewCandidateClient()
		defer client.CloseIdleConnections()
	}
	fetcher := probe.NewFetcher(client, probe.FetchConfig{
		Timeout:     s.cfg.Fetch.Timeout,
		Attempts:    s.cfg.Fetch.Attempts,
		Concurrency: s.cfg.Fetch.Concurrency,
		MaxBodySize: s.cfg.Fetch.MaxBodySize,
		UserAgent:   s.cfg.Fetch.UserAgent,
	}, probe.WithFetchErrorFunc(hook), probe.WithFetchLogger(log))

	phase = time.Now()
	fetches := fetcher.FetchAll(ctx, probe.Domains(alive))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reachable := 0
	for _, f := range fetches {
		if f.OK {
			reachable++
		}
	}
	log.LogPhase(ctx, req.ScanID, "fetch", len(alive), reachable, phase)

	var scorer report.Scorer
	if scoring {
		res := <-baselineCh
		if res.err != nil {
			s.hook(ctx, StageBaseline, original.Host, res.err)
			log.Warnw("Similarity disabled for this scan: baseline unavailable", "error", res.err)
		} else {
			scorer = similarity.NewScorer(res.body, mode, true)
		}
	}

	records = report.Aggregate(original, alive, fetches, scorer)

	if s.whois != nil && len(records) > 0 {
		phase = time.Now()
		info := s.whois.LookupAll(ctx, report.Domains(records))
		report.AttachWhois(records, info)
		log.LogPhase(ctx, req.ScanID, "whois", len(records), len(info), phase)
	}

	for _, r := range records {
		log.LogLookalike(ctx, r.Domain, r.ARecords, r.Similarity.String())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// RunAndDeliver runs a scan and hands the records to n. A domain with no
// registrable label still gets an empty delivery; the parse error is
// returned alongside it. Delivery failures go through the error hook and
// are returned.
func (s *Scanner) RunAndDeliver(ctx context.Context, req Request, n notify.Notifier) ([]report.Record, error) {
	records, err := s.Run(ctx, req)
	switch {
	case errors.Is(err, domain.ErrMalformedDomain):
		records = []report.Record{}
	case err != nil:
		return nil, err
	}
	if n == nil {
		return records, err
	}
	if derr := n.Deliver(ctx, records); derr != nil {
		s.hook(ctx, StageDeliver, req.Domain, derr)
		return records, errors.Join(err, fmt.Errorf("delivery failed: %w", derr))
	}
	return records, err
}

// ErrBaselineEmpty is returned when the original site answers with no content.
var ErrBaselineEmpty = errors.New("baseline page is empty")

// Baseline returns the original site's HTML, from cache when possible.
func (s *Scanner) Baseline(ctx context.Context, original domain.Domain) (string, error) {
	key := cache.BaselineKey(original.Host)
	if body, err := s.cache.Get(ctx, key); err == nil {
		return body, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Debugw("Baseline cache read failed", "domain", original.Host, "error", err)
	}

	start := time.Now()
	body, err := s.baseline.Fetch(ctx, original.Host)
	s.logger.LogDuration(ctx, "baseline_fetch", start, "domain", original.Host, "bytes", len(body), "ok", err == nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch baseline: %w", err)
	}
	if body == "" {
		return "", ErrBaselineEmpty
	}

	if err := s.cache.Set(ctx, key, body, s.cfg.Similarity.BaselineTTL); err != nil {
		s.logger.Debugw("Baseline cache write failed", "domain", original.Host, "error", err)
	}
	return body, nil
}

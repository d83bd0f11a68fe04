package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
)

// Telemetry records scan-level metrics and spans.
type Telemetry interface {
	StartScan(ctx context.Context, domain string) (context.Context, trace.Span)
	RecordScan(ctx context.Context, source string, duration time.Duration, success bool)
	RecordCandidates(ctx context.Context, total, alive int)
	Close() error
}

type telemetry struct {
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider

	scanCounter     metric.Int64Counter
	scanDuration    metric.Float64Histogram
	candidateCount  metric.Int64Counter
	aliveCandidates metric.Int64Counter
}

func New(ctx context.Context, cfg config.TelemetryConfig, version string) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.ExporterType {
	case "otlp", "":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := otel.Meter(cfg.ServiceName)
	t := &telemetry{
		tracer:         tp.Tracer(cfg.ServiceName),
		tracerProvider: tp,
	}

	if t.scanCounter, err = meter.Int64Counter("squatwatch.scans.total",
		metric.WithDescription("Total number of scans"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if t.scanDuration, err = meter.Float64Histogram("squatwatch.scan.duration",
		metric.WithDescription("Scan duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if t.candidateCount, err = meter.Int64Counter("squatwatch.candidates.total",
		metric.WithDescription("Candidate domains generated"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}
	if t.aliveCandidates, err = meter.Int64Counter("squatwatch.candidates.alive",
		metric.WithDescription("Candidate domains with at least one A record"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *telemetry) StartScan(ctx context.Context, domain string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scan", trace.WithAttributes(attribute.String("scan.domain", domain)))
}

func (t *telemetry) RecordScan(ctx context.Context, source string, duration time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("scan.source", source),
		attribute.Bool("scan.success", success),
	)
	t.scanCounter.Add(ctx, 1, attrs)
	t.scanDuration.Record(ctx, duration.Seconds(), attrs)
}

func (t *telemetry) RecordCandidates(ctx context.Context, total, alive int) {
	t.candidateCount.Add(ctx, int64(total))
	t.aliveCandidates.Add(ctx, int64(alive))
}

func (t *telemetry) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.tracerProvider.Shutdown(ctx)
}

type noopTelemetry struct {
	tracer trace.Tracer
}

// NewNoop returns a Telemetry that records nothing.
func NewNoop() Telemetry {
	return &noopTelemetry{tracer: noop.NewTracerProvider().Tracer("squatwatch")}
}

func (n *noopTelemetry) StartScan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return n.tracer.Start(ctx, "scan")
}
func (n *noopTelemetry) RecordScan(context.Context, string, time.Duration, bool) {}
func (n *noopTelemetry) RecordCandidates(context.Context, int, int)             {}
func (n *noopTelemetry) Close() error                                           { return nil }

package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "squatwatch"

// Version is stamped into every log line; overridden at build time with -ldflags.
var Version = "dev"

type Logger struct {
	*zap.SugaredLogger
	otelCore   *otelzap.Core
	tracer     trace.Tracer
	baseLogger *zap.Logger
}

func New(cfg config.LoggerConfig) (*Logger, error) {
	var zapConfig zap.Config

	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// Results go to stdout for the CLI, so logs default to stderr.
	zapConfig.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapConfig.OutputPaths = cfg.OutputPaths
	}

	zapConfig.InitialFields = map[string]interface{}{
		"service": serviceName,
		"version": Version,
	}

	baseLogger, err := zapConfig.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	// Tee into otelzap so log records correlate with scan spans.
	otelCore := otelzap.NewCore(serviceName,
		otelzap.WithAttributes(
			attribute.String("service", serviceName),
			attribute.String("version", Version),
		),
	)

	core := zapcore.NewTee(baseLogger.Core(), otelCore)
	enhancedLogger := zap.New(core, zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		SugaredLogger: enhancedLogger.Sugar(),
		otelCore:      otelCore,
		tracer:        otel.Tracer(serviceName + "/logger"),
		baseLogger:    enhancedLogger,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests and by
// library callers that do not care about logs.
func NewNop() *Logger {
	nop := zap.NewNop()
	return &Logger{
		SugaredLogger: nop.Sugar(),
		tracer:        otel.Tracer(serviceName + "/nop"),
		baseLogger:    nop,
	}
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		spanCtx := span.SpanContext()
		return l.derive(l.With(
			"trace_id", spanCtx.TraceID().String(),
			"span_id", spanCtx.SpanID().String(),
		))
	}
	return l
}

func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return l.derive(l.With(fields...))
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

func (l *Logger) WithDomain(domain string) *Logger {
	return l.WithFields("domain", domain)
}

func (l *Logger) WithScanID(scanID string) *Logger {
	return l.WithFields("scan_id", scanID)
}

func (l *Logger) derive(s *zap.SugaredLogger) *Logger {
	return &Logger{
		SugaredLogger: s,
		otelCore:      l.otelCore,
		tracer:        l.tracer,
		baseLogger:    l.baseLogger,
	}
}

// Span and tracing utilities

func (l *Logger) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if l.tracer == nil {
		l.tracer = otel.Tracer(serviceName + "/default")
	}
	return l.tracer.Start(ctx, name, opts...)
}

func (l *Logger) LogDuration(ctx context.Context, operation string, start time.Time, fields ...interface{}) {
	duration := time.Since(start)

	allFields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Infow("Operation completed", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("operation_completed", trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	}
}

func (l *Logger) LogError(ctx context.Context, err error, operation string, fields ...interface{}) {
	if err == nil {
		return
	}

	allFields := []interface{}{
		"error", err.Error(),
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Errorw("Operation failed", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (l *Logger) LogPanic(ctx context.Context, recovered interface{}, operation string, fields ...interface{}) {
	allFields := []interface{}{
		"panic", recovered,
		"operation", operation,
		"panic_type", fmt.Sprintf("%T", recovered),
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Errorw("Panic recovered", allFields...)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", recovered))
	}
}

// LogPhase records the outcome of one pipeline phase (generation, dns, fetch...).
func (l *Logger) LogPhase(ctx context.Context, scanID, phase string, in, out int, start time.Time) {
	duration := time.Since(start)

	l.WithContext(ctx).Infow("Scan phase completed",
		"scan_id", scanID,
		"phase", phase,
		"input", in,
		"output", out,
		"duration_ms", duration.Milliseconds(),
	)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("phase_completed", trace.WithAttributes(
			attribute.String("phase", phase),
			attribute.Int("input", in),
			attribute.Int("output", out),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		))
	}
}

// LogLookalike records a live look-alike domain.
func (l *Logger) LogLookalike(ctx context.Context, domain string, addresses []string, similarity interface{}) {
	l.WithContext(ctx).Infow("Live look-alike domain",
		"lookalike", domain,
		"a_records", addresses,
		"similarity", similarity,
	)
}

func (l *Logger) LogHTTPRequest(ctx context.Context, method, url string, statusCode int, duration time.Duration, fields ...interface{}) {
	allFields := []interface{}{
		"http_method", method,
		"http_url", url,
		"http_status", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	allFields = append(allFields, fields...)

	switch {
	case statusCode >= 500:
		l.WithContext(ctx).Errorw("HTTP request completed", allFields...)
	case statusCode >= 400:
		l.WithContext(ctx).Warnw("HTTP request completed", allFields...)
	default:
		l.WithContext(ctx).Infow("HTTP request completed", allFields...)
	}
}

// Context utilities

type contextKey struct{}

var loggerKey = contextKey{}

func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	logger, err := New(config.LoggerConfig{Level: "info", Format: "json"})
	if err != nil {
		return NewNop()
	}
	return logger
}

func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func (l *Logger) StartOperation(ctx context.Context, operation string, fields ...interface{}) (context.Context, trace.Span) {
	ctx, span := l.StartSpan(ctx, operation)

	allFields := []interface{}{
		"operation", operation,
	}
	allFields = append(allFields, fields...)

	l.WithContext(ctx).Debugw("Operation started", allFields...)

	return ctx, span
}

func (l *Logger) FinishOperation(ctx context.Context, span trace.Span, operation string, start time.Time, err error, fields ...interface{}) {
	defer span.End()

	allFields := []interface{}{
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	allFields = append(allFields, fields...)

	if err != nil {
		l.LogError(ctx, err, operation, allFields...)
		return
	}
	l.WithContext(ctx).Debugw("Operation completed successfully", allFields...)
	span.SetStatus(codes.Ok, "completed")
}

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)

	_, ok := tel.(*noopTelemetry)
	assert.True(t, ok)

	ctx, span := tel.StartScan(context.Background(), "example.com")
	assert.NotNil(t, ctx)
	span.End()
	tel.RecordScan(ctx, "cli", time.Second, true)
	tel.RecordCandidates(ctx, 10, 2)
	assert.NoError(t, tel.Close())
}

func TestNewRejectsUnknownExporter(t *testing.T) {
	_, err := New(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		ServiceName:  "squatwatch",
		ExporterType: "zipkin",
		SampleRate:   1,
	}, "test")
	assert.Error(t, err)
}

func TestNewEnabled(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		ServiceName:  "squatwatch",
		ExporterType: "otlp",
		Endpoint:     "127.0.0.1:4318",
		SampleRate:   1,
	}, "test")
	require.NoError(t, err)

	ctx, span := tel.StartScan(context.Background(), "example.com")
	tel.RecordCandidates(ctx, 100, 3)
	tel.RecordScan(ctx, "api", 1500*time.Millisecond, true)
	span.End()

	// Nothing listens on the endpoint; shutdown may report the failed export.
	_ = tel.Close()
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerConfig(t *testing.T) {
	config := LoggerConfig{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{"stdout", "stderr"},
	}

	assert.Equal(t, "debug", config.Level)
	assert.Equal(t, "json", config.Format)
	assert.Contains(t, config.OutputPaths, "stdout")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Fetch.Attempts)
	assert.Equal(t, "style", cfg.Similarity.Mode)
	assert.True(t, cfg.Similarity.Enabled)
	assert.False(t, cfg.Enrichment.Whois)
	assert.Empty(t, cfg.Redis.Addr, "in-memory cache is the default")
	assert.NotEmpty(t, cfg.Probe.Resolvers)
	assert.NotEmpty(t, cfg.Probe.RecordResolvers)
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	d := DefaultConfig()
	assert.Equal(t, d.Probe.Timeout, cfg.Probe.Timeout)
	assert.Equal(t, d.Probe.Concurrency, cfg.Probe.Concurrency)
	assert.Equal(t, d.Probe.Resolvers, cfg.Probe.Resolvers)
	assert.Equal(t, d.Fetch.Attempts, cfg.Fetch.Attempts)
	assert.Equal(t, d.Fetch.MaxBodySize, cfg.Fetch.MaxBodySize)
	assert.Equal(t, d.Similarity.Mode, cfg.Similarity.Mode)
	assert.Equal(t, d.Delivery.Timeout, cfg.Delivery.Timeout)
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Probe: ProbeConfig{
			Resolvers:   []string{"127.0.0.1:5353"},
			Timeout:     500 * time.Millisecond,
			Concurrency: 4,
		},
		Fetch: FetchConfig{Attempts: 5},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"127.0.0.1:5353"}, cfg.Probe.Resolvers)
	assert.Equal(t, 500*time.Millisecond, cfg.Probe.Timeout)
	assert.Equal(t, 4, cfg.Probe.Concurrency)
	assert.Equal(t, 5, cfg.Fetch.Attempts)
}

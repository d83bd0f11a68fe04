package config

import (
	"time"
)

type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Security    SecurityConfig    `mapstructure:"security"`
	Server      ServerConfig      `mapstructure:"server"`
	Permutation PermutationConfig `mapstructure:"permutation"`
	Probe       ProbeConfig       `mapstructure:"probe"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Similarity  SimilarityConfig  `mapstructure:"similarity"`
	Enrichment  EnrichmentConfig  `mapstructure:"enrichment"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// RedisConfig configures the shared baseline cache. An empty Addr selects
// the in-memory cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	ExporterType string  `mapstructure:"exporter_type"`
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	APIKey    string          `mapstructure:"api_key"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	BurstSize         int `mapstructure:"burst_size"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ScanRetention is how long finished scans stay queryable.
	ScanRetention time.Duration `mapstructure:"scan_retention"`
}

type PermutationConfig struct {
	// Strategies restricts generation to the named strategies. Empty means all.
	Strategies []string `mapstructure:"strategies"`
}

// ProbeConfig drives both DNS phases. Resolvers answer the A-record phase,
// RecordResolvers the MX/NS enrichment phase.
type ProbeConfig struct {
	Resolvers         []string      `mapstructure:"resolvers"`
	RecordResolvers   []string      `mapstructure:"record_resolvers"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Attempts    int           `mapstructure:"attempts"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxBodySize int64         `mapstructure:"max_body_size"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type SimilarityConfig struct {
	Mode            string        `mapstructure:"mode"`
	Enabled         bool          `mapstructure:"enabled"`
	BaselineTimeout time.Duration `mapstructure:"baseline_timeout"`
	BaselineTTL     time.Duration `mapstructure:"baseline_ttl"`
}

type EnrichmentConfig struct {
	Whois            bool          `mapstructure:"whois"`
	WhoisTimeout     time.Duration `mapstructure:"whois_timeout"`
	WhoisConcurrency int           `mapstructure:"whois_concurrency"`
}

type DeliveryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// AllowPrivate permits callbacks to loopback and private addresses.
	AllowPrivate bool `mapstructure:"allow_private"`
}

// Validate applies the invariants the pipeline relies on. Zero values are
// replaced by defaults rather than rejected.
func (c *Config) Validate() error {
	d := DefaultConfig()

	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = d.Probe.Timeout
	}
	if c.Probe.Concurrency <= 0 {
		c.Probe.Concurrency = d.Probe.Concurrency
	}
	if len(c.Probe.Resolvers) == 0 {
		c.Probe.Resolvers = d.Probe.Resolvers
	}
	if len(c.Probe.RecordResolvers) == 0 {
		c.Probe.RecordResolvers = d.Probe.RecordResolvers
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = d.Fetch.Timeout
	}
	if c.Fetch.Attempts <= 0 {
		c.Fetch.Attempts = d.Fetch.Attempts
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = d.Fetch.Concurrency
	}
	if c.Fetch.MaxBodySize <= 0 {
		c.Fetch.MaxBodySize = d.Fetch.MaxBodySize
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = d.Fetch.UserAgent
	}
	if c.Similarity.Mode == "" {
		c.Similarity.Mode = d.Similarity.Mode
	}
	if c.Similarity.BaselineTimeout <= 0 {
		c.Similarity.BaselineTimeout = d.Similarity.BaselineTimeout
	}
	if c.Enrichment.WhoisTimeout <= 0 {
		c.Enrichment.WhoisTimeout = d.Enrichment.WhoisTimeout
	}
	if c.Enrichment.WhoisConcurrency <= 0 {
		c.Enrichment.WhoisConcurrency = d.Enrichment.WhoisConcurrency
	}
	if c.Delivery.Timeout <= 0 {
		c.Delivery.Timeout = d.Delivery.Timeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Server.ScanRetention <= 0 {
		c.Server.ScanRetention = d.Server.ScanRetention
	}
	return nil
}

// DefaultConfig mirrors the viper defaults registered in cmd/root.go.
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Redis: RedisConfig{
			Addr:         "",
			DB:           0,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "squatwatch",
			ExporterType: "otlp",
			Endpoint:     "localhost:4318",
			SampleRate:   1.0,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				BurstSize:         10,
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			EnableCORS:      false,
			ShutdownTimeout: 30 * time.Second,
			ScanRetention:   time.Hour,
		},
		Probe: ProbeConfig{
			Resolvers:       []string{"8.8.8.8:53", "1.1.1.1:53"},
			RecordResolvers: []string{"9.9.9.9:53", "8.8.4.4:53"},
			Timeout:         2 * time.Second,
			Concurrency:     100,
		},
		Fetch: FetchConfig{
			Timeout:     3 * time.Second,
			Attempts:    2,
			Concurrency: 50,
			MaxBodySize: 10 * 1024 * 1024,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Similarity: SimilarityConfig{
			Mode:            "style",
			Enabled:         true,
			BaselineTimeout: 10 * time.Second,
			BaselineTTL:     15 * time.Minute,
		},
		Enrichment: EnrichmentConfig{
			Whois:            false,
			WhoisTimeout:     15 * time.Second,
			WhoisConcurrency: 5,
		},
		Delivery: DeliveryConfig{
			Timeout: 30 * time.Second,
		},
	}
}

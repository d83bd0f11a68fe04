package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/telemetry"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	tel     telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "squatwatch",
	Short: "Find live look-alike domains of a site",
	Long: `squatwatch generates typosquatting and homoglyph variants of a domain,
resolves them, fetches the live ones and scores how closely each copies
the original site.

COMMANDS:
  squatwatch scan example.com      - Scan for live look-alikes and print a report
  squatwatch permute example.com   - Print candidate domains without touching the network
  squatwatch serve                 - Run the HTTP API
  squatwatch version               - Print the version

CONFIGURATION:
  Flags, SQUATWATCH_* environment variables and an optional YAML file
  (--config, or .squatwatch.yaml in $HOME or the working directory).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		logger.Version = Version
		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		tel, err = telemetry.New(cmd.Context(), cfg.Telemetry, Version)
		if err != nil {
			log.Warnw("Telemetry disabled", "error", err)
			tel = telemetry.NewNoop()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel != nil {
			if err := tel.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to flush telemetry: %v\n", err)
			}
		}
		if log != nil {
			// Sync errors on stdout/stderr are expected on Linux.
			if err := log.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
				fmt.Fprintf(os.Stderr, "Warning: failed to sync logger: %v\n", err)
			}
		}
	},
}

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.squatwatch.yaml)")

	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")
	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindEnv("logger.level", "SQUATWATCH_LOG_LEVEL")
	viper.BindEnv("logger.format", "SQUATWATCH_LOG_FORMAT")

	// Redis configuration
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the shared baseline cache (empty: in-memory)")
	rootCmd.PersistentFlags().String("redis-password", "", "Redis password")
	rootCmd.PersistentFlags().Int("redis-db", 0, "Redis database number")
	viper.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("redis.password", rootCmd.PersistentFlags().Lookup("redis-password"))
	viper.BindPFlag("redis.db", rootCmd.PersistentFlags().Lookup("redis-db"))
	viper.BindEnv("redis.addr", "SQUATWATCH_REDIS_ADDR", "REDIS_URL")
	viper.BindEnv("redis.password", "SQUATWATCH_REDIS_PASSWORD")

	// DNS probing
	rootCmd.PersistentFlags().StringSlice("resolvers", nil, "DNS servers for A lookups (host:port)")
	rootCmd.PersistentFlags().StringSlice("record-resolvers", nil, "DNS servers for MX/NS lookups (host:port)")
	rootCmd.PersistentFlags().Duration("dns-timeout", 0, "per-query DNS timeout")
	rootCmd.PersistentFlags().Int("concurrency", 0, "concurrent DNS lookups")
	rootCmd.PersistentFlags().Float64("dns-qps", 0, "DNS queries per second (0: unlimited)")
	viper.BindPFlag("probe.resolvers", rootCmd.PersistentFlags().Lookup("resolvers"))
	viper.BindPFlag("probe.record_resolvers", rootCmd.PersistentFlags().Lookup("record-resolvers"))
	viper.BindPFlag("probe.timeout", rootCmd.PersistentFlags().Lookup("dns-timeout"))
	viper.BindPFlag("probe.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("probe.requests_per_second", rootCmd.PersistentFlags().Lookup("dns-qps"))

	// Content fetching
	rootCmd.PersistentFlags().Duration("fetch-timeout", 0, "per-attempt HTTP timeout")
	rootCmd.PersistentFlags().Int("fetch-attempts", 0, "HTTP attempts per candidate")
	viper.BindPFlag("fetch.timeout", rootCmd.PersistentFlags().Lookup("fetch-timeout"))
	viper.BindPFlag("fetch.attempts", rootCmd.PersistentFlags().Lookup("fetch-attempts"))

	// Enrichment
	rootCmd.PersistentFlags().Bool("whois", false, "attach WHOIS registration data to live look-alikes")
	viper.BindPFlag("enrichment.whois", rootCmd.PersistentFlags().Lookup("whois"))

	// Secrets (environment only, never flags)
	viper.BindEnv("security.api_key", "SQUATWATCH_API_KEY")

	setDefaults(config.DefaultConfig())
}

// setDefaults registers every default so env-only keys unmarshal too.
func setDefaults(d *config.Config) {
	viper.SetDefault("logger.level", d.Logger.Level)
	viper.SetDefault("logger.format", d.Logger.Format)
	viper.SetDefault("logger.output_paths", d.Logger.OutputPaths)

	viper.SetDefault("redis.max_retries", d.Redis.MaxRetries)
	viper.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	viper.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	viper.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)

	viper.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	viper.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	viper.SetDefault("telemetry.exporter_type", d.Telemetry.ExporterType)
	viper.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	viper.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	viper.SetDefault("security.rate_limit.requests_per_second", d.Security.RateLimit.RequestsPerSecond)
	viper.SetDefault("security.rate_limit.burst_size", d.Security.RateLimit.BurstSize)

	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.enable_cors", d.Server.EnableCORS)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.scan_retention", d.Server.ScanRetention)

	viper.SetDefault("probe.resolvers", d.Probe.Resolvers)
	viper.SetDefault("probe.record_resolvers", d.Probe.RecordResolvers)
	viper.SetDefault("probe.timeout", d.Probe.Timeout)
	viper.SetDefault("probe.concurrency", d.Probe.Concurrency)

	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.attempts", d.Fetch.Attempts)
	viper.SetDefault("fetch.concurrency", d.Fetch.Concurrency)
	viper.SetDefault("fetch.max_body_size", d.Fetch.MaxBodySize)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)

	viper.SetDefault("similarity.mode", d.Similarity.Mode)
	viper.SetDefault("similarity.enabled", d.Similarity.Enabled)
	viper.SetDefault("similarity.baseline_timeout", d.Similarity.BaselineTimeout)
	viper.SetDefault("similarity.baseline_ttl", d.Similarity.BaselineTTL)

	viper.SetDefault("enrichment.whois_timeout", d.Enrichment.WhoisTimeout)
	viper.SetDefault("enrichment.whois_concurrency", d.Enrichment.WhoisConcurrency)

	viper.SetDefault("delivery.timeout", d.Delivery.Timeout)
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".squatwatch")
	}

	viper.SetEnvPrefix("SQUATWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg.Validate()
}

func GetConfig() *config.Config {
	return cfg
}

func GetLogger() *logger.Logger {
	return log
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/cache"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/config"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/logger"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/scanner"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/notify"
)

var scanCmd = &cobra.Command{
	Use:   "scan <domain>",
	Short: "Scan a domain for live look-alikes",
	Long: `Generate look-alike candidates for a domain, keep the ones that resolve,
fetch their pages and score them against the original site.

Examples:
  squatwatch scan example.com
  squatwatch scan example.com --similarity structural --output json
  squatwatch scan example.com --similarity-check=false --callback https://hooks.example.net/squat`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("similarity", "", "similarity mode: style, structural or similarity (both)")
	scanCmd.Flags().Bool("similarity-check", true, "score live candidates against the original site")
	scanCmd.Flags().StringP("output", "o", notify.FormatTable, "output format: table, json or yaml")
	scanCmd.Flags().String("callback", "", "also POST the report to this URL")
	scanCmd.Flags().StringSlice("strategies", nil, "restrict generation to these strategies (see 'permute --list')")
	viper.BindPFlag("similarity.mode", scanCmd.Flags().Lookup("similarity"))
	viper.BindPFlag("permutation.strategies", scanCmd.Flags().Lookup("strategies"))
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	similarityCheck, _ := cmd.Flags().GetBool("similarity-check")
	output, _ := cmd.Flags().GetString("output")
	callback, _ := cmd.Flags().GetString("callback")

	writer, err := notify.NewWriter(cmd.OutOrStdout(), output)
	if err != nil {
		return err
	}
	var notifier notify.Notifier = writer
	if callback != "" {
		client := httpclient.NewCallbackClient(cfg.Delivery.Timeout, !cfg.Delivery.AllowPrivate)
		notifier = notify.Multi{writer, notify.NewWebhook(callback, client)}
	}

	s, closeScanner, err := newScanner(ctx, cfg, log, tel)
	if err != nil {
		return err
	}
	defer closeScanner()

	if output == notify.FormatTable {
		printScanHeader(cmd.ErrOrStderr(), args[0], cfg.Similarity.Mode, similarityCheck)
	}

	records, err := s.RunAndDeliver(ctx, scanner.Request{
		Domain:          args[0],
		Mode:            cfg.Similarity.Mode,
		SimilarityCheck: similarityCheck,
		Source:          "cli",
	}, notifier)
	if err != nil {
		return err
	}

	if output == notify.FormatTable {
		printScanSummary(cmd.ErrOrStderr(), records)
	}
	return nil
}

// newScanner wires the scanner with the configured cache, telemetry and
// logger. The returned func releases the cache.
func newScanner(ctx context.Context, cfg *config.Config, log *logger.Logger, tel telemetry.Telemetry) (*scanner.Scanner, func(), error) {
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	c, err := cache.New(cfg.Redis)
	if err != nil {
		log.Warnw("Redis cache unavailable, using in-memory cache", "addr", cfg.Redis.Addr, "error", err)
		c = cache.NewMemory()
	}

	s, err := scanner.New(cfg, log,
		scanner.WithCache(c),
		scanner.WithTelemetry(tel),
	)
	if err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	log.WithContext(ctx).Debugw("Scanner ready",
		"strategies", s.Engine().Strategies(),
		"resolvers", cfg.Probe.Resolvers,
		"record_resolvers", cfg.Probe.RecordResolvers,
		"redis", cfg.Redis.Addr != "",
	)

	return s, func() { _ = c.Close() }, nil
}

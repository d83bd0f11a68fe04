package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/api"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/squatwatch/internal/jobs"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the squatwatch HTTP API server",
	Long: `Start the HTTP API server.

Endpoints:
  POST   /scan/                 start a scan, report to callback_url
  POST   /api/v1/scans          same, ?wait=true returns the records inline
  GET    /api/v1/scans/:id      scan status
  DELETE /api/v1/scans/:id      cancel a scan
  GET    /health

Example:
  squatwatch serve --port 8080
  squatwatch serve --config config.yaml --tls-cert cert.pem --tls-key key.pem
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	tlsCert string
	tlsKey  string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("cors", false, "Enable CORS")
	serveCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate (optional)")
	serveCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS private key (optional)")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.enable_cors", serveCmd.Flags().Lookup("cors"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if tlsCert != "" || tlsKey != "" {
		if tlsCert == "" || tlsKey == "" {
			return fmt.Errorf("both --tls-cert and --tls-key must be provided for TLS")
		}
		if _, err := os.Stat(tlsCert); err != nil {
			return fmt.Errorf("TLS cert file not found or not readable: %w", err)
		}
		if _, err := os.Stat(tlsKey); err != nil {
			return fmt.Errorf("TLS key file not found or not readable: %w", err)
		}
	}

	serverLog := log.WithComponent("api-server")

	// Background scans outlive requests but not the server.
	scanCtx, cancelScans := context.WithCancel(context.Background())
	defer cancelScans()

	s, closeScanner, err := newScanner(scanCtx, cfg, log, tel)
	if err != nil {
		return err
	}
	defer closeScanner()

	tracker := jobs.NewTracker(cfg.Server.ScanRetention)
	callback := httpclient.NewCallbackClient(cfg.Delivery.Timeout, !cfg.Delivery.AllowPrivate)
	apiServer := api.NewServer(scanCtx, s, tracker, callback, log, Version)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Router(*cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// ?wait=true holds the response for a whole scan.
		WriteTimeout:   10 * time.Minute,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	handler := shutdown.NewHandler(log)
	handler.RegisterShutdownFunc(func(ctx context.Context) error {
		apiServer.Wait()
		return nil
	})
	handler.RegisterShutdownFunc(func(ctx context.Context) error {
		n := tracker.CancelAll()
		cancelScans()
		serverLog.Infow("Cancelled in-flight scans", "count", n)
		return nil
	})
	handler.RegisterShutdownFunc(func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	serverLog.Infow("Starting squatwatch API server",
		"address", addr,
		"cors_enabled", cfg.Server.EnableCORS,
		"tls_enabled", tlsCert != "",
		"auth_enabled", cfg.Security.APIKey != "",
		"config_file", viper.ConfigFileUsed(),
	)

	waitCtx, stopWaiting := context.WithCancel(cmd.Context())
	defer stopWaiting()

	serverErr := make(chan error, 1)
	go func() {
		var err error
		if tlsCert != "" {
			err = server.ListenAndServeTLS(tlsCert, tlsKey)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			stopWaiting()
		}
	}()

	if err := handler.WaitForShutdown(waitCtx, cfg.Server.ShutdownTimeout); err != nil {
		serverLog.Errorw("Failed to shutdown gracefully", "error", err)
		return err
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	default:
	}
	serverLog.Infow("Server shutdown complete")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avoronkov/pdnaudit/internal/api"
	"github.com/avoronkov/pdnaudit/internal/storage/jsonstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run pdnaudit as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		apiKey, _ := cmd.Flags().GetString("api-key")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		jobTimeout, _ := cmd.Flags().GetDuration("job-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		// Secrets belong in the config file, not on argv.
		if apiKey == "" {
			apiKey = viper.GetString("server.api_key")
		}
		if flag := cmd.Flags().Lookup("addr"); flag != nil && !flag.Changed && viper.IsSet("server.addr") {
			addr = viper.GetString("server.addr")
		}

		defer func() { _ = zapLogger.Sync() }()

		auditor, cleanup, err := buildAuditor(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		reportsDir, err := getReportsDir()
		if err != nil {
			return err
		}
		store, err := jsonstore.NewAuditStore(reportsDir)
		if err != nil {
			return err
		}

		server := api.NewServer(api.Config{
			Auditor:     auditor,
			Reports:     store,
			Registry:    auditor.Registry,
			APIKey:      apiKey,
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
			JobTimeout:  jobTimeout,
			Logger:      zapLogger,
		})

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		// Start server in a goroutine
		go func() {
			fmt.Printf("%s API server listening on %s (reports dir: %s)\n", colorInfo("→"), addr, reportsDir)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Block until we receive a signal or an error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("api-key", "", "Optional shared secret required in X-API-Key")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().Duration("job-timeout", 0, "Per-job audit timeout (default engine deadline + margin)")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().StringVar(&cliConfig.Audit.Renderer, "renderer", cliConfig.Audit.Renderer, "page renderer: chrome (headless browser) or http (plain GET)")
	serveCmd.Flags().StringVar(&cliConfig.Audit.Registry.DSN, "registry-dsn", cliConfig.Audit.Registry.DSN, "Postgres DSN for the operator register cache")
	serveCmd.Flags().BoolVar(&cliConfig.Audit.Registry.Live, "live-registry", cliConfig.Audit.Registry.Live, "consult the public operator register portal on cache misses")
}

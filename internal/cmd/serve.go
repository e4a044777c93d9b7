package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/issuescout/issuescout/internal/core/search"
	"github.com/issuescout/issuescout/internal/observability"
	"github.com/issuescout/issuescout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts an HTTP server exposing the fetch operations for local
frontends and pollers. The server decides nothing about cadence; it
answers fetches and reports the current backoff deadline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		observability.InitServerLogger(cfg.Logging.Level)
		logger := observability.ServerLogger
		defer logger.Sync() // nolint:errcheck // stderr sync is best-effort

		service := search.New(search.Options{
			APIBaseURL:      cfg.GitHub.APIBaseURL,
			GraphQLEndpoint: cfg.GitHub.GraphQLEndpoint,
			Spacing:         cfg.Throttle.Spacing,
			CacheTTL:        cfg.Cache.TTL,
			HTTPTimeout:     cfg.GitHub.HTTPTimeout,
			Logger:          logger,
		})

		server.SetVersion(versionInfo.Version)
		srv := server.New(cfg.Server, service, cfg.GitHub.Token, logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

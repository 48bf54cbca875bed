package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje/internal/cli"
	httpAdapter "github.com/aretw0/conserje/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve [catalog]",
	Short: "Start the HTTP turn API",
	Long: `Starts the concierge as an HTTP server exposing the turn, follow-up, menu and
session endpoints described at /openapi.yaml, plus /metrics and SSE streams.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdown := cli.WatchShutdown(context.Background())
		defer shutdown.Stop()

		stack, err := openStack(shutdown, cmd, args)
		if err != nil {
			return err
		}
		defer stack.Close()
		cfg := stack.Config

		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("watch") {
			cfg.Catalog.Watch, _ = cmd.Flags().GetBool("watch")
		}
		if cmd.Flags().Changed("validate-requests") {
			cfg.Server.RequestValidation, _ = cmd.Flags().GetBool("validate-requests")
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithSessions(stack.Sessions),
			httpAdapter.WithLogger(stack.Logger),
		}
		if cfg.Server.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(stack.Registry))
		}
		if cfg.Server.RequestValidation {
			opts = append(opts, httpAdapter.WithRequestValidation())
		}
		server := httpAdapter.NewServer(stack.Engine, opts...)

		if cfg.Catalog.Watch {
			cli.WatchCatalog(shutdown, stack.Engine, stack.Logger, server.NotifyReload)
		}

		srv := &http.Server{
			Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
			Handler:      server.Handler(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			stack.Logger.Info("conserje server listening", "addr", srv.Addr, "catalog", cfg.Catalog.Path,
				"version", stack.Engine.Catalog().Version)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-shutdown.Done():
			stack.Logger.Info("shutting down", "signal", shutdown.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				stack.Logger.Warn("graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
				return srv.Close()
			}
			stack.Logger.Info("conserje server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the catalog when its files change (Loam directories only)")
	serveCmd.Flags().Bool("validate-requests", false, "Validate request bodies and parameters against the OpenAPI document")
}

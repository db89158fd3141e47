package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/mockapi"
)

func mockCmd() *cobra.Command {
	var (
		address string
		opts    mockapi.Options
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a healthy stand-in for the BritEdge API and website",
		Long: `Serve a local BritEdge website at / and its API under /api.
Point target.website_url at the server root and target.api_base_url at /api.
Served over plain HTTP, so the HTTPS check fails unless a TLS proxy fronts it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(config.LogConfig{Level: "debug"}, cmd.ErrOrStderr())
			return runMock(address, opts, logger)
		},
	}
	cmd.Flags().StringVar(&address, "address", ":8081", "listen address")
	cmd.Flags().DurationVar(&opts.Latency, "latency", 0, "delay added to every API response")
	cmd.Flags().StringSliceVar(&opts.Malformed, "malformed", nil, "API endpoints that return truncated JSON")
	cmd.Flags().StringVar(&opts.AllowOrigin, "allow-origin", "*", "Access-Control-Allow-Origin sent by the API")
	return cmd
}

func runMock(address string, opts mockapi.Options, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           mockapi.Handler(opts, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("mock listening", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("mock server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

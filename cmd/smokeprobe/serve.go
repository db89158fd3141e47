package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/smokeprobe/internal/alert"
	"github.com/hazz-dev/smokeprobe/internal/checker"
	"github.com/hazz-dev/smokeprobe/internal/dashboard"
	"github.com/hazz-dev/smokeprobe/internal/harness"
	"github.com/hazz-dev/smokeprobe/internal/scheduler"
	"github.com/hazz-dev/smokeprobe/internal/server"
	"github.com/hazz-dev/smokeprobe/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the suite on a schedule and serve the archive API and dashboard",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load config
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger.Info("config loaded", "api", cfg.Target.APIBaseURL, "website", cfg.Target.WebsiteURL)

	// 2. Open SQLite
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// 3. Build alerter (if configured)
	var alerter *alert.Alerter
	if cfg.Alerts.Webhook.URL != "" {
		alerter = alert.New(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Cooldown.Duration, logger)
	}

	// 4. Build scheduler. Scheduled runs print nothing; results go to the archive.
	fetcher := checker.NewHTTPFetcher(checker.NewClient(cfg.Target.Timeout.Duration), logger)
	run := func(ctx context.Context) harness.Report {
		runner := harness.NewRunner(io.Discard)
		runner.RunAll(ctx, checker.Suite(cfg, fetcher))
		return runner.Report()
	}
	sched := scheduler.New(cfg.Schedule, run, db, logger)
	if alerter != nil {
		sched.SetOnResult(alerter.Notify)
	}

	// 5. Build API server and mount routes on a single mux
	apiServer := server.New(db, logger)
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 7. Start scheduler
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	logger.Info("scheduler started", "interval", cfg.Schedule.Interval.Duration, "cron", cfg.Schedule.Cron)

	// 8. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 9. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		sched.Wait()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 10. Graceful shutdown
	sched.Wait()
	if alerter != nil {
		alerter.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

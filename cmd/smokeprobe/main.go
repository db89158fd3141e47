package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/version"
)

var (
	cfgFile string
	envFile string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "smokeprobe",
		Short:        "Smoke tests for the BritEdge API and website",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "smokeprobe.yml", "config file path")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config (ignored if missing)")

	root.AddCommand(versionCmd())
	root.AddCommand(runCmd())
	root.AddCommand(lastCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mockCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smokeprobe %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// loadConfig loads the dotenv file, then the YAML config, and builds the logger.
func loadConfig(errOut io.Writer) (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, newLogger(cfg.Log, errOut), nil
}

func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

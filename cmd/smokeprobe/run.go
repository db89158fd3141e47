package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hazz-dev/smokeprobe/internal/checker"
	"github.com/hazz-dev/smokeprobe/internal/config"
	"github.com/hazz-dev/smokeprobe/internal/harness"
	"github.com/hazz-dev/smokeprobe/internal/storage"
)

var _ pflag.Value = (*harness.RegexList)(nil)

type runStore interface {
	InsertRun(ctx context.Context, rep harness.Report) (int64, error)
}

func runCmd() *cobra.Command {
	var (
		filters harness.RegexFilters
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the smoke suite once and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var store runStore
			if save {
				db, err := storage.Open(cfg.Storage.Path)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				store = db
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return executeRun(ctx, cmd.OutOrStdout(), cfg, filters, store, logger)
		},
	}
	cmd.Flags().Var(&filters.MustMatch, "run", "only run checks whose name matches this regex (repeatable)")
	cmd.Flags().Var(&filters.MustNotMatch, "skip", "skip checks whose name matches this regex (repeatable)")
	cmd.Flags().BoolVar(&save, "save", false, "archive the report in the configured database")
	return cmd
}

// executeRun runs the suite once. It returns an error when any check failed
// so the process exits non-zero. store may be nil.
func executeRun(ctx context.Context, out io.Writer, cfg *config.Config, filters harness.RegexFilters, store runStore, logger *slog.Logger) error {
	fetcher := checker.NewHTTPFetcher(checker.NewClient(cfg.Target.Timeout.Duration), logger)

	var opts []harness.Option
	if filters.IsDefined() {
		opts = append(opts, harness.WithFilter(filters.AsFilter))
	}
	runner := harness.NewRunner(out, opts...)

	suite := checker.Suite(cfg, fetcher)
	summary := runner.RunAll(ctx, suite)

	if store != nil && ctx.Err() != nil {
		fmt.Fprintln(out, "Run interrupted; partial report not archived")
	} else if store != nil {
		id, err := store.InsertRun(ctx, runner.Report())
		if err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		fmt.Fprintf(out, "Archived as run #%d\n", id)
	}

	if summary.Failed > 0 {
		fmt.Fprintf(out, "\nTo re-run the failed checks:\n  %s\n", rerunCommand(cfgFile, failedChecks(suite, summary.Failures)))
		return fmt.Errorf("%d of %d checks failed", summary.Failed, summary.Total)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	return nil
}

// failedChecks maps failed results back to the names of the checks that
// recorded them, in run order and without duplicates. A check may record
// several results named "<check>: <detail>".
func failedChecks(suite []harness.Group, failures []harness.Result) []string {
	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		failed[f.Name] = true
	}

	var names []string
	for _, g := range suite {
		for _, c := range g.Checks {
			name := c.Name()
			for f := range failed {
				if f == name || strings.HasPrefix(f, name+": ") {
					names = append(names, name)
					break
				}
			}
		}
	}
	return names
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

func rerunCommand(configPath string, checks []string) string {
	var cmd commandBuilder
	cmd.add("smokeprobe", "run", "--config", configPath)
	for _, name := range checks {
		cmd.add("--run", "^"+regexp.QuoteMeta(name)+"$")
	}
	return cmd.String()
}

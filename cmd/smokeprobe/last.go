package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/smokeprobe/internal/storage"
)

type lastStore interface {
	LatestRun(ctx context.Context) (*storage.Run, error)
}

func lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the latest archived run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			db, err := storage.Open(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			return executeLast(cmd, db)
		},
	}
}

func executeLast(cmd *cobra.Command, db lastStore) error {
	out := cmd.OutOrStdout()
	run, err := db.LatestRun(context.Background())
	if err != nil {
		return fmt.Errorf("querying latest run: %w", err)
	}

	if run == nil {
		fmt.Fprintln(out, "No archived runs. Run 'smokeprobe serve' or 'smokeprobe run --save' first.")
		return nil
	}

	outcome := "PASS"
	if !run.OK() {
		outcome = "FAIL"
	}
	fmt.Fprintf(out, "Run #%d  %s  %d/%d passed (%.1f%%)  finished %s\n\n",
		run.ID,
		outcome,
		run.Passed,
		run.Total,
		run.SuccessRate,
		run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
	)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTATUS\tCHECK\tMESSAGE")
	for _, r := range run.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			r.Seq+1,
			r.Status,
			r.Name,
			r.Message,
		)
	}
	w.Flush()
	return nil
}

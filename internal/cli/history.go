package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pvregress/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// HistoryReport is the JSON payload of the history command.
type HistoryReport struct {
	Scenario string      `json:"scenario"`
	Runs     []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [scenario]",
		Short: "List recorded runs from the ledger",
		Long: `List runs recorded in the ledger, newest first.

The ledger location comes from the "ledger" key of the config file given
with --config. Without a scenario argument runs of every scenario are listed.

Examples:
  pvregress history a01 --config pvregress.yaml
  pvregress history --config pvregress.yaml --limit 20 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := ""
			if len(args) == 1 {
				scenario = args[0]
			}
			return runHistory(opts, scenario, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, scenario string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.LedgerPath() == "" {
		_ = formatter.Error(CodeNoLedger, "no ledger configured", nil)
		return NewExitError(ExitCommandError, "no ledger configured: set \"ledger\" in the config file")
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := ledger.History(ctx, scenario, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	if formatter.IsJSON() {
		return formatter.Report(HistoryReport{Scenario: scenario, Runs: runs}, nil)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s  %s  %-6s  %s\n",
			mark, r.StartedAt.Format(time.RFC3339), r.Scenario, r.Mode, r.Duration.Round(time.Millisecond))
		if r.BaselineID != "" {
			fmt.Fprintf(w, "  baseline %s\n", r.BaselineID)
		}
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}

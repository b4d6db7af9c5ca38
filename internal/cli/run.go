package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pvregress/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Mode   string // overrides the config mode when set
	Filter string // scenario name glob
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Mode      string            `json:"mode"`
	Scenarios []*harness.Result `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
	Skipped   int               `json:"skipped,omitempty"`
	Stopped   string            `json:"stopped,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run regression scenarios",
		Long: `Run every scenario file in a directory.

In record mode each scenario writes new baselines. In test mode each
scenario is compared against its newest baselines and every mismatch is
reported. In pytest mode the first mismatch fails the scenario and stops
the batch.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  pvregress run ./scenarios
  pvregress run ./scenarios --mode record
  pvregress run ./scenarios --config pvregress.yaml --filter "a*"
  pvregress run ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "run mode (record|test|pytest); overrides the config")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")

	return cmd
}

func runScenarios(opts *RunOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Mode != "" {
		cfg.SetMode(opts.Mode)
	}
	logger := opts.newLogger(cfg, cmd.ErrOrStderr())

	scenarios, err := harness.LoadScenarios(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	selected, err := harness.Select(scenarios, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	report := RunReport{
		Mode:      cfg.Mode().String(),
		Scenarios: []*harness.Result{},
	}
	if len(selected) == 0 {
		if formatter.IsJSON() {
			return formatter.Report(report, nil)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	hopts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithOutput(formatter.ReportWriter()),
	}
	if ledger != nil {
		hopts = append(hopts, harness.WithLedger(ledger))
	}
	h := harness.New(cfg, hopts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter.VerboseLog("running %d scenario(s) in %s mode", len(selected), cfg.Mode())
	summary, runErr := h.RunAll(ctx, selected)

	report.Scenarios = summary.Results
	report.Passed = summary.Passed
	report.Failed = summary.Failed
	report.Total = len(summary.Results)
	report.Skipped = len(selected) - len(summary.Results)
	if runErr != nil {
		report.Stopped = runErr.Error()
	}

	if formatter.IsJSON() {
		return outputRunJSON(formatter, report)
	}
	return outputRunText(formatter, report)
}

func outputRunJSON(formatter *OutputFormatter, report RunReport) error {
	failed := report.Failed > 0 || report.Stopped != ""

	var cliErr *CLIError
	if failed {
		cliErr = &CLIError{
			Code:    CodeRunFailed,
			Message: runFailureMessage(report),
		}
	}
	if err := formatter.Report(report, cliErr); err != nil {
		return err
	}
	if failed {
		return NewExitError(ExitFailure, runFailureMessage(report))
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, report RunReport) error {
	w := formatter.Writer

	for _, res := range report.Scenarios {
		if res.Pass {
			fmt.Fprintf(w, "✓ %s\n", res.Scenario)
		} else {
			fmt.Fprintf(w, "✗ %s\n", res.Scenario)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}

	if report.Stopped != "" {
		fmt.Fprintf(w, "\nStopped: %s\n", report.Stopped)
	}
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
	if report.Skipped > 0 {
		fmt.Fprintf(w, "%d scenario(s) not run\n", report.Skipped)
	}

	if report.Failed > 0 || report.Stopped != "" {
		return NewExitError(ExitFailure, runFailureMessage(report))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}

func runFailureMessage(report RunReport) string {
	if report.Failed == 0 {
		return fmt.Sprintf("run stopped: %s", report.Stopped)
	}
	return fmt.Sprintf("%d scenario(s) failed", report.Failed)
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pvregress/internal/compare"
	"github.com/roach88/pvregress/internal/logging"
	"github.com/roach88/pvregress/internal/snapshot"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	FailFast bool
}

// CompareReport is the JSON payload of the compare command.
type CompareReport struct {
	Baseline  string          `json:"baseline"`
	Candidate string          `json:"candidate"`
	Drift     []string        `json:"drift,omitempty"`
	Report    *compare.Report `json:"report"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <baseline.json> <candidate.json>",
		Short: "Compare two field snapshots",
		Long: `Compare the results of two field snapshot files within tolerance.

Tolerances are taken from the candidate's field records. Solver environment
differences are reported as warnings and never fail the comparison.

Examples:
  pvregress compare results/a01_result_2024-03-01_093000.json results/a01_result_2024-03-02_101500.json
  pvregress compare old.json new.json --fail-fast`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first mismatch")

	return cmd
}

func runCompare(opts *CompareOptions, baselinePath, candidatePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	baseline, err := readSnapshot(baselinePath)
	if err != nil {
		return err
	}
	candidate, err := readSnapshot(candidatePath)
	if err != nil {
		return err
	}

	out := CompareReport{Baseline: baselinePath, Candidate: candidatePath}
	w := formatter.ReportWriter()
	for _, d := range snapshot.EnvDrift(baseline.SolverEnv, candidate.SolverEnv) {
		out.Drift = append(out.Drift, d.String())
		fmt.Fprintln(w, d.String())
	}

	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	report, err := compare.Compare(baseline.Results, candidate.Results, compare.Options{
		FailFast: opts.FailFast,
		Out:      w,
		Logger:   logging.New(level, "text", formatter.GetErrWriter()),
	})
	if err != nil && !errors.Is(err, compare.ErrMismatch) {
		return WrapExitError(ExitCommandError, "comparison failed", err)
	}
	out.Report = report

	if formatter.IsJSON() {
		var cliErr *CLIError
		if !report.Pass {
			cliErr = &CLIError{
				Code:    CodeCompareFailed,
				Message: fmt.Sprintf("%d mismatch(es)", len(report.Mismatches)),
			}
		}
		if err := formatter.Report(out, cliErr); err != nil {
			return err
		}
	} else if report.Pass {
		fmt.Fprintf(formatter.Writer, "✓ all pass! (%d field(s) compared)\n", report.Compared)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %d mismatch(es)\n", len(report.Mismatches))
	}

	if !report.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("snapshots differ: %d mismatch(es)", len(report.Mismatches)))
	}
	return nil
}

// readSnapshot reads and schema-validates a snapshot file.
func readSnapshot(path string) (snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Snapshot{}, WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	s, err := snapshot.Decode(data)
	if err != nil {
		return snapshot.Snapshot{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid snapshot %s", path), err)
	}
	return s, nil
}

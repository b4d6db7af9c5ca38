package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pvregress/internal/config"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Mode   string                   `json:"mode,omitempty"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a harness config file",
		Long: `Validate a harness config file against the config schema.

Every schema violation is reported with its line and column. A document
that passes the schema is then decoded strictly, so unknown keys are
rejected as well.

Examples:
  pvregress validate pvregress.yaml
  pvregress validate pvregress.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return outputValidateError(formatter, config.ErrRead, fmt.Sprintf("config file not found: %s", path), nil)
		}
		return outputValidateError(formatter, config.ErrRead, err.Error(), nil)
	}

	formatter.VerboseLog("validating %s", path)
	if errs := config.Validate(data, path); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	cfg, err := config.Parse(data, path)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			return outputValidationErrors(formatter, []config.ValidationError{*ve})
		}
		return WrapExitError(ExitCommandError, "failed to decode config", err)
	}

	return outputValidateSuccess(formatter, cfg)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, cfg *config.Config) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Mode: cfg.Mode().String()})
	}

	fmt.Fprintf(formatter.Writer, "✓ Config valid (mode %s)\n", cfg.Mode())
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []config.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}
		if err := formatter.Report(result, &CLIError{
			Code:    CodeInvalidConfig,
			Message: errs[0].Message,
		}); err != nil {
			return err
		}
		return failure
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return failure
}

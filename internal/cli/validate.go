package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/entcache/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Entities []string                   `json:"entities,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <entity-dir>",
		Short: "Validate entity declarations",
		Long: `Validate the CUE entity declarations in a directory.

Checks entity names, key and sort fields and field types, and reports
every problem found instead of stopping at the first.

Exit codes:
  0 - All entities valid
  1 - One or more validation errors
  2 - Command error (missing directory, CUE syntax errors)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadEntities(dir)
	if err != nil {
		loadErr := asLoadError(err)
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	errs := compiler.Validate(loaded.Specs)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	names := loaded.Metadata.Names()
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Entities: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d entit%s valid\n", len(names), plural(len(names), "y", "ies"))
	for _, name := range names {
		formatter.VerboseLog("  %s (key %s)", name, loaded.Metadata[name].KeyField())
	}
	return nil
}

// outputValidationErrors reports errs and returns an ExitFailure error.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rtcdate/internal/harness"
)

// Validation error codes.
const (
	ErrCodeLoad   = "E_LOAD"   // file unreadable or not a scenario format
	ErrCodeSchema = "E_SCHEMA" // document fails the scenario schema
	ErrCodeRules  = "E_RULES"  // document is well formed but semantically invalid
)

// ValidationError is one rejected scenario file.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files against the scenario schema and calendar rules
without building a device. Directories are searched the same way the test
command searches them.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return outputValidateError(formatter, ErrCodeLoad, fmt.Sprintf("path not found: %s", p))
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := findScenarioFiles(p, "")
		if err != nil {
			return outputValidateError(formatter, ErrCodeLoad, err.Error())
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeLoad, "no scenario files found")
	}

	var validationErrors []ValidationError
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		if _, err := harness.LoadScenario(file); err != nil {
			validationErrors = append(validationErrors, classify(file, err))
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(files), validationErrors)
	}
	return outputValidateSuccess(formatter, len(files))
}

// classify turns a load failure into a ValidationError.
func classify(file string, err error) ValidationError {
	var se *harness.SchemaError
	if errors.As(err, &se) {
		ve := ValidationError{File: file, Code: ErrCodeSchema, Message: se.Message}
		if se.Pos.IsValid() && se.Pos.Filename() == file {
			ve.Line = se.Pos.Line()
		}
		return ve
	}
	if errors.Is(err, os.ErrNotExist) {
		return ValidationError{File: file, Code: ErrCodeLoad, Message: err.Error()}
	}
	return ValidationError{File: file, Code: ErrCodeRules, Message: err.Error()}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d scenario file(s) valid\n", files)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every rejected file.
func outputValidationErrors(formatter *OutputFormatter, files int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Files:  files,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

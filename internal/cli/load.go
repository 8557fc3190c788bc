package cli

import (
	"errors"
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/frontend"
)

// loadDocument loads dir and validates the merged document. Failures are
// written to f; the returned error is the ExitError to hand back to cobra.
//
// Load errors are command errors (exit 2); validation errors are failures
// of the input (exit 1).
func loadDocument(f *OutputFormatter, dir string) (*frontend.LoadResult, error) {
	loaded, err := frontend.Load(dir)
	if err != nil {
		var loadErr *frontend.LoadError
		if errors.As(err, &loadErr) {
			details := map[string]any(nil)
			if loadErr.Pos.IsValid() {
				details = map[string]any{
					"file":   loadErr.Pos.Filename(),
					"line":   loadErr.Pos.Line(),
					"column": loadErr.Pos.Column(),
				}
			}
			return nil, f.Fail(ExitCommandError, loadErr.Code, loadErr.Message, details)
		}
		return nil, f.Fail(ExitCommandError, frontend.ErrCodeGeneric, err.Error(), nil)
	}

	f.VerboseLog("Found %d CUE file(s) and %d JSON file(s) in %s", len(loaded.CUEFiles), len(loaded.JSONFiles), dir)

	if errs := frontend.Validate(loaded.Document); len(errs) > 0 {
		return nil, outputValidationErrors(f, errs)
	}
	return loaded, nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(f *OutputFormatter, errs []frontend.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if f.JSON() {
		if err := f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
				Details: errs[0].Field,
			},
			Data: errs, // Include all errors in data
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(f.Writer, "%s Validation failed\n\n", failMark())
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationSummary describes a valid document.
type ValidationSummary struct {
	Fingerprint string             `json:"fingerprint"`
	Records     int                `json:"records"`
	Enums       int                `json:"enums"`
	Interfaces  []InterfaceSummary `json:"interfaces"`
	Files       []string           `json:"files"`
}

// InterfaceSummary is one interface of a ValidationSummary.
type InterfaceSummary struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Methods int    `json:"methods"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <input-dir>",
		Short: "Validate API descriptions",
		Long: `Load every CUE and JSON description in a directory and check the
merged document: unique names, resolvable types, the discriminant space of
each interface.

Exit codes:
  0 - Document is valid
  1 - Validation errors
  2 - Command error (missing directory, CUE errors, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := loadDocument(formatter, dir)
	if err != nil {
		return err
	}

	doc := loaded.Document
	fp, err := doc.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeValidation, fmt.Sprintf("fingerprint: %v", err), nil)
	}

	summary := ValidationSummary{
		Fingerprint: fp,
		Records:     len(doc.Records),
		Enums:       len(doc.Enums),
		Interfaces:  make([]InterfaceSummary, len(doc.Interfaces)),
		Files:       append(append([]string{}, loaded.CUEFiles...), loaded.JSONFiles...),
	}
	for i, iface := range doc.Interfaces {
		summary.Interfaces[i] = InterfaceSummary{
			Name:    iface.Name,
			Role:    iface.Role.String(),
			Methods: len(iface.Methods),
		}
	}

	if formatter.JSON() {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "%s Document valid: %d record(s), %d enum(s), %d interface(s)\n",
		okMark(), summary.Records, summary.Enums, len(summary.Interfaces))
	for _, iface := range summary.Interfaces {
		fmt.Fprintf(formatter.Writer, "  %s (%s): %d method(s)\n", iface.Name, iface.Role, iface.Methods)
	}
	formatter.VerboseLog("Fingerprint: %s", summary.Fingerprint)
	return nil
}

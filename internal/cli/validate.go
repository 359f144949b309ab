package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zayitus/PLantAdvisor-V4/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// validateReport is the JSON payload for a successful validation.
type validateReport struct {
	File      string `json:"file"`
	RuleCount int    `json:"rule_count"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <rules.cue>",
		Short: "Compile and validate a rule file",
		Long: `Compile a CUE rule file and check every rule-model invariant:
required fields, known operators and action kinds, comparand presence,
weight and confidence ranges, unique ids.

Exit code 0 when the file is valid, 1 when it is not.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateRules(opts, args[0], cmd)
		},
	}

	return cmd
}

func validateRules(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, _, err := loadRules(path)
	if err != nil {
		var cerr *compiler.CompileError
		if errors.As(err, &cerr) {
			_ = out.Error(ErrCodeCompileFailed, cerr.Error(), nil)
			return NewExitError(ExitFailure, "rule file invalid")
		}
		return WrapExitError(ExitCommandError, "failed to read rules", err)
	}

	if opts.Format == "json" {
		return out.Success(validateReport{File: path, RuleCount: s.Len()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rule(s), all valid\n", path, s.Len())
	return nil
}

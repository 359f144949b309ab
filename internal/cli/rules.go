package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Rules  string
	Domain string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules of a knowledge base",
		Long: `List every rule with its priority, specificity, and state.

Defaults to the built-in Tierra del Fuego knowledge base; pass --rules
for a CUE rule file. Filter by domain with --domain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRules(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", "", "path to CUE rule file (default: built-in flora)")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "only rules in this domain")

	return cmd
}

func listRules(opts *RulesOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, origin, err := loadRules(opts.Rules)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	rules := s.ListRules()
	if opts.Domain != "" {
		filtered := rules[:0]
		for _, r := range rules {
			if r.Domain == opts.Domain {
				filtered = append(filtered, r)
			}
		}
		rules = filtered
	}

	if opts.Format == "json" {
		return out.Success(rules)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) from %s\n\n", len(rules), origin)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tSPEC\tACTIVE\tNAME")
	for _, r := range rules {
		fmt.Fprintf(w, "%s\t%g\t%d\t%t\t%s\n", r.ID, r.Priority, r.Specificity, r.Active, r.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if opts.Verbose {
		for _, r := range rules {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", formatRule(r))
		}
	}
	return nil
}

// formatRule renders one rule with its conditions and actions.
func formatRule(r ir.Rule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", r.ID, r.Name)
	for _, c := range r.Conditions {
		if c.Op.TestsPresence() {
			fmt.Fprintf(&b, "  if %s %s\n", c.Predicate, c.Op)
			continue
		}
		fmt.Fprintf(&b, "  if %s %s %s\n", c.Predicate, c.Op, c.Comparand)
	}
	for _, a := range r.Actions {
		fmt.Fprintf(&b, "  then %s %s = %s (%.0f%%)\n", a.Kind, a.Predicate, a.Value, a.Confidence*100)
	}
	return strings.TrimRight(b.String(), "\n")
}

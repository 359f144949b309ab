package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Zayitus/PLantAdvisor-V4/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded query sessions",
		Long: `List recorded sessions, newest first. Use the trace command with a
token from this list to see the full explanation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session store (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum sessions to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func listSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open session store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sessions, err := st.ListSessions(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		return out.Success(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tCREATED\tSTRATEGY\tCYCLES\tFIRED\tREASON")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Token, s.CreatedAt, s.Strategy, s.CyclesExecuted, s.RulesFired, s.TerminationReason)
	}
	return w.Flush()
}

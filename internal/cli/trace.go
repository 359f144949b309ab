package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/store"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <query-token>",
		Short: "Show the recorded trace of a past query",
		Long: `Reconstruct a recorded session: the final working memory, the
firing order, and the reason each rule won its cycle.

Example:
  plantadvisor trace 01925c8e-... --db ./sessions.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showTrace(opts *TraceOptions, token string, cmd *cobra.Command) error {
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
	sess, err := st.ReadSession(ctx, token)
	if errors.Is(err, store.ErrSessionNotFound) {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return NewExitError(ExitCommandError, "session not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	if opts.Format == "json" {
		return out.Success(sess)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatSession(sess))
	return nil
}

// formatSession renders a recorded session as human-readable text.
func formatSession(sess *store.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %s (%s strategy, %s)\n", sess.Token, sess.Strategy, sess.CreatedAt)
	fmt.Fprintf(&b, "  cycles: %d  rules fired: %d  facts derived: %d\n", sess.CyclesExecuted, sess.RulesFired, sess.FactsDerived)
	fmt.Fprintf(&b, "  terminated: %s (%dms)\n", sess.TerminationReason, sess.ElapsedMillis)

	b.WriteString("\nWorking memory:\n")
	for _, f := range sess.Facts {
		fmt.Fprintf(&b, "  %s [%s] %s = %s", f.ID, f.Kind, f.Predicate, ir.Display(f.Value))
		if f.OriginRule != "" {
			fmt.Fprintf(&b, " <- %s", f.OriginRule)
		}
		b.WriteByte('\n')
	}

	if len(sess.Firings) > 0 {
		b.WriteString("\nFirings:\n")
		for _, fr := range sess.Firings {
			fmt.Fprintf(&b, "  cycle %d: %s fired %s: %s\n", fr.Cycle, fr.ActivationID, fr.RuleID, fr.Reason)
		}
	}

	conclusions := 0
	for _, f := range sess.Facts {
		if f.Kind == wm.KindConclusion {
			conclusions++
		}
	}
	fmt.Fprintf(&b, "\n%d conclusion(s).\n", conclusions)
	return b.String()
}

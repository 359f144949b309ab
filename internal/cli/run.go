package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zayitus/PLantAdvisor-V4/internal/engine"
	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Rules     string
	Facts     string
	Strategy  string
	MaxCycles int
	Database  string

	// TokenGenerator overrides the query token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one inference query over a facts file",
		Long: `Run the Match/Resolve/Act cycle over the given initial facts.

Rules default to the built-in Tierra del Fuego knowledge base; pass
--rules to use a CUE rule file instead. With --db, the finished session
is recorded to SQLite for later inspection with the trace command.

Example:
  plantadvisor run --facts usuario.yaml
  plantadvisor run --facts usuario.yaml --rules flora.cue --strategy priority
  plantadvisor run --facts usuario.yaml --db ./sessions.db --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Rules, "rules", "", "path to CUE rule file (default: built-in flora)")
	cmd.Flags().StringVar(&opts.Facts, "facts", "", "path to YAML facts file (required)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "specificity", "conflict-resolution strategy (specificity|recency|complexity|priority|definition-order)")
	cmd.Flags().IntVar(&opts.MaxCycles, "max-cycles", engine.DefaultMaxCycles, "cycle-limit safety bound")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite session store (optional)")
	_ = cmd.MarkFlagRequired("facts")

	return cmd
}

func runQuery(opts *RunOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	strategy, err := engine.ParseStrategy(opts.Strategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid strategy", err)
	}

	ks, rulesOrigin, err := loadRules(opts.Rules)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	out.VerboseLog("rules loaded: %d from %s", ks.Len(), rulesOrigin)

	facts, err := LoadFacts(opts.Facts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load facts", err)
	}
	out.VerboseLog("facts loaded: %d from %s", len(facts), opts.Facts)

	engOpts := []engine.Option{
		engine.WithStrategy(strategy),
		engine.WithMaxCycles(opts.MaxCycles),
	}
	if opts.TokenGenerator != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}
	eng := engine.New(engOpts...)

	result := eng.RunQuery(ks, facts)

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open session store", err)
		}
		defer st.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := st.RecordSession(ctx, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
		out.VerboseLog("session %s recorded to %s", result.QueryToken, opts.Database)
	}

	if opts.Format == "json" {
		if err := out.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), formatResult(result, opts.Verbose))
	}

	if !result.Success {
		return NewExitError(ExitFailure, "query aborted: "+result.TerminationReason)
	}
	return nil
}

// configureLogging routes slog to stderr so text and JSON output on
// stdout stay clean.
func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// formatResult renders a result as human-readable text.
func formatResult(r *engine.Result, verbose bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Query %s (%s strategy)\n", r.QueryToken, r.Strategy)
	fmt.Fprintf(&b, "  cycles: %d  rules fired: %d  facts derived: %d\n", r.CyclesExecuted, r.RulesFired, r.FactsDerived)
	fmt.Fprintf(&b, "  terminated: %s (%dms)\n", r.TerminationReason, r.ElapsedMillis)

	if len(r.Conclusions) == 0 {
		b.WriteString("\nNo conclusions reached.\n")
	} else {
		b.WriteString("\nConclusions:\n")
		for _, c := range r.Conclusions {
			marker := ""
			if c.Recommendation {
				marker = " [recommendation]"
			}
			fmt.Fprintf(&b, "  %s = %s (%.0f%% via %s)%s\n",
				c.Predicate, ir.Display(c.Value), c.Confidence*100, c.OriginRule, marker)
			if c.Justification != "" {
				fmt.Fprintf(&b, "    %s\n", c.Justification)
			}
		}
	}

	if verbose && len(r.Trace.Decisions) > 0 {
		b.WriteString("\nFirings:\n")
		for _, d := range r.Trace.Decisions {
			fmt.Fprintf(&b, "  cycle %d: %s (%s)\n", d.Cycle, d.WinnerRule, d.Reason)
		}
	}

	return b.String()
}

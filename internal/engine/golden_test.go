package engine

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/testutil"
)

// renderTranscript flattens a result into a line-oriented transcript.
// Every field it prints is deterministic; wall-clock duration is the one
// field deliberately left out.
func renderTranscript(t *testing.T, r *Result) []byte {
	t.Helper()
	var b strings.Builder

	fmt.Fprintf(&b, "query: %s\n", r.QueryToken)
	fmt.Fprintf(&b, "strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "success: %t\n", r.Success)
	fmt.Fprintf(&b, "reason: %s\n", r.TerminationReason)
	fmt.Fprintf(&b, "cycles: %d\n", r.CyclesExecuted)
	fmt.Fprintf(&b, "rules_fired: %d\n", r.RulesFired)
	fmt.Fprintf(&b, "facts_derived: %d\n", r.FactsDerived)

	b.WriteString("\nfacts:\n")
	for _, f := range r.Trace.Facts {
		val, err := ir.MarshalCanonical(f.Value)
		require.NoError(t, err)
		fmt.Fprintf(&b, "  %s %s %s = %s", f.ID, f.Kind, f.Predicate, val)
		if f.OriginRule != "" {
			fmt.Fprintf(&b, " <- %s", f.OriginRule)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\ndecisions:\n")
	for _, d := range r.Trace.Decisions {
		fmt.Fprintf(&b, "  cycle %d: %s (%s) of %d, %s\n",
			d.Cycle, d.WinnerID, d.WinnerRule, len(d.Candidates), d.Reason)
	}

	b.WriteString("\nconclusions:\n")
	for _, c := range r.Conclusions {
		val, err := ir.MarshalCanonical(c.Value)
		require.NoError(t, err)
		fmt.Fprintf(&b, "  %s = %s (confidence %s, rule %s",
			c.Predicate, val, strconv.FormatFloat(c.Confidence, 'g', -1, 64), c.OriginRule)
		if c.Recommendation {
			b.WriteString(", recommendation")
		}
		b.WriteString(")\n")
	}

	return []byte(b.String())
}

func TestGolden_ChainedRecommendation(t *testing.T) {
	ks := rules(t,
		ir.Rule{
			ID:   "R1",
			Name: "calefacción alta seca el ambiente",
			Conditions: []ir.Condition{
				{Predicate: "calefaccion_nivel", Op: ir.OpMemberOf, Comparand: ir.LitOperand(ir.List{ir.String("alta"), ir.String("muy_alta")})},
			},
			Actions: []ir.Action{
				{Kind: ir.ActionAssert, Predicate: "ambiente_seco_extremo", Value: ir.LitOperand(ir.Bool(true)), Confidence: 0.9},
			},
		},
		ir.Rule{
			ID:   "R2",
			Name: "ambiente seco pide Chaura",
			Conditions: []ir.Condition{
				{Predicate: "ambiente_seco_extremo", Op: ir.OpEqual, Comparand: ir.LitOperand(ir.Bool(true))},
			},
			Actions: []ir.Action{
				{Kind: ir.ActionRecommend, Predicate: "planta_ideal", Value: ir.LitOperand(ir.String("Chaura")), Confidence: 0.85},
			},
		},
	)

	e := New(WithTokenGenerator(testutil.NewFixedTokenGenerator("golden-query")))
	result := e.RunQuery(ks, map[string]ir.Value{"calefaccion_nivel": ir.String("alta")})
	require.True(t, result.Success)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "chained_recommendation", renderTranscript(t, result))
}

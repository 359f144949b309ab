package engine

import (
	"strings"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// Termination reasons. The cycle limit is a normal, reported outcome,
// not an error; only reasons produced by terminationError are failures.
const (
	ReasonAgendaEmpty = "agenda empty"
	ReasonCycleLimit  = "cycle limit reached"
)

// terminationError renders an abort reason. Format: "error: <message>".
func terminationError(msg string) string {
	return "error: " + msg
}

// Conclusion is one final output fact, as exposed to the caller.
type Conclusion struct {
	Predicate      string   `json:"predicate"`
	Value          ir.Value `json:"value"`
	Confidence     float64  `json:"confidence"`
	Justification  string   `json:"justification,omitempty"`
	OriginRule     string   `json:"origin_rule"`
	Recommendation bool     `json:"recommendation,omitempty"`
}

// Result is the complete outcome of one query.
type Result struct {
	QueryToken        string       `json:"query_token"`
	Strategy          string       `json:"strategy"`
	Success           bool         `json:"success"`
	CyclesExecuted    int          `json:"cycles_executed"`
	RulesFired        int          `json:"rules_fired"`
	FactsDerived      int          `json:"facts_derived"`
	Conclusions       []Conclusion `json:"conclusions"`
	TerminationReason string       `json:"termination_reason"`
	ElapsedMillis     int64        `json:"elapsed_ms"`
	Trace             Trace        `json:"trace"`
}

// conclusionsFromMemory maps Conclusion facts to caller-facing
// conclusions, in assertion order. Recommendation-marked predicates are
// exposed with the bare predicate and the Recommendation flag set.
func conclusionsFromMemory(mem *wm.Memory) []Conclusion {
	facts := mem.FactsOfKind(wm.KindConclusion)
	out := make([]Conclusion, 0, len(facts))
	for _, f := range facts {
		c := Conclusion{
			Predicate:     f.Predicate,
			Value:         f.Value,
			Confidence:    f.Confidence,
			Justification: f.Justification,
			OriginRule:    f.OriginRule,
		}
		if rest, ok := strings.CutPrefix(f.Predicate, ir.RecommendPrefix); ok {
			c.Predicate = rest
			c.Recommendation = true
		}
		out = append(out, c)
	}
	return out
}

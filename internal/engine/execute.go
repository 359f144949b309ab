package engine

import (
	"fmt"
	"log/slog"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// Executor applies rule actions against working memory, resolving bound
// variables the same way the evaluator does.
type Executor struct {
	mem *wm.Memory
}

// NewExecutor creates an executor over the given working memory.
func NewExecutor(mem *wm.Memory) *Executor {
	return &Executor{mem: mem}
}

// Execute applies one action for the given rule. Returns the id of the
// fact created, or "" for no-ops.
//
// Every execution produces exactly one trace entry. An internal error is
// recovered: the action yields no fact and the error message is preserved
// in the entry - it never aborts the containing cycle.
func (ex *Executor) Execute(action ir.Action, bindings ir.Bindings, ruleID string) (factID string, entry ActionTrace) {
	entry = ActionTrace{
		RuleID:    ruleID,
		Kind:      action.Kind.String(),
		Predicate: action.Predicate,
	}

	defer func() {
		if r := recover(); r != nil {
			factID = ""
			entry.FactID = ""
			entry.Outcome = OutcomeError
			entry.Err = fmt.Sprintf("recovered: %v", r)
		}
	}()

	// Resolve the action value through bindings, exactly as conditions
	// resolve comparands. A zero operand stays nil (e.g. bare Increment).
	var value ir.Value
	if !action.Value.IsZero() {
		resolved, err := action.Value.Resolve(bindings)
		if err != nil {
			entry.Outcome = OutcomeError
			entry.Err = err.Error()
			return "", entry
		}
		value = resolved
		entry.Value = ir.Display(value)
	}

	var err error
	switch action.Kind {
	case ir.ActionAssert, ir.ActionSetVariable:
		factID, err = ex.mem.AssertDerived(action.Predicate, value, ruleID, action.Explanation, action.Confidence)
		entry.Outcome = OutcomeAsserted

	case ir.ActionConclude:
		factID, err = ex.mem.AssertConclusion(action.Predicate, value, ruleID, action.Explanation, action.Confidence)
		entry.Outcome = OutcomeAsserted

	case ir.ActionRecommend:
		factID, err = ex.mem.AssertConclusion(ir.RecommendPrefix+action.Predicate, value, ruleID, action.Explanation, action.Confidence)
		entry.Outcome = OutcomeAsserted

	case ir.ActionIncrement:
		factID, entry.Outcome, err = ex.increment(action, value, ruleID)

	case ir.ActionRetract:
		// Accepted syntactically, no effect on working memory: truth
		// maintenance is out of scope and the original semantics are
		// preserved as a documented no-op.
		entry.Outcome = OutcomeIgnored
		slog.Debug("retract ignored", "rule", ruleID, "predicate", action.Predicate)

	default:
		err = fmt.Errorf("unhandled action kind %s", action.Kind)
	}

	if err != nil {
		slog.Error("action failed", "rule", ruleID, "kind", action.Kind.String(), "predicate", action.Predicate, "error", err)
		entry.Outcome = OutcomeError
		entry.Err = err.Error()
		return "", entry
	}
	entry.FactID = factID
	return factID, entry
}

// increment asserts current + value for a numeric predicate. When the
// predicate is absent or non-numeric the action is a no-op: no fact is
// created. An unset value increments by 1.
func (ex *Executor) increment(action ir.Action, value ir.Value, ruleID string) (string, string, error) {
	current, ok := ex.mem.Lookup(action.Predicate)
	if !ok {
		return "", OutcomeNoop, nil
	}
	base, ok := ir.AsNumber(current.Value)
	if !ok {
		return "", OutcomeNoop, nil
	}

	delta := 1.0
	if value != nil {
		d, ok := ir.AsNumber(value)
		if !ok {
			return "", OutcomeNoop, nil
		}
		delta = d
	}

	sum := base + delta
	var next ir.Value
	if sum == float64(int64(sum)) {
		next = ir.Int(int64(sum))
	} else {
		next = ir.Float(sum)
	}

	id, err := ex.mem.AssertDerived(action.Predicate, next, ruleID, action.Explanation, action.Confidence)
	if err != nil {
		return "", OutcomeError, err
	}
	return id, OutcomeAsserted, nil
}

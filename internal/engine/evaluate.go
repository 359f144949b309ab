package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// Evaluator matches single conditions against working memory, binding
// variables as it goes.
type Evaluator struct {
	mem *wm.Memory
}

// NewEvaluator creates an evaluator over the given working memory.
func NewEvaluator(mem *wm.Memory) *Evaluator {
	return &Evaluator{mem: mem}
}

// Evaluate matches one condition under the given bindings.
//
// On success, if the condition declares a bind variable, the fact's value
// is added to bindings. The returned trace entry is produced for every
// evaluation - success, failure, or recovered internal error. An internal
// error never propagates: the condition is false and the error message is
// preserved in the entry.
func (ev *Evaluator) Evaluate(cond ir.Condition, bindings ir.Bindings) (matched bool, entry ConditionTrace) {
	entry = ConditionTrace{
		Predicate: cond.Predicate,
		Operator:  cond.Op.String(),
	}

	defer func() {
		if r := recover(); r != nil {
			matched = false
			entry.Matched = false
			entry.Err = fmt.Sprintf("recovered: %v", r)
		}
	}()

	// Presence operators never require a value match or a comparand.
	if cond.Op.TestsPresence() {
		fact, ok := ev.mem.Lookup(cond.Predicate)
		if ok {
			entry.Actual = fact.Value
			entry.FactID = fact.ID
		}
		matched = (cond.Op == ir.OpExists) == ok
		entry.Matched = matched
		if matched && ok && cond.BindVar != "" {
			bindings[cond.BindVar] = fact.Value
			entry.BoundVar = cond.BindVar
		}
		return matched, entry
	}

	// Resolve the comparand: substitute a bound-variable reference.
	comparand, err := cond.Comparand.Resolve(bindings)
	if err != nil {
		entry.Err = err.Error()
		entry.Expected = cond.Comparand.String()
		return false, entry
	}
	entry.Expected = ir.Display(comparand)

	// All remaining operators require a fact to be present.
	fact, ok := ev.mem.Lookup(cond.Predicate)
	if !ok {
		return false, entry
	}
	entry.Actual = fact.Value
	entry.FactID = fact.ID

	matched, err = applyOperator(cond.Op, fact.Value, comparand)
	if err != nil {
		entry.Err = err.Error()
		matched = false
	}
	entry.Matched = matched

	if matched && cond.BindVar != "" {
		bindings[cond.BindVar] = fact.Value
		entry.BoundVar = cond.BindVar
	}
	return matched, entry
}

// applyOperator dispatches over the closed operator set. The switch is
// exhaustive: a new operator variant fails loudly here rather than
// silently evaluating false.
func applyOperator(op ir.Operator, factValue, comparand ir.Value) (bool, error) {
	switch op {
	case ir.OpEqual:
		return ir.Equal(factValue, comparand), nil

	case ir.OpNotEqual:
		return !ir.Equal(factValue, comparand), nil

	case ir.OpLess, ir.OpLessEq, ir.OpGreater, ir.OpGreaterEq:
		return compareNumeric(op, factValue, comparand)

	case ir.OpContains:
		// The fact value contains the comparand: list element or substring.
		if list, ok := factValue.(ir.List); ok {
			return listContains(list, comparand), nil
		}
		return strings.Contains(ir.Display(factValue), ir.Display(comparand)), nil

	case ir.OpMemberOf, ir.OpNotMemberOf:
		// The fact value is a member of the comparand: collection
		// membership, or substring when the comparand is scalar.
		var member bool
		if list, ok := comparand.(ir.List); ok {
			member = listContains(list, factValue)
		} else {
			member = strings.Contains(ir.Display(comparand), ir.Display(factValue))
		}
		if op == ir.OpNotMemberOf {
			return !member, nil
		}
		return member, nil

	case ir.OpMatches:
		pattern, ok := comparand.(ir.String)
		if !ok {
			return false, fmt.Errorf("pattern must be a string, got %T", comparand)
		}
		matched, err := regexp.MatchString(string(pattern), ir.Display(factValue))
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		return matched, nil

	case ir.OpExists, ir.OpNotExists:
		// Handled before operand resolution; unreachable here.
		return false, fmt.Errorf("presence operator %s reached value dispatch", op)

	default:
		return false, fmt.Errorf("unhandled operator %s", op)
	}
}

// compareNumeric coerces both sides to numeric. Coercion failure fails
// the condition (false, with the reason) - it is not a query error.
func compareNumeric(op ir.Operator, factValue, comparand ir.Value) (bool, error) {
	a, ok := ir.AsNumber(factValue)
	if !ok {
		return false, fmt.Errorf("fact value %q is not numeric", ir.Display(factValue))
	}
	b, ok := ir.AsNumber(comparand)
	if !ok {
		return false, fmt.Errorf("comparand %q is not numeric", ir.Display(comparand))
	}
	switch op {
	case ir.OpLess:
		return a < b, nil
	case ir.OpLessEq:
		return a <= b, nil
	case ir.OpGreater:
		return a > b, nil
	default:
		return a >= b, nil
	}
}

func listContains(list ir.List, v ir.Value) bool {
	for _, elem := range list {
		if ir.Equal(elem, v) {
			return true
		}
	}
	return false
}

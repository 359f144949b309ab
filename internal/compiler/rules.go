// Package compiler turns CUE rule sources into validated rules.
//
// Rule sources are data, not code: a single `rules` struct whose fields
// are rule ids. The compiler uses the CUE SDK's Go API directly (not a
// CLI subprocess), so syntax errors surface with file positions.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// CompileRules parses a CUE source into validated rules.
// Rules are returned ordered by id; the id order is the definition order
// the engine's FIFO strategy observes.
//
// The source shape:
//
//	rules: R001: {
//		name:     "ambiente interior con calefacción alta"
//		priority: 8.5
//		if: [{predicate: "ubicacion_usuario", op: "==", value: "interior"}]
//		then: [{do: "assert", predicate: "ambiente_interior", value: true}]
//	}
func CompileRules(filename string, source []byte) ([]ir.Rule, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(source, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := root.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "top-level rules struct is required",
			Pos:     root.Pos(),
		}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []ir.Rule
	for iter.Next() {
		// The id may be quoted in CUE; strip the quotes.
		id := strings.Trim(iter.Selector().String(), `"`)
		rule, err := CompileRule(id, iter.Value())
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	if verrs := ir.ValidateRules(rules); len(verrs) > 0 {
		return nil, &CompileError{
			RuleID:  verrs[0].RuleID,
			Field:   verrs[0].Field,
			Message: fmt.Sprintf("%s (%d violation(s) total)", verrs[0].Message, len(verrs)),
		}
	}
	return rules, nil
}

// CompileRule parses one rule struct. Defaults that validation derives
// (weights, confidences, specificity) are left zero here; ValidateRules
// normalizes them.
func CompileRule(id string, v cue.Value) (ir.Rule, error) {
	if err := v.Err(); err != nil {
		return ir.Rule{}, formatCUEError(err)
	}

	rule := ir.Rule{ID: id, Active: true}

	var err error
	if rule.Name, err = optionalString(v, "name"); err != nil {
		return ir.Rule{}, err
	}
	if rule.Domain, err = optionalString(v, "domain"); err != nil {
		return ir.Rule{}, err
	}

	if pv := v.LookupPath(cue.ParsePath("priority")); pv.Exists() {
		if rule.Priority, err = pv.Float64(); err != nil {
			return ir.Rule{}, formatCUEError(err)
		}
	}
	if av := v.LookupPath(cue.ParsePath("active")); av.Exists() {
		if rule.Active, err = av.Bool(); err != nil {
			return ir.Rule{}, formatCUEError(err)
		}
	}

	if rule.Conditions, err = parseConditions(id, v); err != nil {
		return ir.Rule{}, err
	}
	if rule.Actions, err = parseActions(id, v); err != nil {
		return ir.Rule{}, err
	}
	return rule, nil
}

func parseConditions(ruleID string, v cue.Value) ([]ir.Condition, error) {
	condsVal := v.LookupPath(cue.ParsePath("if"))
	if !condsVal.Exists() {
		return nil, &CompileError{
			RuleID:  ruleID,
			Field:   "if",
			Message: "conditions are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := condsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var conds []ir.Condition
	for i := 0; iter.Next(); i++ {
		cv := iter.Value()
		field := fmt.Sprintf("if[%d]", i)

		var cond ir.Condition
		if cond.Predicate, err = requiredString(ruleID, field, cv, "predicate"); err != nil {
			return nil, err
		}

		opName, err := requiredString(ruleID, field, cv, "op")
		if err != nil {
			return nil, err
		}
		if cond.Op, err = ir.ParseOperator(opName); err != nil {
			return nil, &CompileError{
				RuleID:  ruleID,
				Field:   field + ".op",
				Message: err.Error(),
				Pos:     cv.Pos(),
			}
		}

		if valVal := cv.LookupPath(cue.ParsePath("value")); valVal.Exists() {
			decoded, err := decodeValue(valVal)
			if err != nil {
				return nil, &CompileError{
					RuleID:  ruleID,
					Field:   field + ".value",
					Message: err.Error(),
					Pos:     valVal.Pos(),
				}
			}
			if cond.Comparand, err = ir.OperandFromAny(decoded); err != nil {
				return nil, &CompileError{
					RuleID:  ruleID,
					Field:   field + ".value",
					Message: err.Error(),
					Pos:     valVal.Pos(),
				}
			}
		}

		if cond.BindVar, err = optionalString(cv, "bind"); err != nil {
			return nil, err
		}
		if wv := cv.LookupPath(cue.ParsePath("weight")); wv.Exists() {
			if cond.Weight, err = wv.Float64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if cond.Explanation, err = optionalString(cv, "explain"); err != nil {
			return nil, err
		}

		conds = append(conds, cond)
	}
	return conds, nil
}

func parseActions(ruleID string, v cue.Value) ([]ir.Action, error) {
	actionsVal := v.LookupPath(cue.ParsePath("then"))
	if !actionsVal.Exists() {
		return nil, &CompileError{
			RuleID:  ruleID,
			Field:   "then",
			Message: "actions are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := actionsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var actions []ir.Action
	for i := 0; iter.Next(); i++ {
		av := iter.Value()
		field := fmt.Sprintf("then[%d]", i)

		var action ir.Action
		kindName, err := requiredString(ruleID, field, av, "do")
		if err != nil {
			return nil, err
		}
		if action.Kind, err = ir.ParseActionKind(kindName); err != nil {
			return nil, &CompileError{
				RuleID:  ruleID,
				Field:   field + ".do",
				Message: err.Error(),
				Pos:     av.Pos(),
			}
		}

		if action.Predicate, err = requiredString(ruleID, field, av, "predicate"); err != nil {
			return nil, err
		}

		if valVal := av.LookupPath(cue.ParsePath("value")); valVal.Exists() {
			decoded, err := decodeValue(valVal)
			if err != nil {
				return nil, &CompileError{
					RuleID:  ruleID,
					Field:   field + ".value",
					Message: err.Error(),
					Pos:     valVal.Pos(),
				}
			}
			if action.Value, err = ir.OperandFromAny(decoded); err != nil {
				return nil, &CompileError{
					RuleID:  ruleID,
					Field:   field + ".value",
					Message: err.Error(),
					Pos:     valVal.Pos(),
				}
			}
		}

		if cv := av.LookupPath(cue.ParsePath("confidence")); cv.Exists() {
			if action.Confidence, err = cv.Float64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if action.Explanation, err = optionalString(av, "explain"); err != nil {
			return nil, err
		}

		actions = append(actions, action)
	}
	return actions, nil
}

// decodeValue converts a concrete CUE value into the Go shape
// ir.OperandFromAny accepts. Integers stay integers; CUE's number kind
// only widens to float when the literal has a fraction.
func decodeValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.BoolKind:
		return v.Bool()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var elems []any
		for iter.Next() {
			elem, err := decodeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return elems, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.Kind())
	}
}

func requiredString(ruleID, field string, v cue.Value, key string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return "", &CompileError{
			RuleID:  ruleID,
			Field:   field + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, key string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError is a compilation failure with source position.
type CompileError struct {
	RuleID  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if e.RuleID != "" {
		msg = "rule " + e.RuleID + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

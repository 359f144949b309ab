package ir

import (
	"fmt"
	"math"
)

// ValidationError describes one rule-model invariant violation.
type ValidationError struct {
	RuleID  string `json:"rule_id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s: %s: %s", e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRule normalizes the rule and checks its invariants.
// Returns all violations, not just the first.
func ValidateRule(r *Rule) []ValidationError {
	r.Normalize()

	var errs []ValidationError
	report := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{
			RuleID:  r.ID,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if r.ID == "" {
		report("id", "rule id is required")
	}
	if len(r.Conditions) == 0 {
		report("if", "a rule must have at least one condition")
	}
	if len(r.Actions) == 0 {
		report("then", "a rule must have at least one action")
	}
	if math.IsNaN(r.Priority) || math.IsInf(r.Priority, 0) {
		report("priority", "priority must be finite, got %v", r.Priority)
	}

	for i, c := range r.Conditions {
		field := fmt.Sprintf("if[%d]", i)
		if c.Predicate == "" {
			report(field, "condition predicate is required")
		}
		if _, known := operatorNames[c.Op]; !known {
			report(field, "unknown operator")
		}
		if c.Weight <= 0 {
			report(field, "condition weight must be > 0, got %v", c.Weight)
		}
		if !c.Op.TestsPresence() && c.Comparand.IsZero() {
			report(field, "operator %s requires a comparand", c.Op)
		}
	}

	for i, a := range r.Actions {
		field := fmt.Sprintf("then[%d]", i)
		if a.Predicate == "" {
			report(field, "action predicate is required")
		}
		if _, known := actionKindNames[a.Kind]; !known {
			report(field, "unknown action kind")
		}
		if a.Confidence < 0 || a.Confidence > 1 {
			report(field, "confidence must be in [0,1], got %v", a.Confidence)
		}
		switch a.Kind {
		case ActionAssert, ActionConclude, ActionRecommend, ActionSetVariable:
			// Fact-producing actions need a value; a nil-valued fact could
			// never round-trip through canonical JSON.
			if a.Value.IsZero() {
				report(field, "action %s requires a value", a.Kind)
			}
		}
	}

	return errs
}

// ValidateRules validates every rule and checks cross-rule invariants
// (unique ids within a knowledge source).
func ValidateRules(rules []Rule) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(rules))

	for i := range rules {
		errs = append(errs, ValidateRule(&rules[i])...)
		id := rules[i].ID
		if id == "" {
			continue
		}
		if seen[id] {
			errs = append(errs, ValidationError{
				RuleID:  id,
				Field:   "id",
				Message: "duplicate rule id",
			})
		}
		seen[id] = true
	}

	return errs
}

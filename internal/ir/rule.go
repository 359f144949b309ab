package ir

import "fmt"

// Operator is the closed set of condition operators.
type Operator int

const (
	OpInvalid Operator = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpContains
	OpMemberOf
	OpNotMemberOf
	OpExists
	OpNotExists
	OpMatches
)

// operatorNames uses the symbols of the original rule format.
var operatorNames = map[Operator]string{
	OpEqual:       "==",
	OpNotEqual:    "!=",
	OpLess:        "<",
	OpLessEq:      "<=",
	OpGreater:     ">",
	OpGreaterEq:   ">=",
	OpContains:    "contains",
	OpMemberOf:    "in",
	OpNotMemberOf: "not_in",
	OpExists:      "exists",
	OpNotExists:   "not_exists",
	OpMatches:     "matches",
}

// String returns the rule-source spelling of the operator.
func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator maps a rule-source spelling to an Operator.
func ParseOperator(s string) (Operator, error) {
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown operator %q", s)
}

// TestsPresence reports whether the operator only tests fact presence.
// Presence operators never require a comparand.
func (op Operator) TestsPresence() bool {
	return op == OpExists || op == OpNotExists
}

// ActionKind is the closed set of action kinds.
type ActionKind int

const (
	ActionInvalid ActionKind = iota
	ActionAssert
	ActionRetract
	ActionConclude
	ActionRecommend
	ActionSetVariable
	ActionIncrement
)

var actionKindNames = map[ActionKind]string{
	ActionAssert:      "assert",
	ActionRetract:     "retract",
	ActionConclude:    "conclude",
	ActionRecommend:   "recommend",
	ActionSetVariable: "set",
	ActionIncrement:   "increment",
}

// String returns the rule-source spelling of the action kind.
func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind maps a rule-source spelling to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for k, name := range actionKindNames {
		if name == s {
			return k, nil
		}
	}
	return ActionInvalid, fmt.Errorf("unknown action kind %q", s)
}

// RecommendPrefix marks conclusion predicates asserted by Recommend
// actions. Result assembly strips the prefix and flags the conclusion
// as a recommendation.
const RecommendPrefix = "recommend:"

// Condition is one IF clause of a rule.
type Condition struct {
	Predicate   string   `json:"predicate"`
	Op          Operator `json:"op"`
	Comparand   Operand  `json:"comparand,omitempty"`
	BindVar     string   `json:"bind,omitempty"`   // variable bound to the fact value on match
	Weight      float64  `json:"weight,omitempty"` // relative importance, > 0
	Explanation string   `json:"explain,omitempty"`
}

// Action is one THEN clause of a rule.
type Action struct {
	Kind        ActionKind `json:"do"`
	Predicate   string     `json:"predicate"`
	Value       Operand    `json:"value,omitempty"`
	Confidence  float64    `json:"confidence,omitempty"` // [0,1]
	Explanation string     `json:"explain,omitempty"`
}

// Rule is an immutable production rule.
type Rule struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	Domain     string      `json:"domain,omitempty"`
	Conditions []Condition `json:"if"`
	Actions    []Action    `json:"then"`
	Priority   float64     `json:"priority,omitempty"`

	// Specificity and Complexity default to len(Conditions) and
	// len(Conditions)+len(Actions); Normalize derives them when zero.
	Specificity int `json:"specificity,omitempty"`
	Complexity  int `json:"complexity,omitempty"`

	Active bool `json:"active"`
}

// Normalize fills in derived metadata and defaults in place:
// specificity, complexity, condition weights, and action confidences.
// Called by validation; safe to call repeatedly.
func (r *Rule) Normalize() {
	if r.Specificity == 0 {
		r.Specificity = len(r.Conditions)
	}
	if r.Complexity == 0 {
		r.Complexity = len(r.Conditions) + len(r.Actions)
	}
	for i := range r.Conditions {
		if r.Conditions[i].Weight == 0 {
			r.Conditions[i].Weight = 1.0
		}
	}
	for i := range r.Actions {
		if r.Actions[i].Confidence == 0 {
			r.Actions[i].Confidence = 1.0
		}
	}
}

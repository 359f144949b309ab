package engine

import (
	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// ConditionTrace records one condition evaluation. Every evaluation
// produces exactly one entry - success, failure, or internal error.
// The explanation feature is built from these; they are never skipped.
type ConditionTrace struct {
	Cycle     int      `json:"cycle"`
	RuleID    string   `json:"rule_id"`
	Predicate string   `json:"predicate"`
	Operator  string   `json:"operator"`
	Expected  string   `json:"expected,omitempty"` // resolved comparand, rule-source form
	Actual    ir.Value `json:"actual,omitempty"`   // fact value, nil when no fact exists
	FactID    string   `json:"fact_id,omitempty"`
	Matched   bool     `json:"matched"`
	BoundVar  string   `json:"bound_var,omitempty"`
	Err       string   `json:"error,omitempty"` // recovered evaluation error, if any
}

// ActionTrace records one action execution - success, no-op, or
// recovered internal error.
type ActionTrace struct {
	Cycle     int    `json:"cycle"`
	RuleID    string `json:"rule_id"`
	Kind      string `json:"kind"`
	Predicate string `json:"predicate"`
	Value     string `json:"value,omitempty"` // resolved value, display form
	FactID    string `json:"fact_id,omitempty"`
	Outcome   string `json:"outcome"`
	Err       string `json:"error,omitempty"`
}

// Action outcomes.
const (
	OutcomeAsserted = "asserted"
	OutcomeNoop     = "no-op"
	OutcomeIgnored  = "ignored" // Retract: accepted but has no effect
	OutcomeError    = "error"
)

// Candidate is one pending activation considered by a conflict-resolution
// decision, with the metrics the strategies compare.
type Candidate struct {
	ActivationID string  `json:"activation_id"`
	RuleID       string  `json:"rule_id"`
	Specificity  int     `json:"specificity"`
	Complexity   int     `json:"complexity"`
	Priority     float64 `json:"priority"`
	Seq          int64   `json:"seq"`
}

// Decision records one conflict-resolution outcome: the full candidate
// set, the winner, and the reason derived from the active strategy.
type Decision struct {
	Cycle      int         `json:"cycle"`
	Strategy   string      `json:"strategy"`
	Candidates []Candidate `json:"candidates"`
	WinnerID   string      `json:"winner_id"`
	WinnerRule string      `json:"winner_rule"`
	Reason     string      `json:"reason"`
}

// CycleTrace summarizes one Match/Resolve/Act iteration.
type CycleTrace struct {
	Cycle              int      `json:"cycle"`
	FactCount          int      `json:"fact_count"`
	PendingActivations int      `json:"pending_activations"`
	ActivationsCreated int      `json:"activations_created"`
	RuleFired          string   `json:"rule_fired,omitempty"`
	FactsCreated       []string `json:"facts_created,omitempty"`
}

// Trace is the full explanation record for one query: the fact-store
// history, every condition and action evaluation, the agenda's decision
// log, and the per-cycle summaries.
type Trace struct {
	Facts      []wm.Fact        `json:"facts"`
	Conditions []ConditionTrace `json:"conditions"`
	Actions    []ActionTrace    `json:"actions"`
	Decisions  []Decision       `json:"decisions"`
	Cycles     []CycleTrace     `json:"cycles"`
}

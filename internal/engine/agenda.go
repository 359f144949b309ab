package engine

import (
	"fmt"
	"log/slog"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// Activation is one rule instantiation: a rule whose conditions are
// satisfied under a concrete binding of variables, awaiting execution.
//
// Identity is (RuleID, BindingHash): the same rule matched with the same
// bindings is the same activation. The agenda never holds two of them.
type Activation struct {
	ID              string      `json:"id"`
	RuleID          string      `json:"rule_id"`
	Bindings        ir.Bindings `json:"bindings,omitempty"`
	BindingHash     string      `json:"binding_hash"`
	TriggeringFacts []string    `json:"triggering_facts,omitempty"`
	Specificity     int         `json:"specificity"`
	Complexity      int         `json:"complexity"`
	Priority        float64     `json:"priority"`
	Justification   string      `json:"justification,omitempty"`
	Seq             int64       `json:"seq"` // creation order, monotonic
	Executed        bool        `json:"executed"`
}

// Strategy is the closed set of conflict-resolution strategies.
// Fixed for the lifetime of one engine instance.
type Strategy int

const (
	// StrategySpecificity prefers the activation with the most
	// conditions; ties break on earliest creation. The default.
	StrategySpecificity Strategy = iota
	// StrategyRecency prefers the most recently created activation.
	StrategyRecency
	// StrategyComplexity prefers the largest conditions+actions count.
	StrategyComplexity
	// StrategyPriority prefers the largest explicit rule priority.
	StrategyPriority
	// StrategyDefinitionOrder fires activations strictly FIFO.
	StrategyDefinitionOrder
)

var strategyNames = map[Strategy]string{
	StrategySpecificity:     "specificity",
	StrategyRecency:         "recency",
	StrategyComplexity:      "complexity",
	StrategyPriority:        "priority",
	StrategyDefinitionOrder: "definition-order",
}

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for strat, name := range strategyNames {
		if name == s {
			return strat, nil
		}
	}
	return StrategySpecificity, fmt.Errorf("unknown strategy %q", s)
}

// Agenda holds the conflict set: activated-but-unexecuted rule
// instantiations, plus the history of fired ones.
//
// Owned exclusively by one engine instance per query, like the working
// memory. Not safe for concurrent use.
type Agenda struct {
	strategy  Strategy
	clock     *Clock
	pending   []*Activation
	history   []*Activation
	seen      map[string]bool // ruleID + ":" + bindingHash, never cleared mid-query
	decisions []Decision
	counter   int64 // activation id counter, owned by this instance
}

// NewAgenda creates an empty agenda with the given strategy.
func NewAgenda(strategy Strategy) *Agenda {
	a := &Agenda{strategy: strategy, clock: NewClock()}
	a.Reset()
	return a
}

// Strategy returns the configured conflict-resolution strategy.
func (a *Agenda) Strategy() Strategy {
	return a.strategy
}

// Reset clears pending, history, the duplicate index, and the decision
// log, and restarts the counters. Called once per query.
func (a *Agenda) Reset() {
	a.pending = nil
	a.history = nil
	a.seen = make(map[string]bool)
	a.decisions = nil
	a.counter = 0
	a.clock.Reset()
}

// Activate inserts a new activation unless an identical (ruleID,
// bindings) pair has already been activated this query. Duplicate
// suppression is mandatory: a rule that stays satisfied across cycles
// would otherwise re-enter the conflict set after every Match and never
// let the agenda drain. Suppression spans both pending and fired
// activations - a fired instantiation never re-enters the conflict set.
func (a *Agenda) Activate(ruleID string, bindings ir.Bindings, triggeringFacts []string, specificity, complexity int, priority float64, justification string) (*Activation, error) {
	hash, err := ir.BindingHash(bindings)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", ruleID, err)
	}

	key := ruleID + ":" + hash
	if a.seen[key] {
		return nil, nil
	}
	a.seen[key] = true

	a.counter++
	act := &Activation{
		ID:              fmt.Sprintf("A%04d", a.counter),
		RuleID:          ruleID,
		Bindings:        bindings.Clone(),
		BindingHash:     hash,
		TriggeringFacts: triggeringFacts,
		Specificity:     specificity,
		Complexity:      complexity,
		Priority:        priority,
		Justification:   justification,
		Seq:             a.clock.Next(),
	}
	a.pending = append(a.pending, act)

	slog.Debug("rule activated", "activation", act.ID, "rule", ruleID, "seq", act.Seq)
	return act, nil
}

// SelectNext applies the configured strategy over all pending activations
// and returns the winner, or nil when none remain. Each selection logs
// one conflict-resolution decision with the full candidate set.
//
// The winner stays pending until MarkExecuted; callers must fire it.
func (a *Agenda) SelectNext(cycle int) *Activation {
	if len(a.pending) == 0 {
		return nil
	}

	winner := a.pending[0]
	for _, cand := range a.pending[1:] {
		if a.better(cand, winner) {
			winner = cand
		}
	}

	decision := Decision{
		Cycle:      cycle,
		Strategy:   a.strategy.String(),
		Candidates: make([]Candidate, len(a.pending)),
		WinnerID:   winner.ID,
		WinnerRule: winner.RuleID,
		Reason:     a.reason(winner),
	}
	for i, act := range a.pending {
		decision.Candidates[i] = Candidate{
			ActivationID: act.ID,
			RuleID:       act.RuleID,
			Specificity:  act.Specificity,
			Complexity:   act.Complexity,
			Priority:     act.Priority,
			Seq:          act.Seq,
		}
	}
	a.decisions = append(a.decisions, decision)

	slog.Debug("activation selected",
		"activation", winner.ID,
		"rule", winner.RuleID,
		"strategy", a.strategy.String(),
		"candidates", len(a.pending),
	)
	return winner
}

// better reports whether candidate should win over incumbent under the
// active strategy. Every strategy is deterministic: metric ties break on
// the smaller Seq (first-activated wins), except Recency, whose metric
// is Seq itself.
func (a *Agenda) better(candidate, incumbent *Activation) bool {
	switch a.strategy {
	case StrategyRecency:
		return candidate.Seq > incumbent.Seq
	case StrategyComplexity:
		if candidate.Complexity != incumbent.Complexity {
			return candidate.Complexity > incumbent.Complexity
		}
	case StrategyPriority:
		if candidate.Priority != incumbent.Priority {
			return candidate.Priority > incumbent.Priority
		}
	case StrategyDefinitionOrder:
		// FIFO: the incumbent, created earlier, always wins.
		return false
	default: // StrategySpecificity
		if candidate.Specificity != incumbent.Specificity {
			return candidate.Specificity > incumbent.Specificity
		}
	}
	return candidate.Seq < incumbent.Seq
}

// reason renders the human-readable selection reason for a decision.
func (a *Agenda) reason(winner *Activation) string {
	switch a.strategy {
	case StrategyRecency:
		return fmt.Sprintf("most recent activation (seq %d)", winner.Seq)
	case StrategyComplexity:
		return fmt.Sprintf("highest complexity (%d), earliest activation wins ties", winner.Complexity)
	case StrategyPriority:
		return fmt.Sprintf("highest explicit priority (%g), earliest activation wins ties", winner.Priority)
	case StrategyDefinitionOrder:
		return fmt.Sprintf("first activated (seq %d)", winner.Seq)
	default:
		return fmt.Sprintf("highest specificity (%d), earliest activation wins ties", winner.Specificity)
	}
}

// MarkExecuted moves an activation from pending to history. It can never
// be selected again: SelectNext only considers pending.
func (a *Agenda) MarkExecuted(act *Activation) {
	act.Executed = true
	for i, p := range a.pending {
		if p == act {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			break
		}
	}
	a.history = append(a.history, act)
}

// IsEmpty reports whether no non-executed activation remains.
func (a *Agenda) IsEmpty() bool {
	return len(a.pending) == 0
}

// PendingCount returns the number of activations awaiting execution.
func (a *Agenda) PendingCount() int {
	return len(a.pending)
}

// History returns the fired activations in firing order.
func (a *Agenda) History() []*Activation {
	out := make([]*Activation, len(a.history))
	copy(out, a.history)
	return out
}

// Decisions returns the conflict-resolution decision log.
func (a *Agenda) Decisions() []Decision {
	out := make([]Decision, len(a.decisions))
	copy(out, a.decisions)
	return out
}

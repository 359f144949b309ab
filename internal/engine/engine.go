package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// KnowledgeSource supplies the rules the engine reasons over.
// Implementations must satisfy the rule-model invariants (validated
// rules, unique ids); see internal/kb.
type KnowledgeSource interface {
	// ListRules returns all rules in definition order. The order is part
	// of the contract: Match evaluates rules in exactly this order.
	ListRules() []ir.Rule

	// Rule resolves a rule by id.
	Rule(id string) (ir.Rule, bool)
}

// DefaultMaxCycles bounds the Match/Resolve/Act loop. The limit guards
// against non-terminating rule sets; hitting it is a normal, reported
// termination, not an error.
const DefaultMaxCycles = 50

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateAborted:   "aborted",
}

// String returns the lifecycle state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Engine orchestrates the Match/Resolve/Act cycle.
//
// One instance processes one query at a time. Working memory and agenda
// are owned exclusively by the in-flight query and reset before the next
// one; no state survives across queries. Callers wanting concurrent
// queries use independent instances - they share nothing.
type Engine struct {
	strategy  Strategy
	maxCycles int
	tokens    TokenGenerator

	mem    *wm.Memory
	agenda *Agenda
	eval   *Evaluator
	exec   *Executor

	mu    sync.Mutex // guards state; held for the whole query
	state State

	// Per-query accumulators, reset at query start. Fields rather than
	// locals so a recovered abort still returns the partial trace.
	conditions  []ConditionTrace
	actions     []ActionTrace
	cycleTraces []CycleTrace
	cycles      int
	rulesFired  int
	derived     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy sets the conflict-resolution strategy.
// Fixed for the lifetime of the instance. Default: specificity.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithMaxCycles sets the cycle-limit safety bound. Default: 50.
func WithMaxCycles(n int) Option {
	return func(e *Engine) { e.maxCycles = n }
}

// WithTokenGenerator sets the query token generator.
// Default: UUIDv7Generator. Tests inject fixed generators.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// New creates an engine in the Idle state.
func New(opts ...Option) *Engine {
	e := &Engine{
		strategy:  StrategySpecificity,
		maxCycles: DefaultMaxCycles,
		tokens:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mem = wm.New()
	e.agenda = NewAgenda(e.strategy)
	e.eval = NewEvaluator(e.mem)
	e.exec = NewExecutor(e.mem)
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// RunQuery executes one query: seeds the given initial facts, runs the
// cycle loop to termination, and returns the result with the full trace.
//
// The result is always non-nil. A fault escaping the per-condition and
// per-action recovery boundaries aborts the query with termination
// reason "error: <message>" - already-derived facts and the partial
// trace are still returned. Calling RunQuery while a query is in flight
// on the same instance fails immediately the same way.
func (e *Engine) RunQuery(ks KnowledgeSource, initialFacts map[string]ir.Value) *Result {
	if !e.mu.TryLock() {
		err := &RuntimeError{Code: ErrCodeEngineBusy, Message: "engine already running a query"}
		slog.Error("query rejected", "error", err)
		return &Result{
			Strategy:          e.strategy.String(),
			Success:           false,
			TerminationReason: terminationError(err.Message),
			Conclusions:       []Conclusion{},
		}
	}
	defer e.mu.Unlock()

	start := time.Now()
	token := e.tokens.Generate()
	e.state = StateRunning
	slog.Info("query starting", "query", token, "strategy", e.strategy.String(), "max_cycles", e.maxCycles)

	// Fresh state for this query: nothing survives from the last one.
	e.mem.Reset()
	e.agenda.Reset()
	e.conditions = nil
	e.actions = nil
	e.cycleTraces = nil
	e.cycles = 0
	e.rulesFired = 0
	e.derived = 0

	e.seed(initialFacts)
	reason := e.runLoop(ks, token)

	aborted := reason != ReasonAgendaEmpty && reason != ReasonCycleLimit
	if aborted {
		e.state = StateAborted
	} else {
		e.state = StateCompleted
	}

	result := &Result{
		QueryToken:        token,
		Strategy:          e.strategy.String(),
		Success:           !aborted,
		CyclesExecuted:    e.cycles,
		RulesFired:        e.rulesFired,
		FactsDerived:      e.derived,
		Conclusions:       conclusionsFromMemory(e.mem),
		TerminationReason: reason,
		ElapsedMillis:     time.Since(start).Milliseconds(),
		Trace: Trace{
			Facts:      e.mem.AllFacts(),
			Conditions: e.conditions,
			Actions:    e.actions,
			Decisions:  e.agenda.Decisions(),
			Cycles:     e.cycleTraces,
		},
	}

	slog.Info("query finished",
		"query", token,
		"state", e.state.String(),
		"cycles", result.CyclesExecuted,
		"rules_fired", result.RulesFired,
		"conclusions", len(result.Conclusions),
		"reason", reason,
	)
	return result
}

// seed asserts one Initial fact per entry, in predicate order so fact
// ids and sequence numbers are reproducible (map iteration is not).
func (e *Engine) seed(initialFacts map[string]ir.Value) {
	predicates := make([]string, 0, len(initialFacts))
	for p := range initialFacts {
		predicates = append(predicates, p)
	}
	sort.Strings(predicates)
	for _, p := range predicates {
		e.mem.AssertInitial(p, initialFacts[p], "caller input")
	}
}

// runLoop drives Match/Resolve/Act until termination and returns the
// termination reason. A panic escaping the per-rule and per-action
// recovery is caught here and becomes an abort reason; the accumulated
// trace survives in the engine fields.
func (e *Engine) runLoop(ks KnowledgeSource, token string) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("query aborted", "query", token, "panic", r)
			reason = terminationError(fmt.Sprint(r))
		}
	}()

	for {
		if e.cycles >= e.maxCycles {
			return ReasonCycleLimit
		}
		e.cycles++
		cycle := e.cycles

		created := e.matchPhase(ks, cycle)

		winner := e.agenda.SelectNext(cycle)
		if winner == nil {
			e.cycleTraces = append(e.cycleTraces, CycleTrace{
				Cycle:              cycle,
				FactCount:          e.mem.Count(),
				PendingActivations: 0,
				ActivationsCreated: created,
			})
			return ReasonAgendaEmpty
		}

		factsCreated, fired := e.actPhase(ks, winner, cycle, token)

		trace := CycleTrace{
			Cycle:              cycle,
			FactCount:          e.mem.Count(),
			PendingActivations: e.agenda.PendingCount(),
			ActivationsCreated: created,
			FactsCreated:       factsCreated,
		}
		if fired {
			trace.RuleFired = winner.RuleID
		}
		e.cycleTraces = append(e.cycleTraces, trace)
	}
}

// matchPhase evaluates every active rule against working memory and
// registers satisfied instantiations. Returns the number of activations
// created. A rule whose evaluation panics is skipped for this cycle -
// logged, never fatal.
func (e *Engine) matchPhase(ks KnowledgeSource, cycle int) int {
	created := 0
	for _, rule := range ks.ListRules() {
		if !rule.Active {
			continue
		}
		act, err := e.matchRule(rule, cycle)
		if err != nil {
			slog.Error("rule skipped this cycle", "rule", rule.ID, "cycle", cycle, "error", err)
			continue
		}
		if act != nil {
			created++
		}
	}
	return created
}

// matchRule evaluates one rule's conditions in order with a fresh
// binding map and activates it when all succeed.
func (e *Engine) matchRule(rule ir.Rule, cycle int) (act *Activation, err error) {
	defer func() {
		if r := recover(); r != nil {
			act = nil
			err = fmt.Errorf("recovered: %v", r)
		}
	}()

	bindings := ir.Bindings{}
	var triggering []string
	for _, cond := range rule.Conditions {
		matched, entry := e.eval.Evaluate(cond, bindings)
		entry.Cycle = cycle
		entry.RuleID = rule.ID
		e.conditions = append(e.conditions, entry)
		if !matched {
			return nil, nil
		}
		if entry.FactID != "" {
			triggering = append(triggering, entry.FactID)
		}
	}

	return e.agenda.Activate(rule.ID, bindings, triggering, rule.Specificity, rule.Complexity, rule.Priority, rule.Name)
}

// actPhase fires the winning activation: resolves its rule, executes
// each action in order, and moves the activation to history. Returns
// the ids of facts created and whether the rule counted as fired.
//
// A rule id that no longer resolves is recovered locally: the
// activation is retired (so it cannot win again every cycle) and the
// query continues.
func (e *Engine) actPhase(ks KnowledgeSource, winner *Activation, cycle int, token string) ([]string, bool) {
	rule, ok := ks.Rule(winner.RuleID)
	if !ok {
		err := &RuntimeError{
			Code:       ErrCodeRuleNotFound,
			Message:    "activation references a rule the knowledge source cannot resolve",
			QueryToken: token,
			RuleID:     winner.RuleID,
		}
		slog.Error("activation skipped", "error", err)
		e.agenda.MarkExecuted(winner)
		return nil, false
	}

	var factsCreated []string
	for _, action := range rule.Actions {
		factID, entry := e.exec.Execute(action, winner.Bindings, rule.ID)
		entry.Cycle = cycle
		e.actions = append(e.actions, entry)
		if factID != "" {
			factsCreated = append(factsCreated, factID)
			e.derived++
		}
	}

	e.agenda.MarkExecuted(winner)
	e.rulesFired++
	return factsCreated, true
}

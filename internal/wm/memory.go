package wm

import (
	"fmt"
	"log/slog"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// Memory is the fact store for one reasoning session.
//
// Owned exclusively by one engine instance per query. Not safe for
// concurrent use - the engine is single-threaded by design, and
// concurrent queries use independent Memory instances.
type Memory struct {
	facts       []Fact           // append-only history, ordered by Seq
	byPredicate map[string][]int // predicate -> indices into facts, in assert order
	byKind      map[Kind][]int
	counter     int64 // fact id counter, owned by this instance
	seq         int64 // logical clock, owned by this instance
}

// New creates an empty working memory.
func New() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset clears all facts and indices and restarts the id and sequence
// counters. Called once per query, before seeding initial facts.
func (m *Memory) Reset() {
	m.facts = nil
	m.byPredicate = make(map[string][]int)
	m.byKind = make(map[Kind][]int)
	m.counter = 0
	m.seq = 0
}

func (m *Memory) nextID() string {
	m.counter++
	return fmt.Sprintf("F%04d", m.counter)
}

// assert appends a new fact record. Never overwrites: a repeated
// predicate produces a new fact that shadows the old one for Lookup.
func (m *Memory) assert(predicate string, value ir.Value, kind Kind, originRule, justification string, confidence float64) string {
	m.seq++
	fact := Fact{
		ID:            m.nextID(),
		Predicate:     predicate,
		Value:         value,
		Kind:          kind,
		OriginRule:    originRule,
		Confidence:    confidence,
		Justification: justification,
		Seq:           m.seq,
	}
	idx := len(m.facts)
	m.facts = append(m.facts, fact)
	m.byPredicate[predicate] = append(m.byPredicate[predicate], idx)
	m.byKind[kind] = append(m.byKind[kind], idx)

	slog.Debug("fact asserted",
		"id", fact.ID,
		"kind", kind.String(),
		"predicate", predicate,
		"value", ir.Display(value),
	)
	return fact.ID
}

// AssertInitial creates an Initial fact from caller input.
// Always succeeds; initial facts never carry an origin rule.
func (m *Memory) AssertInitial(predicate string, value ir.Value, justification string) string {
	return m.assert(predicate, value, KindInitial, "", justification, 1.0)
}

// AssertDerived creates a Derived fact produced by a rule action.
// The origin rule is mandatory for derived facts.
func (m *Memory) AssertDerived(predicate string, value ir.Value, originRule, justification string, confidence float64) (string, error) {
	if originRule == "" {
		return "", fmt.Errorf("derived fact %q requires an origin rule", predicate)
	}
	return m.assert(predicate, value, KindDerived, originRule, justification, confidence), nil
}

// AssertConclusion creates a Conclusion fact - the only kind returned to
// the caller as final output. The origin rule is mandatory.
func (m *Memory) AssertConclusion(predicate string, value ir.Value, originRule, justification string, confidence float64) (string, error) {
	if originRule == "" {
		return "", fmt.Errorf("conclusion fact %q requires an origin rule", predicate)
	}
	return m.assert(predicate, value, KindConclusion, originRule, justification, confidence), nil
}

// Lookup returns the fact for a predicate with the greatest sequence
// number, i.e. the most recent assertion shadows earlier ones.
func (m *Memory) Lookup(predicate string) (Fact, bool) {
	indices := m.byPredicate[predicate]
	if len(indices) == 0 {
		return Fact{}, false
	}
	return m.facts[indices[len(indices)-1]], true
}

// Exists reports whether any fact exists for the predicate.
func (m *Memory) Exists(predicate string) bool {
	return len(m.byPredicate[predicate]) > 0
}

// ExistsWithValue reports whether the current (most recent) fact for the
// predicate holds the given value.
func (m *Memory) ExistsWithValue(predicate string, value ir.Value) bool {
	fact, ok := m.Lookup(predicate)
	return ok && ir.Equal(fact.Value, value)
}

// AllFacts returns the full append-only history in assert order.
// The returned slice is a copy; facts themselves are immutable.
func (m *Memory) AllFacts() []Fact {
	out := make([]Fact, len(m.facts))
	copy(out, m.facts)
	return out
}

// FactsOfKind returns all facts of one kind, in assert order.
func (m *Memory) FactsOfKind(kind Kind) []Fact {
	indices := m.byKind[kind]
	out := make([]Fact, 0, len(indices))
	for _, idx := range indices {
		out = append(out, m.facts[idx])
	}
	return out
}

// Count returns the total number of facts in history.
func (m *Memory) Count() int {
	return len(m.facts)
}

// CountOfKind returns the number of facts of one kind.
func (m *Memory) CountOfKind(kind Kind) int {
	return len(m.byKind[kind])
}

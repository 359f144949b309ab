// Package kb provides knowledge sources: validated, immutable rule sets
// the engine reasons over.
package kb

import (
	"fmt"
	"os"

	"github.com/Zayitus/PLantAdvisor-V4/internal/compiler"
	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// Static is an in-memory knowledge source over a fixed rule set.
// Immutable after construction; safe for concurrent readers.
type Static struct {
	rules []ir.Rule
	byID  map[string]ir.Rule
}

// NewStatic validates the rules and builds a knowledge source.
// Validation failures are collected, not truncated to the first.
func NewStatic(rules []ir.Rule) (*Static, error) {
	if errs := ir.ValidateRules(rules); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rule set: %w (%d violation(s) total)", errs[0], len(errs))
	}

	s := &Static{
		rules: make([]ir.Rule, len(rules)),
		byID:  make(map[string]ir.Rule, len(rules)),
	}
	copy(s.rules, rules)
	for _, r := range s.rules {
		s.byID[r.ID] = r
	}
	return s, nil
}

// ListRules returns all rules in definition order.
// Implements engine.KnowledgeSource.
func (s *Static) ListRules() []ir.Rule {
	out := make([]ir.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Rule resolves a rule by id. Implements engine.KnowledgeSource.
func (s *Static) Rule(id string) (ir.Rule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of rules.
func (s *Static) Len() int {
	return len(s.rules)
}

// LoadFile compiles a CUE rule source from disk into a knowledge source.
func LoadFile(path string) (*Static, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rules, err := compiler.CompileRules(path, source)
	if err != nil {
		return nil, err
	}
	return NewStatic(rules)
}

// Package testutil provides deterministic stand-ins for the engine's
// sources of uniqueness, enabling golden-trace comparison.
package testutil

import (
	"fmt"
	"sync"
)

// FixedTokenGenerator returns the same query token every time.
//
// The same query with the same FixedTokenGenerator produces
// byte-identical traces, which is what golden tests compare.
//
// Stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator that always returns token.
// An empty token defaults to "test-query-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-query-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token. Implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}

// SequenceTokenGenerator returns "q-0001", "q-0002", ... in order.
//
// Useful when a test runs several queries and needs to tell their
// recorded sessions apart deterministically.
//
// Safe for concurrent use via internal mutex.
type SequenceTokenGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequenceTokenGenerator creates a generator starting at "q-0001".
func NewSequenceTokenGenerator() *SequenceTokenGenerator {
	return &SequenceTokenGenerator{}
}

// Generate returns the next token in the sequence.
// Implements engine.TokenGenerator.
func (g *SequenceTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("q-%04d", g.n)
}

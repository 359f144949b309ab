// Package ir defines the intermediate representation for production rules.
//
// A rule is an ordered list of conditions (IF) and an ordered list of
// actions (THEN), plus static metadata used by conflict resolution:
// explicit priority, specificity (number of conditions) and complexity
// (conditions + actions). Rules are immutable once validated; the engine
// never mutates them.
//
// Values that flow through the engine (fact values, comparands, action
// values) are represented by the sealed Value interface. The closed set of
// variants makes operator dispatch exhaustive: adding a new variant forces
// every switch over Value to be revisited.
//
// Variable references use the `$name` marker in rule sources for schema
// compatibility with the original rule format. The marker is parsed once,
// at rule construction, into a typed Operand. At evaluation time bindings
// are a map keyed by symbol - literal strings that happen to start with
// `$` can be written as `$$`.
package ir

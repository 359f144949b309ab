// Package engine implements the forward-chaining inference engine.
//
// The engine runs the classic production-system cycle over a working
// memory and a knowledge source:
//
//  1. Match: evaluate every active rule's conditions against working
//     memory with a fresh binding map; satisfied rules become
//     activations in the agenda.
//  2. Resolve: the agenda picks one pending activation under the
//     configured conflict-resolution strategy.
//  3. Act: the winning activation's actions execute in order, asserting
//     new facts, and the activation moves to history.
//
// The loop repeats until no activation can fire or the cycle limit is
// reached.
//
// ARCHITECTURE:
//
// Single-threaded, synchronous evaluation. One engine instance processes
// exactly one query at a time; the working memory and agenda are owned
// exclusively by that query and reset before the next one. Concurrent
// queries use independent engine instances - there is no engine-internal
// locking to tune, and no shared mutable state to corrupt.
//
// Determinism: rules are evaluated in knowledge-source order, activations
// are stamped with a monotonic logical sequence, and every conflict-
// resolution tie breaks on that sequence. Repeated runs over the same
// input produce identical conclusions, cycle counts, and traces. No
// wall-clock timestamps participate in ordering.
//
// Error handling follows "recover and trace, log and continue": a
// condition that fails to evaluate is false, an action that fails is a
// no-op, and both leave a trace entry with the error preserved. Only a
// fault escaping those boundaries aborts the query - and even then the
// partial conclusions and trace are returned.
package engine

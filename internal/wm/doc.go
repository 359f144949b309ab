// Package wm implements the working memory (fact store) for one
// reasoning session.
//
// Facts are immutable once created. Asserting a predicate that already
// has a fact never overwrites: a new fact record is appended and shadows
// the previous one for lookup (most recent wins). The full append-only
// history is what the explanation trace is built from.
//
// Ordering uses a per-instance logical sequence counter, never wall-clock
// timestamps. Two Memory instances never share state: the fact id counter
// and sequence counter are fields of the instance, reset at query start.
package wm

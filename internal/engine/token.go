package engine

import "github.com/google/uuid"

// TokenGenerator produces query tokens for result correlation.
// Implemented by UUIDv7Generator (production) and the fixed generators in
// internal/testutil (deterministic tests and golden traces).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so stored
// sessions sort by creation time. The token identifies the query in logs
// and in the session store; it never participates in inference ordering.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

package kb

import (
	_ "embed"
	"sync"

	"github.com/Zayitus/PLantAdvisor-V4/internal/compiler"
)

// Flora rules for Tierra del Fuego: one diagnostic rule deriving the
// dry-indoor-environment fact, the rest recommending a plant. Every
// recommendation guards on planta_ideal not existing yet, so the first
// one to fire settles the question.
//
//go:embed flora_tdf.cue
var floraTDFSource []byte

var floraOnce = sync.OnceValues(func() (*Static, error) {
	rules, err := compiler.CompileRules("flora_tdf.cue", floraTDFSource)
	if err != nil {
		return nil, err
	}
	return NewStatic(rules)
})

// FloraTDF returns the built-in Tierra del Fuego botanical knowledge
// source. Compiled from the embedded CUE source on first use; the same
// instance is returned to every caller.
func FloraTDF() (*Static, error) {
	return floraOnce()
}

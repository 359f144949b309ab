package wm

import (
	"fmt"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// Kind classifies a fact by how it entered working memory.
type Kind int

const (
	// KindInitial facts are seeded from caller input. Never carry an
	// origin rule.
	KindInitial Kind = iota
	// KindDerived facts are asserted by rule actions during inference.
	KindDerived
	// KindConclusion facts are the final outputs returned to the caller.
	KindConclusion
)

var kindNames = map[Kind]string{
	KindInitial:    "initial",
	KindDerived:    "derived",
	KindConclusion: "conclusion",
}

// String returns the serialized name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a serialized name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindInitial, fmt.Errorf("unknown fact kind %q", s)
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by
// name in trace JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fact is one immutable unit of information in working memory.
type Fact struct {
	ID            string   `json:"id"`
	Predicate     string   `json:"predicate"`
	Value         ir.Value `json:"value"`
	Kind          Kind     `json:"kind"`
	OriginRule    string   `json:"origin_rule,omitempty"` // empty iff Kind == KindInitial
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification,omitempty"`
	Seq           int64    `json:"seq"` // logical timestamp, per-memory monotonic
}
